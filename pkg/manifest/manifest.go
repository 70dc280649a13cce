// Package manifest reads and writes package.yaml manifests. It is the only
// place that knows the on-disk manifest format; the workspace model and the
// release pipeline consume the parsed form.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"

	"github.com/monoship/monoship/pkg/logger"
)

var manifestLog = logger.New("manifest:manifest")

// Filename is the manifest file name that marks a directory as a package.
const Filename = "package.yaml"

// Dependency is one entry of a dependencies list. It is either a bare name
// (resolved against the workspace, external if absent) or a mapping with an
// explicit path, which pins it as workspace-local:
//
//	dependencies:
//	  - serde                # registry dependency, or local if a member
//	  - name: core
//	    path: ../core        # must resolve inside the workspace
type Dependency struct {
	Name string `yaml:"name"`
	Path string `yaml:"path,omitempty"`
}

// Local reports whether the dependency is pinned to a workspace path.
func (d Dependency) Local() bool {
	return d.Path != ""
}

// UnmarshalYAML accepts both the bare-string and the mapping form.
func (d *Dependency) UnmarshalYAML(unmarshal func(any) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		d.Name = name
		d.Path = ""
		return nil
	}
	var full struct {
		Name string `yaml:"name"`
		Path string `yaml:"path"`
	}
	if err := unmarshal(&full); err != nil {
		return err
	}
	if full.Name == "" {
		return errors.New("dependency entry is missing a name")
	}
	d.Name = full.Name
	d.Path = full.Path
	return nil
}

// Package is the parsed form of a package.yaml manifest.
type Package struct {
	Name            string       `yaml:"name"`
	Version         string       `yaml:"version"`
	Description     string       `yaml:"description,omitempty"`
	Repository      string       `yaml:"repository,omitempty"`
	Publish         *bool        `yaml:"publish,omitempty"`
	Dependencies    []Dependency `yaml:"dependencies,omitempty"`
	DevDependencies []Dependency `yaml:"dev-dependencies,omitempty"`

	// Dir is the directory containing the manifest, set by the reader.
	Dir string `yaml:"-"`
}

// ManifestPath returns the path of the manifest file itself.
func (p *Package) ManifestPath() string {
	return filepath.Join(p.Dir, Filename)
}

// Publishable reports whether the package may be uploaded to a registry.
// Manifests without an explicit publish field default to publishable.
func (p *Package) Publishable() bool {
	return p.Publish == nil || *p.Publish
}

// IOError reports a failed manifest read or write for a single package.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ReadPackage parses the manifest in dir.
func ReadPackage(dir string) (*Package, error) {
	path := filepath.Join(dir, Filename)
	manifestLog.Printf("Reading manifest: %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}

	var pkg Package
	if err := yaml.Unmarshal(content, &pkg); err != nil {
		return nil, &IOError{Path: path, Op: "parse", Err: err}
	}
	if pkg.Name == "" {
		return nil, &IOError{Path: path, Op: "parse", Err: errors.New("manifest has no name field")}
	}
	if pkg.Version == "" {
		return nil, &IOError{Path: path, Op: "parse", Err: errors.New("manifest has no version field")}
	}
	pkg.Dir = dir
	return &pkg, nil
}

// LoadWorkspace walks root and parses every package.yaml found, skipping
// hidden directories and common build output directories.
func LoadWorkspace(root string) ([]*Package, error) {
	manifestLog.Printf("Loading workspace from: %s", root)

	var packages []*Package
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
				name == "node_modules" || name == "target" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != Filename {
			return nil
		}
		pkg, err := ReadPackage(filepath.Dir(path))
		if err != nil {
			return err
		}
		packages = append(packages, pkg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	manifestLog.Printf("Loaded %d packages from workspace", len(packages))
	return packages, nil
}

// parseMapping parses manifest content into its AST, keeping comments, and
// returns the top-level mapping node for in-place edits.
func parseMapping(path string, content []byte) (*ast.File, *ast.MappingNode, error) {
	file, err := parser.ParseBytes(content, parser.ParseComments)
	if err != nil {
		return nil, nil, &IOError{Path: path, Op: "parse", Err: err}
	}
	if len(file.Docs) == 0 {
		return nil, nil, &IOError{Path: path, Op: "parse", Err: errors.New("manifest is empty")}
	}
	mapping, ok := file.Docs[0].Body.(*ast.MappingNode)
	if !ok {
		return nil, nil, &IOError{Path: path, Op: "parse", Err: errors.New("manifest root is not a mapping")}
	}
	return file, mapping, nil
}

func keyName(key ast.Node) string {
	if s, ok := key.(*ast.StringNode); ok {
		return s.Value
	}
	return key.String()
}

// encodeScalar renders a field value as YAML source text. String values
// parseable as bool or integer are written unquoted.
func encodeScalar(value any) (string, error) {
	if s, ok := value.(string); ok {
		if _, err := strconv.ParseBool(s); err == nil {
			return s, nil
		}
		if _, err := strconv.Atoi(s); err == nil {
			return s, nil
		}
	}
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(encoded)), nil
}

// parsePair parses "key: value" source into a single mapping pair node.
func parsePair(source string) (*ast.MappingValueNode, error) {
	file, err := parser.ParseBytes([]byte(source), 0)
	if err != nil {
		return nil, err
	}
	if len(file.Docs) == 0 {
		return nil, errors.New("empty field source")
	}
	switch body := file.Docs[0].Body.(type) {
	case *ast.MappingValueNode:
		return body, nil
	case *ast.MappingNode:
		if len(body.Values) == 1 {
			return body.Values[0], nil
		}
	}
	return nil, fmt.Errorf("field source %q is not a single mapping pair", source)
}

func renderFile(file *ast.File) []byte {
	out := file.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return []byte(out)
}

// WriteField sets a top-level field in the manifest at path, adding it at
// the end of the document if absent. The edit is applied to the parsed
// syntax tree, so comments, key order, and untouched formatting survive.
func WriteField(path, key string, value any) error {
	manifestLog.Printf("Writing field %s=%v to %s", key, value, path)

	content, err := os.ReadFile(path)
	if err != nil {
		return &IOError{Path: path, Op: "read", Err: err}
	}
	file, mapping, err := parseMapping(path, content)
	if err != nil {
		return err
	}

	encoded, err := encodeScalar(value)
	if err != nil {
		return &IOError{Path: path, Op: "serialize", Err: err}
	}
	pair, err := parsePair(key + ": " + encoded)
	if err != nil {
		return &IOError{Path: path, Op: "serialize", Err: err}
	}

	replaced := false
	for _, existing := range mapping.Values {
		if keyName(existing.Key) == key {
			existing.Value = pair.Value
			replaced = true
			break
		}
	}
	if !replaced {
		mapping.Values = append(mapping.Values, pair)
	}

	if err := os.WriteFile(path, renderFile(file), 0o644); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// DeactivateDevDependencies strips the dev-dependencies section from the
// manifest at path and returns the original file content so the caller can
// restore it with RestoreManifest once the run is over. Like WriteField,
// the removal is an AST edit; the rest of the document is left as written.
func DeactivateDevDependencies(path string) ([]byte, error) {
	manifestLog.Printf("Deactivating dev-dependencies in %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	file, mapping, err := parseMapping(path, content)
	if err != nil {
		return nil, err
	}

	kept := mapping.Values[:0]
	for _, pair := range mapping.Values {
		if keyName(pair.Key) != "dev-dependencies" {
			kept = append(kept, pair)
		}
	}
	if len(kept) == len(mapping.Values) {
		// Nothing to strip; return the original so restore stays uniform.
		return content, nil
	}
	mapping.Values = kept

	if err := os.WriteFile(path, renderFile(file), 0o644); err != nil {
		return nil, &IOError{Path: path, Op: "write", Err: err}
	}
	return content, nil
}

// RestoreManifest writes previously saved manifest content back to path.
func RestoreManifest(path string, content []byte) error {
	manifestLog.Printf("Restoring manifest %s", path)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}
