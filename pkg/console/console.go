// Package console provides user-facing terminal output formatting: status
// message helpers with consistent symbols and colors, and a spinner for
// long-running operations.
//
// Colors are applied with lipgloss and are suppressed automatically when
// stderr is not a terminal or when NO_COLOR is set. Debug logging (pkg/logger)
// is for developers; console output is for users.
package console

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	verboseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // gray
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
)

// colorEnabled reports whether styled output should be produced.
func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd())
}

func render(style lipgloss.Style, symbol, message string) string {
	text := message
	if symbol != "" {
		text = symbol + " " + message
	}
	if !colorEnabled() {
		return text
	}
	return style.Render(text)
}

// FormatSuccessMessage formats a message indicating an operation succeeded.
func FormatSuccessMessage(message string) string {
	return render(successStyle, "✓", message)
}

// FormatErrorMessage formats a message indicating an operation failed.
func FormatErrorMessage(message string) string {
	return render(errorStyle, "✗", message)
}

// FormatWarningMessage formats a non-fatal warning.
func FormatWarningMessage(message string) string {
	return render(warningStyle, "⚠", message)
}

// FormatInfoMessage formats a neutral informational message.
func FormatInfoMessage(message string) string {
	return render(infoStyle, "", message)
}

// FormatVerboseMessage formats secondary detail shown only in verbose mode.
func FormatVerboseMessage(message string) string {
	return render(verboseStyle, "", message)
}

// FormatCommandMessage formats a shell command suggestion for the user.
func FormatCommandMessage(command string) string {
	return render(commandStyle, "$", command)
}

// FormatProgressMessage formats a step progress message such as
// "Publishing core (2/5)".
func FormatProgressMessage(message string, current, total int) string {
	return render(infoStyle, "", fmt.Sprintf("%s (%d/%d)", message, current, total))
}

// FormatCountMessage formats a count with a singular/plural noun, e.g.
// "1 package" or "3 packages".
func FormatCountMessage(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
