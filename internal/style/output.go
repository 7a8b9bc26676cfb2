package style

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"gopkg.in/yaml.v3"
)

var (
	// Color palette
	ErrorColor       = lipgloss.Color("#FF6B6B")
	ErrorBgColor     = lipgloss.Color("#3D2020")
	WarningColor     = lipgloss.Color("#FFA726")
	SuccessColor     = lipgloss.Color("#66BB6A")
	InfoColor        = lipgloss.Color("#42A5F5")
	MutedColor       = lipgloss.Color("#6C757D")
	AccentColor      = lipgloss.Color("#7C3AED")
	CodeColor        = lipgloss.Color("#D4D4D4")
	PrimaryTextColor = lipgloss.Color("#E4E4E7")

	// Base styles
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	AccentStyle  = lipgloss.NewStyle().Foreground(AccentColor)

	TitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(InfoColor).
			Bold(true)

	FileStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Underline(true)

	DurationStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)
)

// Rule returns a muted horizontal rule of width repetitions of ch.
func Rule(ch string, width int) string {
	return MutedStyle.Render(strings.Repeat(ch, width))
}

// FormatFilePath renders a path in the file style.
func FormatFilePath(path string) string {
	return FileStyle.Render(path)
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// WriteYAML encodes v as YAML with two-space indentation.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

func SuccessIcon() string { return SuccessStyle.Render("✓") }
func ErrorIcon() string   { return ErrorStyle.Render("✗") }
func WarningIcon() string { return WarningStyle.Render("⚠") }
func InfoIcon() string    { return InfoStyle.Render("ℹ") }

func line(w io.Writer, icon string, c color.Color, message string) {
	fmt.Fprintf(w, "%s %s\n", icon, lipgloss.NewStyle().Foreground(c).Render(message))
}

// Success prints message after a check mark.
func Success(w io.Writer, message string) { line(w, SuccessIcon(), SuccessColor, message) }

// Error prints message after a cross.
func Error(w io.Writer, message string) { line(w, ErrorIcon(), ErrorColor, message) }

// Warning prints message after a warning sign.
func Warning(w io.Writer, message string) { line(w, WarningIcon(), WarningColor, message) }
