// Package ui provides consistent styling for the primelayer CLI reports
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette - consistent across the application
var (
	ColorPrimary = lipgloss.Color("39")  // Bright blue
	ColorSuccess = lipgloss.Color("82")  // Green
	ColorWarning = lipgloss.Color("214") // Orange
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("86")  // Cyan

	ColorText   = lipgloss.Color("252") // Light gray
	ColorSubtle = lipgloss.Color("241") // Medium gray
)

// Base styles - building blocks for other styles
var (
	TextStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle).
			Width(24)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

// Icons and indicators
var (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconHeader  = "»"
	IconSection = "·"
)

// FormatHeader renders a report title over a separator
func FormatHeader(title string) string {
	icon := SectionStyle.Render(IconHeader)
	return HeaderStyle.Render(icon+" "+title) + "\n" + CreateSeparator(50, "─")
}

// FormatSection renders a section label
func FormatSection(name string) string {
	return SectionStyle.Render(IconSection + " " + name)
}

// FormatKeyValue renders one aligned report line
func FormatKeyValue(key string, value any) string {
	return "  " + KeyStyle.Render(key) + TextStyle.Render(fmt.Sprint(value))
}

// FormatCheck renders a pass/fail line with an optional detail
func FormatCheck(ok bool, label, detail string) string {
	icon := ErrorStyle.Render(IconError)
	style := ErrorStyle
	if ok {
		icon = SuccessStyle.Render(IconSuccess)
		style = SuccessStyle
	}
	line := "  " + icon + " " + label
	if detail != "" {
		line += " - " + style.Render(detail)
	}
	return line
}

// FormatLeak renders a resource count that must be zero after teardown
func FormatLeak(label string, live int) string {
	if live == 0 {
		return FormatCheck(true, label, "none live")
	}
	return FormatCheck(false, label, fmt.Sprintf("%d still live", live))
}

// FormatWarning renders a warning line
func FormatWarning(msg string) string {
	return "  " + WarningStyle.Render(IconWarning+" "+msg)
}

// Box wraps content in a rounded border
func Box(content string) string {
	return BoxStyle.Render(content)
}

// CreateSeparator creates a horizontal line separator
func CreateSeparator(width int, char string) string {
	if width <= 0 {
		width = 50
	}
	if char == "" {
		char = "─"
	}

	return lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(strings.Repeat(char, width))
}
