package main

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // committed navigations
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
	softYellow  = lipgloss.Color("#FDFD96") // vetoed or superseded
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	stepStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	enterStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	stayStyle = lipgloss.NewStyle().
			Foreground(softYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	addressStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Padding(0, 1)
)
