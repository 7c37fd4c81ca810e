package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette for dark terminals.
var (
	ColorPrimary     = lipgloss.Color("255")
	ColorSecondary   = lipgloss.Color("240")
	ColorAccent      = lipgloss.Color("39")
	ColorSuccess     = lipgloss.Color("42")
	ColorError       = lipgloss.Color("196")
	ColorWarning     = lipgloss.Color("214")
	ColorDim         = lipgloss.Color("240")
	ColorSQL         = lipgloss.Color("180")
	ColorHighlightBg = lipgloss.Color("236")
)

var (
	StyleNormal = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleDimmed = lipgloss.NewStyle().Foreground(ColorDim)
	StyleBold   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary)

	StyleTitle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginBottom(1)
	StylePrompt = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	// Chat transcript
	StyleQuestion = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSQL      = lipgloss.NewStyle().Foreground(ColorSQL)
	StyleSQLBlock = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(ColorSQL).
			PaddingLeft(1)
	StyleFollowUp = lipgloss.NewStyle().Foreground(ColorAccent)

	StyleTabActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	StyleTabInactive = lipgloss.NewStyle().
				Foreground(ColorDim).
				Padding(0, 1)

	StyleListItemActive = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)

	StyleStatusBar = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	StyleHelpKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorDim)
)
