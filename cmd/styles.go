package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/studio-bridge/internal"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	processStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))

	transformStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

func kindStyle(kind internal.ArtifactKind) lipgloss.Style {
	switch kind {
	case internal.KindProcess:
		return processStyle
	case internal.KindTransform:
		return transformStyle
	default:
		return dimStyle
	}
}
