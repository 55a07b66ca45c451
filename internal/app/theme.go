package app

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	connectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	offlineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	userLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	agentLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true)
	toolLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("179")).Bold(true)
	toolPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("94")).Bold(true)
	readOnlyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)
