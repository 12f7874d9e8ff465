package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Quit        key.Binding
	Enter       key.Binding
	NewChat     key.Binding
	NextSession key.Binding
	PrevSession key.Binding
	Delete      key.Binding
	Help        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send message"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		NextSession: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("ctrl+down", "next session"),
		),
		PrevSession: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("ctrl+up", "previous session"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "delete session"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("ctrl+h", "toggle help"),
		),
	}
}

type helpModel struct {
	keys    keyMap
	width   int
	visible bool
}

func newHelpModel() helpModel {
	return helpModel{keys: defaultKeyMap(), width: 80}
}

func (m *helpModel) SetWidth(width int) {
	m.width = width
}

// View is the one-line footer hint; FullView is the expanded listing shown
// in place of the chat pane.
func (m helpModel) View() string {
	return helpFooterStyle.Render("enter send | ctrl+n new chat | ctrl+up/down switch | ctrl+h help | ctrl+c quit")
}

func (m helpModel) FullView() string {
	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("docassist help"))
	b.WriteString("\n\n")

	b.WriteString(helpSectionStyle.Render("keys"))
	b.WriteString("\n")
	for _, binding := range []key.Binding{
		m.keys.Enter, m.keys.NewChat, m.keys.NextSession, m.keys.PrevSession,
		m.keys.Delete, m.keys.Help, m.keys.Quit,
	} {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			helpKeyStyle.Render(binding.Help().Key),
			binding.Help().Desc))
	}

	b.WriteString("\n")
	b.WriteString(helpSectionStyle.Render("commands"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /upload <files...>  upload PDF documents"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /clear-docs         remove all remote documents"))
	b.WriteString("\n")
	b.WriteString(helpDescriptionStyle.Render("  /help               toggle this help"))
	b.WriteString("\n")

	return b.String()
}

var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1d2433", Dark: "#f2f2f2"})

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.AdaptiveColor{Light: "#1f6feb", Dark: "#7aa2ff"})

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1f6feb", Dark: "#7aa2ff"})

	helpDescriptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#4a5568", Dark: "#c7c7c7"})

	helpFooterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#718096", Dark: "#9aa0a6"})
)
