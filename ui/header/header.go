package header

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/ui/common"
	"github.com/deemkeen/inkblock/util"
)

type Model struct {
	Width   int
	Label   string
	Session domain.Session
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

func (m Model) View() string {
	return GetHeaderStyle(m.Session, m.Label, m.Width)
}

func identityText(session domain.Session) string {
	if !session.IsAuthenticated {
		return "anonymous"
	}
	return session.Principal().String()
}

func GetHeaderStyle(session domain.Session, label string, width int) string {
	// three boxes, each adding padding(2) on the sides
	overhead := 6
	availableWidth := width - overhead

	if availableWidth < 40 {
		availableWidth = 40
	}

	versionWidth := availableWidth / 4
	loginWidth := availableWidth / 5
	identityWidth := availableWidth - versionWidth - loginWidth

	version := lipgloss.
		NewStyle().
		SetString(util.GetNameAndVersion()).
		Width(versionWidth).
		Height(1).
		Background(lipgloss.Color(common.COLOR_PURPLE)).
		Padding(1).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	identity := lipgloss.
		NewStyle().
		SetString(identityText(session)).
		Align(lipgloss.Left).
		Width(identityWidth).
		Height(1).
		Background(lipgloss.Color(common.COLOR_GREY)).
		Padding(1).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	login := lipgloss.
		NewStyle().
		SetString(fmt.Sprintf("ctrl+l: %s", label)).
		Align(lipgloss.Right).
		Width(loginWidth).
		Height(1).
		Background(lipgloss.Color(common.COLOR_MAGENTA)).
		Padding(1).
		Border(lipgloss.NormalBorder(), true, false, true, false).
		BorderForeground(lipgloss.Color(common.COLOR_MAGENTA)).
		String()

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		version,
		identity,
		login,
	)
}
