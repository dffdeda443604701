package userprofile

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/ui/common"
	"github.com/deemkeen/inkblock/util"
)

const NotFound = "User profile not found."

// Reader looks up any principal's profile without authentication.
type Reader interface {
	GetProfileByPrincipal(ctx context.Context, principal domain.Principal) (*domain.Profile, error)
}

type Model struct {
	Principal domain.Principal
	Profile   *domain.Profile
	Loading   bool
	Err       string
	reader    Reader
	seq       int
}

// LoadedMsg carries a fetched profile; replies for a principal no longer shown are dropped.
type LoadedMsg struct {
	seq     int
	profile *domain.Profile
	err     error
}

func New(reader Reader) Model {
	return Model{reader: reader}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Load(principal domain.Principal) (Model, tea.Cmd) {
	m.seq++
	m.Principal = principal
	m.Profile = nil
	m.Loading = true
	m.Err = ""

	reader, seq := m.reader, m.seq
	return m, func() tea.Msg {
		profile, err := reader.GetProfileByPrincipal(context.Background(), principal)
		return LoadedMsg{seq: seq, profile: profile, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Loading = false
		if msg.err != nil {
			m.Err = NotFound
			return m, common.ErrorNotice(msg.err)
		}
		m.Profile = msg.profile
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("user profile"))
	s.WriteString("\n")

	switch {
	case m.Loading:
		s.WriteString(common.EmptyStyle.Render("Loading profile..."))
	case m.Err != "":
		s.WriteString(common.ErrorStyle.Render(m.Err))
	case m.Profile != nil:
		picture := "no picture"
		if m.Profile.HasPicture() {
			picture = util.PictureSummary(m.Profile.Picture)
		}
		body := lipgloss.JoinVertical(lipgloss.Left,
			common.LabelStyle.Render("username"),
			m.Profile.DisplayName(),
			"",
			common.LabelStyle.Render("principal"),
			m.Principal.String(),
			"",
			common.LabelStyle.Render("bio"),
			m.Profile.Bio,
			"",
			common.LabelStyle.Render("picture"),
			picture,
		)
		s.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(body))
	}

	s.WriteString("\n\n")
	s.WriteString(common.HelpStyle.Render("esc: back"))
	return s.String()
}
