package profile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/ui/common"
	"github.com/deemkeen/inkblock/util"
)

const ProfileUpdated = "Profile updated successfully!"

const (
	fieldUsername = iota
	fieldBio
	fieldPicture
	fieldCount
)

// Store reads and writes the logged in user's own profile.
type Store interface {
	IsAuthenticated() bool
	GetProfile(ctx context.Context) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, username, bio string, picture []byte) error
}

type Model struct {
	Username textinput.Model
	Bio      textinput.Model
	Picture  textinput.Model
	Current  domain.Profile
	Loading  bool
	Saving   bool
	Err      string
	focus    int
	store    Store
	seq      int
}

// LoadedMsg carries the profile fetched when the editor opened.
type LoadedMsg struct {
	seq     int
	profile *domain.Profile
	err     error
}

// SavedMsg is the backend's answer to a save.
type SavedMsg struct {
	profile domain.Profile
	err     error
}

func New(store Store) Model {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 50
	username.Width = 40

	bio := textinput.New()
	bio.Placeholder = "a few words about you"
	bio.CharLimit = 300
	bio.Width = 60

	picture := textinput.New()
	picture.Placeholder = "path to a picture (leave empty to keep)"
	picture.CharLimit = 512
	picture.Width = 60

	return Model{Username: username, Bio: bio, Picture: picture, store: store}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Load fetches the profile, creating an empty one for first time users.
func (m Model) Load() (Model, tea.Cmd) {
	m.seq++
	m.Loading = true
	m.Err = ""
	m.focus = fieldUsername
	focus := m.applyFocus()
	return m, tea.Batch(focus, loadProfile(m.store, m.seq))
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.Loading = false
		if msg.err != nil {
			m.Err = "Could not load your profile."
			return m, common.ErrorNotice(msg.err)
		}
		m.Current = *msg.profile
		m.Username.SetValue(msg.profile.Username)
		m.Bio.SetValue(msg.profile.Bio)
		m.Picture.SetValue("")
		return m, nil

	case SavedMsg:
		m.Saving = false
		if msg.err != nil {
			return m, common.ErrorNotice(msg.err)
		}
		m.Current = msg.profile
		m.Picture.SetValue("")
		return m, common.Notice(ProfileUpdated)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlS:
			return m.save()
		case tea.KeyTab, tea.KeyDown:
			m.focus = (m.focus + 1) % fieldCount
			cmd = m.applyFocus()
			return m, cmd
		case tea.KeyShiftTab, tea.KeyUp:
			m.focus = (m.focus + fieldCount - 1) % fieldCount
			cmd = m.applyFocus()
			return m, cmd
		}

		if m.Saving || m.Loading {
			return m, nil
		}
		switch m.focus {
		case fieldUsername:
			m.Username, cmd = m.Username.Update(msg)
		case fieldBio:
			m.Bio, cmd = m.Bio.Update(msg)
		case fieldPicture:
			m.Picture, cmd = m.Picture.Update(msg)
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	m.Username, cmd = m.Username.Update(msg)
	cmds = append(cmds, cmd)
	m.Bio, cmd = m.Bio.Update(msg)
	cmds = append(cmds, cmd)
	m.Picture, cmd = m.Picture.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) applyFocus() tea.Cmd {
	inputs := []*textinput.Model{&m.Username, &m.Bio, &m.Picture}
	var cmd tea.Cmd
	for i, in := range inputs {
		if i == m.focus {
			cmd = in.Focus()
		} else {
			in.Blur()
		}
	}
	return cmd
}

func (m Model) save() (Model, tea.Cmd) {
	if m.Saving || m.Loading {
		return m, nil
	}

	if !m.store.IsAuthenticated() {
		return m, common.ErrorNotice(domain.NewUnauthenticatedError(remote.MethodUpdateProfile, domain.LoginRequired))
	}

	var picture []byte
	if path := strings.TrimSpace(m.Picture.Value()); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return m, common.ErrorNotice(domain.NewValidationError(remote.MethodUpdateProfile, fmt.Sprintf("Could not read picture: %v", err)))
		}
		if !util.IsImage(data) {
			return m, common.ErrorNotice(domain.NewValidationError(remote.MethodUpdateProfile, fmt.Sprintf("Picture must be an image, got %s", util.PictureType(data))))
		}
		picture = data
	}

	m.Saving = true
	profile := domain.Profile{
		Username: strings.TrimSpace(m.Username.Value()),
		Bio:      strings.TrimSpace(m.Bio.Value()),
		Picture:  picture,
	}
	if picture == nil {
		profile.Picture = m.Current.Picture
	}
	return m, saveProfile(m.store, profile, picture)
}

func loadProfile(store Store, seq int) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		profile, err := store.GetProfile(ctx)
		if domain.IsProfileNotFound(err) {
			if err := store.UpdateProfile(ctx, "", "", nil); err != nil {
				return LoadedMsg{seq: seq, err: err}
			}
			return LoadedMsg{seq: seq, profile: &domain.Profile{}}
		}
		return LoadedMsg{seq: seq, profile: profile, err: err}
	}
}

func saveProfile(store Store, profile domain.Profile, picture []byte) tea.Cmd {
	return func() tea.Msg {
		err := store.UpdateProfile(context.Background(), profile.Username, profile.Bio, picture)
		return SavedMsg{profile: profile, err: err}
	}
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(common.CaptionStyle.Render("my profile"))
	s.WriteString("\n")

	if m.Loading {
		s.WriteString(common.EmptyStyle.Render("Loading profile..."))
		return s.String()
	}
	if m.Err != "" {
		s.WriteString(common.ErrorStyle.Render(m.Err))
		return s.String()
	}

	picture := "no picture"
	if m.Current.HasPicture() {
		picture = util.PictureSummary(m.Current.Picture)
	}

	fields := lipgloss.JoinVertical(lipgloss.Left,
		common.LabelStyle.Render("username"),
		m.Username.View(),
		"",
		common.LabelStyle.Render("bio"),
		m.Bio.View(),
		"",
		common.LabelStyle.Render("picture"),
		common.EmptyStyle.Render(picture),
		m.Picture.View(),
	)
	s.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(fields))
	s.WriteString("\n\n")

	help := "tab: next field • ctrl+s: save • esc: back"
	if m.Saving {
		help = "Saving..."
	}
	s.WriteString(common.HelpStyle.Render(help))
	return s.String()
}
