package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/ui/common"
	"github.com/deemkeen/inkblock/util"
)

const (
	MaxTitleLetters = 120
	MaxBodyLetters  = 4000

	PostCreated = "Post created successfully!"
)

// Poster creates posts for the logged in user.
type Poster interface {
	IsAuthenticated() bool
	CreatePost(ctx context.Context, title, body string) error
}

type Model struct {
	Title      textinput.Model
	Body       textarea.Model
	Submitting bool
	poster     Poster
	focusBody  bool
	width      int
}

// submittedMsg is the backend's answer to a submission.
type submittedMsg struct {
	err error
}

func New(poster Poster, width int) Model {
	ti := textinput.New()
	ti.Placeholder = "title"
	ti.CharLimit = MaxTitleLetters
	ti.Width = 50
	ti.Focus()

	ta := textarea.New()
	ta.Placeholder = "write your post"
	ta.CharLimit = MaxBodyLetters
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(8)

	m := Model{Title: ti, Body: ta, poster: poster}
	m.SetWidth(width)
	return m
}

func (m *Model) SetWidth(width int) {
	m.width = width
	w := min(max(width-10, 20), 100)
	m.Title.Width = w
	m.Body.SetWidth(w)
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Focus is called when the compose panel opens.
func (m Model) Focus() (Model, tea.Cmd) {
	m.focusBody = false
	m.Body.Blur()
	cmd := m.Title.Focus()
	return m, cmd
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case submittedMsg:
		m.Submitting = false
		if msg.err != nil {
			return m, common.ErrorNotice(msg.err)
		}
		m.Title.SetValue("")
		m.Body.SetValue("")
		return m, tea.Batch(
			common.Notice(PostCreated),
			func() tea.Msg { return common.PostCreatedMsg{} },
		)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlS:
			return m.submit()
		case tea.KeyTab:
			m.focusBody = !m.focusBody
			if m.focusBody {
				m.Title.Blur()
				cmd = m.Body.Focus()
				return m, cmd
			}
			m.Body.Blur()
			cmd = m.Title.Focus()
			return m, cmd
		}

		if m.Submitting {
			return m, nil
		}
		if m.focusBody {
			m.Body, cmd = m.Body.Update(msg)
		} else {
			m.Title, cmd = m.Title.Update(msg)
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	m.Title, cmd = m.Title.Update(msg)
	cmds = append(cmds, cmd)
	m.Body, cmd = m.Body.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.Submitting {
		return m, nil
	}

	if !m.poster.IsAuthenticated() {
		return m, common.ErrorNotice(domain.NewUnauthenticatedError(remote.MethodCreatePost, domain.LoginRequired))
	}

	title := strings.TrimSpace(m.Title.Value())
	body := strings.TrimSpace(m.Body.Value())
	switch {
	case title == "":
		return m, common.ErrorNotice(domain.NewValidationError(remote.MethodCreatePost, "Please enter a title"))
	case body == "":
		return m, common.ErrorNotice(domain.NewValidationError(remote.MethodCreatePost, "Please write something"))
	}

	m.Submitting = true
	return m, createPost(m.poster, title, util.TextToHtml(body))
}

func createPost(poster Poster, title, body string) tea.Cmd {
	return func() tea.Msg {
		return submittedMsg{err: poster.CreatePost(context.Background(), title, body)}
	}
}

func (m Model) View() string {
	caption := common.CaptionStyle.Render("new post")

	fields := lipgloss.NewStyle().PaddingLeft(2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			common.LabelStyle.Render("title"),
			m.Title.View(),
			"",
			common.LabelStyle.Render("body"),
			m.Body.View(),
		))

	status := fmt.Sprintf("characters left: %d • tab: switch field • ctrl+s: publish • esc: close",
		m.Body.CharLimit-m.Body.Length())
	if m.Submitting {
		status = "Submitting..."
	}

	return fmt.Sprintf("%s\n%s\n\n%s", caption, fields, common.HelpStyle.Render(status))
}
