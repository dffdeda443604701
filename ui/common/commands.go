package common

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/deemkeen/inkblock/domain"
)

type SessionState uint

const (
	HomeView SessionState = iota
	ComposeView
	SelfProfileView
	OtherProfileView
)

func (s SessionState) String() string {
	switch s {
	case ComposeView:
		return "compose"
	case SelfProfileView:
		return "my profile"
	case OtherProfileView:
		return "user profile"
	default:
		return "posts"
	}
}

// NoticeMsg asks the main model to show a transient notice.
type NoticeMsg struct {
	Text    string
	IsError bool
}

// ShowProfileMsg opens the profile of another principal.
type ShowProfileMsg struct {
	Principal domain.Principal
}

// PostCreatedMsg is sent after a post was accepted by the backend.
type PostCreatedMsg struct{}

func Notice(text string) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{Text: text}
	}
}

// ErrorNotice surfaces any error as a notice.
func ErrorNotice(err error) tea.Cmd {
	return func() tea.Msg {
		return NoticeMsg{Text: domain.NoticeOf(err), IsError: true}
	}
}
