package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/inkblock/domain"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/session"
	"github.com/deemkeen/inkblock/ui/common"
	"github.com/deemkeen/inkblock/ui/compose"
	"github.com/deemkeen/inkblock/ui/feed"
	"github.com/deemkeen/inkblock/ui/header"
	"github.com/deemkeen/inkblock/ui/profile"
	"github.com/deemkeen/inkblock/ui/userprofile"
	"github.com/deemkeen/inkblock/util"
)

const defaultNoticeSeconds = 3

var (
	modelStyle = lipgloss.NewStyle().
			Align(lipgloss.Top, lipgloss.Top).
			BorderStyle(lipgloss.HiddenBorder()).MarginLeft(1)
	focusedModelStyle = lipgloss.NewStyle().
				Align(lipgloss.Top, lipgloss.Top).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).MarginLeft(1)
	noticeStyle = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color(common.COLOR_GREEN))
	alertStyle  = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color(common.COLOR_RED))
)

// Sections reports which parts of the screen are visible.
type Sections struct {
	Posts       bool
	Compose     bool
	Profile     bool
	UserProfile bool
}

type loginState struct {
	pending bool
	seq     int
	url     string
	cancel  context.CancelFunc
}

type MainModel struct {
	width            int
	height           int
	app              *App
	state            common.SessionState
	headerModel      header.Model
	feedModel        feed.Model
	composeModel     compose.Model
	profileModel     profile.Model
	userProfileModel userprofile.Model
	notice           common.NoticeMsg
	noticeSeq        int
	login            loginState
}

type refreshFeedMsg struct{}

type restoredMsg struct {
	session domain.Session
}

type loginStartedMsg struct {
	seq     int
	attempt *session.LoginAttempt
	err     error
}

type loginFinishedMsg struct {
	seq     int
	session domain.Session
	err     error
}

type loggedOutMsg struct {
	session domain.Session
}

type clearNoticeMsg struct {
	seq int
}

func NewModel(app *App, width int, height int) MainModel {
	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	m := MainModel{
		width:  width,
		height: height,
		app:    app,
		state:  common.HomeView,
	}
	m.headerModel = header.Model{Width: width, Label: app.Session.LoginLabel(), Session: app.Session.Session()}
	m.feedModel = feed.New(app.Gateway, width, common.DefaultContentHeight(height))
	m.composeModel = compose.New(app.Gateway, width)
	m.profileModel = profile.New(app.Gateway)
	m.userProfileModel = userprofile.New(app.Gateway)
	return m
}

func (m MainModel) Init() tea.Cmd {
	manager := m.app.Session
	restore := func() tea.Msg {
		return restoredMsg{session: manager.Restore(context.Background())}
	}
	refresh := func() tea.Msg {
		return refreshFeedMsg{}
	}
	return tea.Batch(restore, refresh)
}

// VisibleSections reports exactly one of posts, profile or user profile as
// visible; compose is shown on top of the posts.
func (m MainModel) VisibleSections() Sections {
	switch m.state {
	case common.ComposeView:
		return Sections{Posts: true, Compose: true}
	case common.SelfProfileView:
		return Sections{Profile: true}
	case common.OtherProfileView:
		return Sections{UserProfile: true}
	default:
		return Sections{Posts: true}
	}
}

func (m MainModel) State() common.SessionState {
	return m.state
}

// LoginPending reports whether the client waits for the identity provider.
func (m MainModel) LoginPending() bool {
	return m.login.pending
}

// LoginURL is the authorize URL of the pending login, if any.
func (m MainModel) LoginURL() string {
	return m.login.url
}

func (m MainModel) Notice() common.NoticeMsg {
	return m.notice
}

func (m MainModel) noticeDuration() time.Duration {
	seconds := defaultNoticeSeconds
	if m.app.Conf != nil && m.app.Conf.Conf.NoticeSeconds > 0 {
		seconds = m.app.Conf.Conf.NoticeSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (m *MainModel) syncHeader(s domain.Session) {
	m.headerModel.Session = s
	m.headerModel.Label = m.app.Session.LoginLabel()
}

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.headerModel.Width = msg.Width
		m.feedModel.SetSize(msg.Width, common.DefaultContentHeight(msg.Height))
		m.composeModel.SetWidth(msg.Width)
		return m, nil

	case refreshFeedMsg:
		m.feedModel, cmd = m.feedModel.Refresh()
		return m, cmd

	case restoredMsg:
		m.syncHeader(msg.session)
		return m, nil

	case common.NoticeMsg:
		m.notice = msg
		m.noticeSeq++
		seq := m.noticeSeq
		return m, tea.Tick(m.noticeDuration(), func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		})

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = common.NoticeMsg{}
		}
		return m, nil

	case loginStartedMsg:
		if !m.login.pending || msg.seq != m.login.seq {
			if msg.attempt != nil {
				return m, abandon(msg.attempt)
			}
			return m, nil
		}
		if msg.err != nil {
			m.login = loginState{seq: m.login.seq}
			return m, common.ErrorNotice(msg.err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.login.url = msg.attempt.URL
		m.login.cancel = cancel
		attempt, seq := msg.attempt, msg.seq
		return m, func() tea.Msg {
			defer cancel()
			s, err := attempt.Wait(ctx)
			return loginFinishedMsg{seq: seq, session: s, err: err}
		}

	case loginFinishedMsg:
		if msg.seq != m.login.seq {
			return m, nil
		}
		m.login = loginState{seq: m.login.seq}
		m.syncHeader(msg.session)
		if msg.err != nil {
			return m, common.ErrorNotice(msg.err)
		}
		if msg.session.IsAuthenticated {
			return m, common.Notice(fmt.Sprintf("Logged in as %s", msg.session.Principal()))
		}
		return m, nil

	case loggedOutMsg:
		m.syncHeader(msg.session)
		if m.state == common.SelfProfileView {
			m.state = common.HomeView
		}
		return m, nil

	case common.ShowProfileMsg:
		m.state = common.OtherProfileView
		m.userProfileModel, cmd = m.userProfileModel.Load(msg.Principal)
		return m, cmd

	case common.PostCreatedMsg:
		if m.state == common.ComposeView {
			m.state = common.HomeView
		}
		m.feedModel, cmd = m.feedModel.Refresh()
		return m, cmd

	case tea.KeyMsg:
		if m.login.pending {
			switch msg.String() {
			case "ctrl+c":
				m.cancelLogin()
				return m, tea.Quit
			case "esc":
				m.cancelLogin()
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.state = common.HomeView
			return m, nil
		case "ctrl+l":
			return m.toggleLogin()
		case "ctrl+n":
			switch m.state {
			case common.HomeView:
				m.state = common.ComposeView
				m.composeModel, cmd = m.composeModel.Focus()
				return m, cmd
			case common.ComposeView:
				m.state = common.HomeView
			}
			return m, nil
		case "ctrl+p":
			if !m.app.Gateway.IsAuthenticated() {
				return m, common.ErrorNotice(domain.NewUnauthenticatedError(remote.MethodGetProfile, domain.LoginRequired))
			}
			if m.state == common.SelfProfileView {
				return m, nil
			}
			m.state = common.SelfProfileView
			m.profileModel, cmd = m.profileModel.Load()
			return m, cmd
		}
	}

	// Keys reach only the active view, everything else every view. Profile
	// loads are dropped unless their section is still on screen.
	if _, isKeyMsg := msg.(tea.KeyMsg); !isKeyMsg {
		m.headerModel, _ = m.headerModel.Update(msg)
		m.feedModel, cmd = m.feedModel.Update(msg)
		cmds = append(cmds, cmd)
		m.composeModel, cmd = m.composeModel.Update(msg)
		cmds = append(cmds, cmd)

		_, isProfileLoad := msg.(profile.LoadedMsg)
		if !isProfileLoad || m.state == common.SelfProfileView {
			m.profileModel, cmd = m.profileModel.Update(msg)
			cmds = append(cmds, cmd)
		}

		_, isUserProfileLoad := msg.(userprofile.LoadedMsg)
		if !isUserProfileLoad || m.state == common.OtherProfileView {
			m.userProfileModel, cmd = m.userProfileModel.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case common.HomeView:
			m.feedModel, cmd = m.feedModel.Update(msg)
		case common.ComposeView:
			m.composeModel, cmd = m.composeModel.Update(msg)
		case common.SelfProfileView:
			m.profileModel, cmd = m.profileModel.Update(msg)
		case common.OtherProfileView:
			m.userProfileModel, cmd = m.userProfileModel.Update(msg)
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m MainModel) toggleLogin() (MainModel, tea.Cmd) {
	manager := m.app.Session

	if manager.Session().IsAuthenticated {
		return m, func() tea.Msg {
			return loggedOutMsg{session: manager.Logout()}
		}
	}

	m.login.seq++
	m.login.pending = true
	m.login.url = ""
	seq := m.login.seq
	return m, func() tea.Msg {
		attempt, err := manager.StartLogin()
		return loginStartedMsg{seq: seq, attempt: attempt, err: err}
	}
}

func (m *MainModel) cancelLogin() {
	if m.login.cancel != nil {
		m.login.cancel()
	}
	log.Printf("UI: login attempt %d cancelled", m.login.seq)
	m.login = loginState{seq: m.login.seq + 1}
}

// abandon releases a login that was started after the user gave up on it.
func abandon(attempt *session.LoginAttempt) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, _ = attempt.Wait(ctx)
		return nil
	}
}

func (m MainModel) View() string {
	var s string

	s += m.headerModel.View() + "\n"

	if m.notice.Text != "" {
		style := noticeStyle
		if m.notice.IsError {
			style = alertStyle
		}
		s += style.Render(m.notice.Text) + "\n"
	} else {
		s += "\n"
	}

	if m.login.pending {
		s += m.loginView()
		return s
	}

	availableHeight := common.DefaultContentHeight(m.height)
	sections := m.VisibleSections()

	switch {
	case sections.Compose:
		leftWidth := m.width / 3
		rightWidth := m.width - leftWidth - 6
		composeStr := lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(leftWidth).
			MaxWidth(leftWidth).
			Render(m.composeModel.View())
		postsStr := lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(rightWidth).
			MaxWidth(rightWidth).
			Render(m.feedModel.View())
		s += lipgloss.JoinHorizontal(lipgloss.Top,
			focusedModelStyle.Render(composeStr),
			modelStyle.Render(postsStr))
	default:
		content := m.feedModel.View()
		if sections.Profile {
			content = m.profileModel.View()
		} else if sections.UserProfile {
			content = m.userProfileModel.View()
		}
		s += focusedModelStyle.Render(lipgloss.NewStyle().
			Height(availableHeight).
			MaxHeight(availableHeight).
			Width(m.width - 4).
			MaxWidth(m.width - 4).
			Render(content))
	}

	s += "\n" + common.HelpStyle.Render(m.helpText())
	return s
}

func (m MainModel) loginView() string {
	body := "Starting login..."
	if m.login.url != "" {
		body = lipgloss.JoinVertical(lipgloss.Left,
			"Open this link in your browser to log in:",
			"",
			util.TerminalLink(m.login.url, m.login.url),
			"",
			common.EmptyStyle.Render("Waiting for the identity provider..."),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		common.CaptionStyle.Render("login"),
		lipgloss.NewStyle().PaddingLeft(2).Width(m.width-4).Render(body),
		"",
		common.HelpStyle.Render("esc: cancel login • ctrl+c: exit"),
	)
}

func (m MainModel) helpText() string {
	switch m.state {
	case common.ComposeView:
		return "ctrl+s: post • tab: next field • ctrl+n/esc: close • ctrl+c: exit"
	case common.SelfProfileView, common.OtherProfileView:
		return "esc: back • ctrl+l: " + m.headerModel.Label + " • ctrl+c: exit"
	default:
		return "↑/↓: select • enter: author • r: refresh • ctrl+n: new post • ctrl+p: profile • ctrl+c: exit"
	}
}
