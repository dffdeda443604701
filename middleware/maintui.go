package middleware

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/session"
	"github.com/deemkeen/inkblock/ui"
	"github.com/deemkeen/inkblock/util"
	"github.com/muesli/termenv"
)

// MainTui runs one client per ssh session. Sessions share the anonymous
// handle and the login provider, everything else is per session.
func MainTui(conf *util.AppConfig, store session.Store, provider session.Provider, anonymous *remote.Handle) wish.Middleware {
	teaHandler := func(s ssh.Session) *tea.Program {

		pty, _, active := s.Pty()
		if !active {
			wish.Println(s, "no active terminal, skipping")
			return nil
		}

		app := ui.NewApp(conf, Owner(s), store, provider, anonymous)
		m := ui.NewModel(app, pty.Window.Width, pty.Window.Height)
		return tea.NewProgram(m, tea.WithInput(s), tea.WithOutput(s), tea.WithAltScreen())
	}
	return bm.MiddlewareWithProgramHandler(teaHandler, termenv.ANSI256)
}
