package ui

import (
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/session"
	"github.com/deemkeen/inkblock/util"
)

// App bundles what one client (local terminal or ssh session) talks to.
type App struct {
	Conf    *util.AppConfig
	Session *session.Manager
	Gateway *remote.Gateway
}

// NewApp gives owner its own gateway and session on top of the shared
// anonymous handle.
func NewApp(conf *util.AppConfig, owner string, store session.Store, provider session.Provider, anonymous *remote.Handle) *App {
	gateway := remote.NewGateway(anonymous)
	connect := session.AgentConnector(conf.Conf.BackendUrl, conf.Conf.CanisterId)
	return &App{
		Conf:    conf,
		Session: session.NewManager(owner, store, provider, gateway, connect),
		Gateway: gateway,
	}
}
