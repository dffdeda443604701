package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/logging"
	"github.com/deemkeen/inkblock/db"
	"github.com/deemkeen/inkblock/middleware"
	"github.com/deemkeen/inkblock/remote"
	"github.com/deemkeen/inkblock/session"
	"github.com/deemkeen/inkblock/ui"
	"github.com/deemkeen/inkblock/util"
	"github.com/deemkeen/inkblock/web"
	"github.com/gin-gonic/gin"
)

// localOwner keys the identity of the terminal inkblock was started in.
const localOwner = "local"

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	db.SetFile(conf.Conf.DbFile)
	database := db.GetDB()
	if purged, err := database.PurgeExpiredIdentities(time.Now()); err != nil {
		log.Printf("Warning: could not purge expired identities: %v", err)
	} else if purged > 0 {
		log.Printf("Purged %d expired identities", purged)
	}

	agent, err := remote.NewAgent(conf.Conf.BackendUrl, conf.Conf.CanisterId, nil)
	if err != nil {
		log.Fatalln(err)
	}
	anonymous := remote.NewHandle(agent)

	broker := session.NewBroker()
	provider := session.NewBrowserProvider(conf.CallbackURL(), broker)

	gin.SetMode(gin.ReleaseMode)

	if conf.Conf.Serve {
		s, err := wish.NewServer(
			wish.WithAddress(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.SshPort)),
			wish.WithHostKeyPath(util.ResolveFilePathWithSubdir(".ssh", "hostkey")),
			wish.WithPublicKeyAuth(publicKeyHandler),
			wish.WithMiddleware(
				middleware.MainTui(conf, database, provider, anonymous),
				middleware.AuthMiddleware(),
				logging.Middleware(), // last middleware executed first
			),
		)
		if err != nil {
			log.Fatalln(err)
		}

		startServing(s, conf, anonymous, broker)
		return
	}

	runLocal(conf, database, provider, anonymous, broker)
}

// runLocal drives one client in this terminal. Logs go to a file so they
// don't tear the screen.
func runLocal(conf *util.AppConfig, store session.Store, provider session.Provider, anonymous *remote.Handle, broker *session.Broker) {
	f, err := tea.LogToFile(util.ResolveFilePath(conf.Conf.LogFile), util.Name)
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()
	gin.DefaultWriter = log.Writer()
	gin.DefaultErrorWriter = log.Writer()

	go func() {
		if err := web.Router(conf, remote.NewGateway(anonymous), broker); err != nil {
			log.Printf("Web: callback server stopped, login is unavailable: %v", err)
		}
	}()

	app := ui.NewApp(conf, localOwner, store, provider, anonymous)
	p := tea.NewProgram(ui.NewModel(app, 0, 0), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalln(err)
	}
}

func startServing(s *ssh.Server, conf *util.AppConfig, anonymous *remote.Handle, broker *session.Broker) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Starting SSH server on %s:%d", conf.Conf.Host, conf.Conf.SshPort)
	go func() {
		if err := s.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			log.Fatalln(err)
		}
	}()

	go func() {
		if err := web.Router(conf, remote.NewGateway(anonymous), broker); err != nil {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping SSH server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := s.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
}

func publicKeyHandler(ssh.Context, ssh.PublicKey) bool {
	return true
}
