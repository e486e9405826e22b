// Package cli is the interactive shell of the SmartStudy client. It
// renders the active screen, forwards user input to the auth machine or
// the study service, and owns the process lifecycle.
package cli

import (
	"bufio"
	"context"
	"os"
	"sync"
	"time"

	"github.com/smartstudy/studycli/internal/client/api"
	"github.com/smartstudy/studycli/internal/client/auth"
	"github.com/smartstudy/studycli/internal/client/config"
	"github.com/smartstudy/studycli/internal/client/models"
	"github.com/smartstudy/studycli/internal/client/services"
	"github.com/smartstudy/studycli/internal/client/session"
	"github.com/smartstudy/studycli/internal/logging"
)

// App wires the client together: config, API client, session store,
// auth machine and study service, plus the interactive reader.
type App struct {
	config   *config.Config
	log      logging.Logger
	api      api.Client
	store    *session.Store
	resolver *session.Resolver
	machine  *auth.Machine
	study    services.StudyService
	reader   *bufio.Reader

	mu          sync.Mutex
	session     *models.Session
	activeTopic int
	theme       string
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	store, err := session.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	client := api.NewHTTPClient(cfg.Server.BaseURL, cfg.Server.Timeout, log)

	return &App{
		config:   cfg,
		log:      log,
		api:      client,
		store:    store,
		resolver: session.NewResolver(client, store, log),
		machine:  auth.NewMachine(client, store, log),
		study:    services.NewStudyService(client),
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Run is the application loop: restore a session if one is persisted,
// otherwise drive the auth flow, then hand over to the authenticated
// shell. Logging out returns to the auth flow.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	a.theme = a.store.Theme(ctx)

	sess, err := a.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	a.setSession(sess)

	// An emailed deep link applies only to the very first auth flow.
	launchLink := a.config.LaunchLink

	for {
		if a.currentSession() == nil {
			sess, ok := a.authFlow(ctx, launchLink)
			launchLink = ""
			if !ok {
				return nil
			}
			a.setSession(sess)
		}

		if done := a.root(ctx); done {
			return nil
		}
	}
}

func (a *App) currentSession() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) setSession(s *models.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
	a.activeTopic = 0
}

func (a *App) credential() models.Credential {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return models.Credential{}
	}
	return a.session.Credential()
}

func (a *App) setActiveTopic(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.activeTopic = id
}

func (a *App) currentTopic() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeTopic
}

// StartActivityWatcher periodically reports study time for the topic the
// user is currently on. Topicless idling reports nothing.
func (a *App) StartActivityWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			topic := a.currentTopic()
			if topic == 0 || a.currentSession() == nil {
				continue
			}
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.study.RecordStudyTime(pingCtx, a.credential(), topic, int(interval.Seconds()))
			cancel()
			if err != nil {
				a.log.Debug(ctx, "study time ping failed", "topic", topic, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
