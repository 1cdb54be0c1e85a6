// Package app builds the application context shared by every command: one
// storage, one API client, one session store, one notifier and one router.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/internal/client"
	"github.com/wolfeidau/elearn/internal/config"
	"github.com/wolfeidau/elearn/internal/notify"
	"github.com/wolfeidau/elearn/internal/router"
	"github.com/wolfeidau/elearn/internal/session"
	"github.com/wolfeidau/elearn/internal/storage"
)

const sessionExpiredMessage = "Your session has expired. Please log in again."

// Options controls how the application is assembled. Zero values select the
// production defaults.
type Options struct {
	Config  config.Config
	Debug   bool
	Version string

	// Storage defaults to the session file in Config.StateDir.
	Storage storage.Storage

	// Output receives notifications, defaults to os.Stderr.
	Output io.Writer

	// Transport replaces the base HTTP transport.
	Transport http.RoundTripper

	// Route is the page the command starts on.
	Route string
}

// App is the application context.
type App struct {
	Config  config.Config
	Storage storage.Storage
	Client  *client.Client
	Session *session.Store
	Notify  *notify.Dispatcher
	Router  *router.Router
}

// New wires the application. The API client's session-invalidated callback
// tears down the session store and sends the user to the login page.
func New(opts Options) (*App, error) {
	store := opts.Storage
	if store == nil {
		fs, err := storage.NewFile(opts.Config.StateDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session storage: %w", err)
		}
		store = fs
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	a := &App{
		Config:  opts.Config,
		Storage: store,
		Notify:  notify.New(notify.NewWriterSink(out)),
		Router:  router.New(opts.Route),
	}

	userAgent := "elearn"
	if opts.Version != "" {
		userAgent += "/" + opts.Version
	}

	clientOpts := []client.Option{
		client.WithSessionInvalidated(a.sessionInvalidated),
		client.WithLogger(log.Logger),
	}
	if opts.Transport != nil {
		clientOpts = append(clientOpts, client.WithTransport(opts.Transport))
	}

	c, err := client.New(opts.Config.Client(opts.Debug, userAgent), store, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	a.Client = c
	a.Session = session.New(c, store)

	return a, nil
}

func (a *App) sessionInvalidated(context.Context) {
	a.Session.Invalidate()

	if a.Router.Navigate(router.Login) {
		a.Notify.Warning(sessionExpiredMessage)
	}
}

// Start restores the persisted session. Commands call it before reading the
// session.
func (a *App) Start(ctx context.Context) {
	a.Session.Restore(ctx)
}

// Close drops pending notifications and their timers.
func (a *App) Close() {
	a.Notify.ClearAll()
}
