package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/elearn/internal/app"
	"github.com/wolfeidau/elearn/internal/config"
	"github.com/wolfeidau/elearn/internal/router"
)

// ErrReported is returned after the failure has already been shown to the
// user as a notification. main exits non-zero without printing it again.
var ErrReported = errors.New("command failed")

type Globals struct {
	Debug    bool
	Version  string
	Server   string
	StateDir string
	Config   string

	// Out receives command output, Err receives notifications. Both default
	// to the process streams.
	Out io.Writer
	Err io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Err != nil {
		return g.Err
	}
	return os.Stderr
}

// open builds the application positioned on route and restores the stored
// session.
func (g *Globals) open(ctx context.Context, route string) (*app.App, error) {
	cfg, err := config.Load(g.Config, g.StateDir)
	if err != nil {
		return nil, err
	}

	a, err := app.New(app.Options{
		Config:  cfg.WithAPIURL(g.Server),
		Debug:   g.Debug,
		Version: g.Version,
		Output:  g.stderr(),
		Route:   route,
	})
	if err != nil {
		return nil, err
	}

	a.Start(ctx)

	return a, nil
}

// requireLogin sends an anonymous user to the login page.
func requireLogin(a *app.App) error {
	if a.Session.IsAuthenticated() {
		return nil
	}

	a.Router.Navigate(router.Login)
	a.Notify.Warning("Please log in to continue. Run 'elearn login'.")

	return ErrReported
}

// reportf shows an error notification and returns ErrReported.
func reportf(a *app.App, format string, args ...any) error {
	a.Notify.Error(fmt.Sprintf(format, args...))
	return ErrReported
}
