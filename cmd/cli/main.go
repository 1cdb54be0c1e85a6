package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/cmd/cli/internal/commands"
	"github.com/wolfeidau/elearn/internal/logger"
	"github.com/wolfeidau/elearn/internal/telemetry"
)

var (
	version = "dev"
	cli     struct {
		Login    commands.LoginCmd   `cmd:"" help:"Log in with email and password"`
		Signup   commands.SignupCmd  `cmd:"" help:"Create an account"`
		Logout   commands.LogoutCmd  `cmd:"" help:"Log out"`
		Whoami   commands.WhoamiCmd  `cmd:"" help:"Show the logged in user"`
		Courses  commands.CoursesCmd `cmd:"" help:"Browse courses and track progress"`
		Health   commands.HealthCmd  `cmd:"" help:"Check the API is reachable"`
		Debug    bool                `help:"Enable debug mode."`
		Server   string              `help:"API base URL (default http://localhost:8000)" env:"ELEARN_API_URL"`
		StateDir string              `help:"Directory for config and session (default ~/.elearn)" env:"ELEARN_STATE_DIR" type:"path"`
		Config   string              `help:"Config file (default <state-dir>/config.yaml)" type:"path"`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("elearn"),
		kong.Description("E-learning platform client."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	log.Logger = logger.Setup(cli.Debug)

	shutdown, err := telemetry.Init(ctx, "elearn-cli", version)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
		shutdown = func(context.Context) error { return nil }
	}

	err = cmd.Run(&commands.Globals{
		Debug:    cli.Debug,
		Version:  version,
		Server:   cli.Server,
		StateDir: cli.StateDir,
		Config:   cli.Config,
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if serr := shutdown(shutdownCtx); serr != nil {
		log.Error().Err(serr).Msg("Failed to shutdown telemetry")
	}
	cancel()

	if errors.Is(err, commands.ErrReported) {
		os.Exit(1)
	}
	cmd.FatalIfErrorf(err)
}
