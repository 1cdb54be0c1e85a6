package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/wolfeidau/elearn/internal/client"
	"github.com/wolfeidau/elearn/internal/models"
	"github.com/wolfeidau/elearn/internal/router"
)

// LoginCmd signs in with email and password.
type LoginCmd struct {
	Email    string `help:"Account email" required:""`
	Password string `help:"Account password" required:"" env:"ELEARN_PASSWORD"`
}

func (c *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Login)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Session.Login(ctx, c.Email, c.Password); err != nil {
		return reportf(a, "%s", a.Session.LastError())
	}

	a.Router.Navigate(router.Courses)
	a.Notify.Success(fmt.Sprintf("Welcome back, %s!", a.Session.User().DisplayName()))

	return nil
}

// SignupCmd registers an account and signs in with it.
type SignupCmd struct {
	Email           string `help:"Account email" required:""`
	Password        string `help:"Password, at least 8 characters" required:"" env:"ELEARN_PASSWORD"`
	ConfirmPassword string `help:"Repeat the password" required:""`
	FullName        string `help:"Your full name" required:""`
}

func (c *SignupCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Signup)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.Session.Signup(ctx, models.SignupRequest{
		Email:           c.Email,
		Password:        c.Password,
		FullName:        c.FullName,
		ConfirmPassword: c.ConfirmPassword,
	})
	if err != nil {
		return reportf(a, "%s", a.Session.LastError())
	}

	a.Router.Navigate(router.Courses)
	a.Notify.Success(fmt.Sprintf("Account created. Welcome, %s!", a.Session.User().DisplayName()))

	return nil
}

// LogoutCmd ends the stored session.
type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Home)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Session.IsAuthenticated() {
		a.Notify.Info("You are not logged in.")
		return nil
	}

	a.Session.Logout()
	a.Router.Navigate(router.Login)
	a.Notify.Success("Logged out.")

	return nil
}

// WhoamiCmd shows the signed in user.
type WhoamiCmd struct {
	Refresh bool `help:"Fetch the profile from the server first"`
}

func (c *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Home)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Session.IsAuthenticated() {
		a.Notify.Info("Not logged in. Run 'elearn login'.")
		return ErrReported
	}

	if c.Refresh && !a.Session.RefreshUser(ctx) {
		a.Notify.Warning("Could not refresh your profile, showing saved details.")
	}

	snap := a.Session.Snapshot()
	if !snap.Authenticated() {
		return ErrReported
	}

	w := tabwriter.NewWriter(globals.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", snap.User.DisplayName())
	fmt.Fprintf(w, "Email:\t%s\n", snap.User.Email)
	fmt.Fprintf(w, "User ID:\t%s\n", snap.User.ID)
	fmt.Fprintf(w, "Points:\t%d\n", snap.User.Points)
	fmt.Fprintf(w, "Token:\t%s\n", client.TokenFingerprint(snap.Token))
	fmt.Fprintf(w, "Server:\t%s\n", a.Client.BaseURL())

	return w.Flush()
}

// HealthCmd checks that the API answers.
type HealthCmd struct{}

func (c *HealthCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Home)
	if err != nil {
		return err
	}
	defer a.Close()

	health, err := a.Client.Health(ctx)
	if err != nil {
		return reportf(a, "API at %s is unreachable: %v", a.Client.BaseURL(), err)
	}

	fmt.Fprintf(globals.stdout(), "%s: %s\n", a.Client.BaseURL(), health.Status)
	return nil
}
