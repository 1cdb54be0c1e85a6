package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/elearn/internal/apitest"
	"github.com/wolfeidau/elearn/internal/client"
	"github.com/wolfeidau/elearn/internal/models"
	"github.com/wolfeidau/elearn/internal/storage"
)

type testEnv struct {
	api     *apitest.Server
	globals *Globals
	out     *bytes.Buffer
	err     *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := apitest.New(t)
	api.AddUser("a@b.com", "password1", "A")
	api.AddCourse(models.Course{
		ID:          "go-101",
		Title:       "Go Fundamentals",
		Description: "Learn Go.",
		Instructor:  "Jane Doe",
		Duration:    240,
		Difficulty:  models.DifficultyBeginner,
		Modules: []models.Module{
			{Title: "Introduction", Duration: 30},
			{Title: "Types", Duration: 45},
		},
	})

	env := &testEnv{api: api, out: &bytes.Buffer{}, err: &bytes.Buffer{}}
	env.globals = &Globals{
		Server:   api.URL,
		StateDir: t.TempDir(),
		Out:      env.out,
		Err:      env.err,
	}
	return env
}

func (e *testEnv) reset() {
	e.out.Reset()
	e.err.Reset()
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	cmd := &LoginCmd{Email: "a@b.com", Password: "password1"}
	require.NoError(t, cmd.Run(context.Background(), e.globals))
	e.reset()
}

func (e *testEnv) storedToken(t *testing.T) string {
	t.Helper()
	fs, err := storage.NewFile(e.globals.StateDir)
	require.NoError(t, err)
	token, _, err := fs.Get(storage.KeyAuthToken)
	require.NoError(t, err)
	return token
}

func TestLoginCmd_Run(t *testing.T) {
	env := newTestEnv(t)

	cmd := &LoginCmd{Email: "a@b.com", Password: "password1"}
	err := cmd.Run(context.Background(), env.globals)
	require.NoError(t, err)

	assert.Contains(t, env.err.String(), "Welcome back, A!")
	assert.Equal(t, "t1", env.storedToken(t))
}

func TestLoginCmd_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	cmd := &LoginCmd{Email: "a@b.com", Password: "nope"}
	err := cmd.Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)

	assert.Contains(t, env.err.String(), "Invalid email or password")
	assert.NotContains(t, env.err.String(), "session has expired")
	assert.Empty(t, env.storedToken(t))
}

func TestSignupCmd_Run(t *testing.T) {
	env := newTestEnv(t)

	cmd := &SignupCmd{
		Email:           "new@b.com",
		Password:        "password1",
		ConfirmPassword: "password1",
		FullName:        "New User",
	}
	err := cmd.Run(context.Background(), env.globals)
	require.NoError(t, err)

	assert.Contains(t, env.err.String(), "Welcome, New User!")
	assert.NotEmpty(t, env.storedToken(t))
}

func TestSignupCmd_Duplicate(t *testing.T) {
	env := newTestEnv(t)

	cmd := &SignupCmd{
		Email:           "a@b.com",
		Password:        "password1",
		ConfirmPassword: "password1",
		FullName:        "A",
	}
	err := cmd.Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)

	assert.Contains(t, env.err.String(), "Email already registered")
}

func TestLogoutCmd_Run(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	cmd := &LogoutCmd{}
	require.NoError(t, cmd.Run(context.Background(), env.globals))
	assert.Contains(t, env.err.String(), "Logged out.")
	assert.Empty(t, env.storedToken(t))

	env.reset()
	require.NoError(t, cmd.Run(context.Background(), env.globals))
	assert.Contains(t, env.err.String(), "You are not logged in.")
}

func TestWhoamiCmd_Run(t *testing.T) {
	env := newTestEnv(t)

	cmd := &WhoamiCmd{}
	err := cmd.Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)
	assert.Contains(t, env.err.String(), "Not logged in.")

	env.login(t)
	env.api.SetPoints("a@b.com", 30)

	cmd.Refresh = true
	require.NoError(t, cmd.Run(context.Background(), env.globals))

	out := env.out.String()
	assert.Contains(t, out, "Name:")
	assert.Contains(t, out, "a@b.com")
	assert.Contains(t, out, "30")
	assert.Contains(t, out, client.TokenFingerprint("t1"))
}

func TestWhoamiCmd_RevokedSession(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.api.RevokeTokens()

	cmd := &WhoamiCmd{}
	err := cmd.Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)

	assert.Empty(t, env.storedToken(t))
}

func TestCoursesListCmd_Run(t *testing.T) {
	env := newTestEnv(t)

	cmd := &CoursesListCmd{}
	require.NoError(t, cmd.Run(context.Background(), env.globals))

	out := env.out.String()
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Go Fundamentals")
	assert.Contains(t, out, "4h 0m")
}

func TestCoursesShowCmd_Run(t *testing.T) {
	env := newTestEnv(t)

	cmd := &CoursesShowCmd{ID: "go-101"}
	require.NoError(t, cmd.Run(context.Background(), env.globals))

	out := env.out.String()
	assert.Contains(t, out, "Learn Go.")
	assert.Contains(t, out, "Introduction")
	assert.Contains(t, out, "45 min")

	env.reset()
	cmd.ID = "missing"
	err := cmd.Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)
	assert.Contains(t, env.err.String(), "Course not found")
}

func TestCoursesEnrollCmd_RequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	cmd := &CoursesEnrollCmd{ID: "go-101"}
	err := cmd.Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)

	assert.Contains(t, env.err.String(), "Please log in")
	assert.Zero(t, env.api.Hits("/api/courses/go-101/enroll"))
}

func TestCoursesFlow(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	ctx := context.Background()

	require.NoError(t, (&CoursesEnrollCmd{ID: "go-101"}).Run(ctx, env.globals))
	assert.Contains(t, env.err.String(), "✔")

	env.reset()
	err := (&CoursesEnrollCmd{ID: "go-101"}).Run(ctx, env.globals)
	require.ErrorIs(t, err, ErrReported)
	assert.Contains(t, env.err.String(), "Already enrolled in this course")

	env.reset()
	require.NoError(t, (&CoursesCompleteCmd{ID: "go-101", Module: 0}).Run(ctx, env.globals))
	assert.Contains(t, env.err.String(), "+10 points")

	env.reset()
	require.NoError(t, (&CoursesProgressCmd{ID: "go-101"}).Run(ctx, env.globals))
	assert.Contains(t, env.out.String(), "1/2")
	assert.Contains(t, env.out.String(), "50%")

	env.reset()
	require.NoError(t, (&CoursesShowCmd{ID: "go-101"}).Run(ctx, env.globals))
	assert.Contains(t, env.out.String(), "Progress:")

	env.reset()
	err = (&CoursesCompleteCmd{ID: "go-101", Module: -1}).Run(ctx, env.globals)
	require.ErrorIs(t, err, ErrReported)
}

func TestCoursesProgressCmd_SessionRevoked(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.api.RevokeTokens()

	err := (&CoursesProgressCmd{ID: "go-101"}).Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)

	assert.Contains(t, env.err.String(), "Please log in")
	assert.Empty(t, env.storedToken(t))
	assert.Zero(t, env.api.Hits("/api/courses/go-101/progress"))
}

func TestHealthCmd_Run(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, (&HealthCmd{}).Run(context.Background(), env.globals))
	assert.Contains(t, env.out.String(), "healthy")
	assert.Equal(t, 1, env.api.Hits("/health"))
}

func TestHealthCmd_Unreachable(t *testing.T) {
	env := newTestEnv(t)
	env.globals.Server = "http://127.0.0.1:1"

	err := (&HealthCmd{}).Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)
	assert.Contains(t, env.err.String(), "unreachable")
}

func TestCurrentUserServerError(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.api.FailCurrentUser(http.StatusInternalServerError)

	// A server error during restore ends the session
	err := (&WhoamiCmd{}).Run(context.Background(), env.globals)
	require.ErrorIs(t, err, ErrReported)
	assert.Empty(t, env.storedToken(t))
}

func TestCoursesShowCmd_NotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	require.NoError(t, (&CoursesShowCmd{ID: "go-101"}).Run(context.Background(), env.globals))

	assert.Contains(t, env.out.String(), "Introduction")
	assert.NotContains(t, env.out.String(), "Progress:")
	assert.Equal(t, 1, env.api.Hits("/api/courses/go-101/progress"))
}

func TestNotEnrolled(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{status: http.StatusBadRequest, want: true},
		{status: http.StatusForbidden, want: true},
		{status: http.StatusNotFound, want: true},
		{status: http.StatusInternalServerError, want: false},
		{status: http.StatusUnauthorized, want: false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := &client.APIError{Method: http.MethodGet, Path: "/api/courses/go-101/progress", StatusCode: tt.status}
			assert.Equal(t, tt.want, notEnrolled(err))
		})
	}

	assert.False(t, notEnrolled(errors.New("connection refused")))
}
