package app

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/elearn/internal/apitest"
	"github.com/wolfeidau/elearn/internal/config"
	"github.com/wolfeidau/elearn/internal/models"
	"github.com/wolfeidau/elearn/internal/router"
	"github.com/wolfeidau/elearn/internal/storage"
)

// syncBuffer guards a bytes.Buffer written from notification callbacks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T, api *apitest.Server, route string) (*App, *syncBuffer) {
	t.Helper()

	cfg := config.Default().WithAPIURL(api.URL)
	cfg.StateDir = t.TempDir()

	out := &syncBuffer{}
	a, err := New(Options{Config: cfg, Output: out, Route: route})
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return a, out
}

func TestNew_FileStorage(t *testing.T) {
	api := apitest.New(t)
	a, _ := newTestApp(t, api, "")

	fs, ok := a.Storage.(*storage.File)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(a.Config.StateDir, "session.json"), fs.Path())
	assert.Equal(t, router.Home, a.Router.Current())
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Options{
		Config:  config.Default().WithAPIURL("ftp://nope"),
		Storage: storage.NewMemory(),
	})
	assert.Error(t, err)
}

func TestSessionInvalidated(t *testing.T) {
	t.Run("401 tears down the session and redirects to login", func(t *testing.T) {
		api := apitest.New(t)
		api.AddUser("a@b.com", "password1", "A")
		api.AddCourse(models.Course{ID: "go-101", Modules: []models.Module{{Title: "Intro"}}})

		a, out := newTestApp(t, api, router.Courses)
		a.Start(context.Background())

		require.NoError(t, a.Session.Login(context.Background(), "a@b.com", "password1"))
		require.True(t, a.Session.IsAuthenticated())

		api.RevokeTokens()

		_, err := a.Client.Enroll(context.Background(), "go-101")
		require.Error(t, err)

		assert.False(t, a.Session.IsAuthenticated())
		assert.Equal(t, router.Login, a.Router.Current())
		assert.Contains(t, out.String(), sessionExpiredMessage)

		_, ok, err := a.Storage.Get(storage.KeyAuthToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("already on login does not redirect again", func(t *testing.T) {
		api := apitest.New(t)
		api.AddUser("a@b.com", "password1", "A")

		a, out := newTestApp(t, api, router.Login)
		a.Start(context.Background())

		navigations := 0
		a.Router.OnNavigate(func(string, string) { navigations++ })

		err := a.Session.Login(context.Background(), "a@b.com", "wrong")
		require.Error(t, err)

		assert.Equal(t, "Invalid email or password", a.Session.LastError())
		assert.Equal(t, router.Login, a.Router.Current())
		assert.Zero(t, navigations)
		assert.NotContains(t, out.String(), sessionExpiredMessage)
	})
}

func TestStart_RestoresPersistedSession(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("a@b.com", "password1", "A")

	a, _ := newTestApp(t, api, router.Courses)
	a.Start(context.Background())
	require.NoError(t, a.Session.Login(context.Background(), "a@b.com", "password1"))

	// A second process sharing the state dir sees the same session
	cfg := a.Config
	b, err := New(Options{Config: cfg, Output: &syncBuffer{}})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	assert.True(t, b.Session.Loading())
	b.Start(context.Background())
	assert.False(t, b.Session.Loading())

	require.True(t, b.Session.IsAuthenticated())
	assert.Equal(t, "A", b.Session.User().FullName)
	assert.Equal(t, 1, api.Hits("/api/auth/me"))
}
