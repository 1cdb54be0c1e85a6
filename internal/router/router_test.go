package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter(t *testing.T) {
	t.Run("starts at home by default", func(t *testing.T) {
		assert.Equal(t, Home, New("").Current())
	})

	t.Run("navigates and reports the move", func(t *testing.T) {
		r := New(Courses)

		var moves [][2]string
		r.OnNavigate(func(from, to string) {
			moves = append(moves, [2]string{from, to})
		})

		assert.True(t, r.Navigate(Login))
		assert.Equal(t, Login, r.Current())
		assert.Equal(t, [][2]string{{Courses, Login}}, moves)
	})

	t.Run("navigating to the current route is a no-op", func(t *testing.T) {
		r := New(Login)

		calls := 0
		r.OnNavigate(func(string, string) { calls++ })

		assert.False(t, r.Navigate(Login))
		assert.False(t, r.Navigate(Login))
		assert.Zero(t, calls)
	})

	t.Run("empty path is ignored", func(t *testing.T) {
		r := New(Courses)
		assert.False(t, r.Navigate(""))
		assert.Equal(t, Courses, r.Current())
	})
}
