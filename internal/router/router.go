// Package router tracks which page the user is on.
package router

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Routes known to the application.
const (
	Home    = "/"
	Login   = "/login"
	Signup  = "/signup"
	Courses = "/courses"
)

// Router holds the current route and notifies a hook on every change.
type Router struct {
	mu         sync.Mutex
	current    string
	onNavigate func(from, to string)
}

// New creates a router positioned at start.
func New(start string) *Router {
	if start == "" {
		start = Home
	}
	return &Router{current: start}
}

// OnNavigate registers fn to run after each route change. It replaces any
// earlier hook.
func (r *Router) OnNavigate(fn func(from, to string)) {
	r.mu.Lock()
	r.onNavigate = fn
	r.mu.Unlock()
}

// Current returns the current route.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate moves to path. It does nothing and returns false when path is
// already the current route, which keeps repeated redirects to the login page
// from looping.
func (r *Router) Navigate(path string) bool {
	r.mu.Lock()
	if path == "" || path == r.current {
		r.mu.Unlock()
		return false
	}
	from := r.current
	r.current = path
	hook := r.onNavigate
	r.mu.Unlock()

	log.Debug().Str("from", from).Str("to", path).Msg("navigate")

	if hook != nil {
		hook(from, path)
	}
	return true
}
