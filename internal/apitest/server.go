// Package apitest runs an in-process fake of the e-learning API for tests.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfeidau/elearn/internal/models"
)

// PointsPerModule is awarded for each completed module.
const PointsPerModule = 10

type account struct {
	user     models.User
	password string
}

// Server is a fake API backed by in-memory state. Tokens are issued in
// sequence as "t1", "t2", ...
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	accounts    map[string]*account // by lower-cased email
	tokens      map[string]string   // token -> email
	courses     []models.Course
	enrollments map[string]map[string]bool                // email -> course -> enrolled
	completions map[string]map[string][]models.Completion // email -> course -> completions
	nextID      int
	nextToken   int
	meStatus    int
	hits        map[string]int
	authHeaders []string
}

// New starts a fake API server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		accounts:    make(map[string]*account),
		tokens:      make(map[string]string),
		enrollments: make(map[string]map[string]bool),
		completions: make(map[string]map[string][]models.Completion),
		hits:        make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/health", s.health)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", s.signup)
		r.Post("/login", s.login)
		r.With(s.requireAuth).Get("/me", s.me)
	})
	r.Route("/api/courses", func(r chi.Router) {
		r.Get("/", s.listCourses)
		r.Get("/{courseID}", s.getCourse)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/{courseID}/enroll", s.enroll)
			r.Post("/{courseID}/modules/{idx}/complete", s.complete)
			r.Get("/{courseID}/progress", s.progress)
		})
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)

	return s
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password, fullName string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, fullName)
}

func (s *Server) addUserLocked(email, password, fullName string) models.User {
	s.nextID++
	u := models.User{
		ID:       models.UserID(strconv.Itoa(s.nextID)),
		Email:    strings.ToLower(email),
		FullName: fullName,
	}
	s.accounts[u.Email] = &account{user: u, password: password}
	return u
}

// AddCourse adds a course to the catalog.
func (s *Server) AddCourse(c models.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = append(s.courses, c)
}

// IssueToken creates a valid token for an existing account.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(strings.ToLower(email))
}

func (s *Server) issueTokenLocked(email string) string {
	s.nextToken++
	token := "t" + strconv.Itoa(s.nextToken)
	s.tokens[token] = email
	return token
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// FailCurrentUser makes GET /api/auth/me answer with status until reset with 0.
func (s *Server) FailCurrentUser(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meStatus = status
}

// SetPoints overwrites an account's points.
func (s *Server) SetPoints(email string, points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[strings.ToLower(email)]; ok {
		acc.user.Points = points
	}
}

// Hits returns how many requests were made to path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// AuthHeaders returns the Authorization header of every request, in order.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		s.mu.Lock()
		email, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(contextWithEmail(r, email)))
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.Health{Status: "healthy"})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var issues []map[string]string
	if len(req.Password) < 8 {
		issues = append(issues, map[string]string{"msg": "String should have at least 8 characters"})
	}
	if req.ConfirmPassword != req.Password {
		issues = append(issues, map[string]string{"msg": "Value error, Passwords do not match"})
	}
	if len(issues) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeDetail(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(req.Email)
	if _, exists := s.accounts[email]; exists {
		writeDetail(w, http.StatusConflict, "Email already registered")
		return
	}

	u := s.addUserLocked(email, req.Password, req.FullName)
	writeJSON(w, http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Account created successfully",
		Token:   s.issueTokenLocked(email),
		User:    &u,
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(req.Email)
	acc, ok := s.accounts[email]
	if !ok || acc.password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	u := acc.user
	writeJSON(w, http.StatusOK, models.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   s.issueTokenLocked(email),
		User:    &u,
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.meStatus
	acc := s.accounts[emailFromContext(r)]
	var u models.User
	if acc != nil {
		u = acc.user
	}
	s.mu.Unlock()

	if status != 0 {
		writeDetail(w, status, http.StatusText(status))
		return
	}
	if acc == nil {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (s *Server) listCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	courses := append([]models.Course{}, s.courses...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.CourseList{Courses: courses})
}

func (s *Server) findCourseLocked(id string) (models.Course, bool) {
	for _, c := range s.courses {
		if c.ID == id {
			return c, true
		}
	}
	return models.Course{}, false
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	course, ok := s.findCourseLocked(chi.URLParam(r, "courseID"))
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Course not found")
		return
	}
	writeJSON(w, http.StatusOK, models.CourseDetail{Course: course})
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	email := emailFromContext(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findCourseLocked(courseID); !ok {
		writeDetail(w, http.StatusNotFound, "Course not found")
		return
	}
	if s.enrollments[email][courseID] {
		writeDetail(w, http.StatusBadRequest, "Already enrolled in this course")
		return
	}
	if s.enrollments[email] == nil {
		s.enrollments[email] = make(map[string]bool)
	}
	s.enrollments[email][courseID] = true

	writeJSON(w, http.StatusOK, models.EnrollmentResult{
		Success: true,
		Message: "Successfully enrolled",
		Enrollment: &models.Enrollment{
			ID:         courseID + ":" + email,
			UserID:     s.accounts[email].user.ID,
			CourseID:   courseID,
			EnrolledAt: time.Now().UTC(),
		},
	})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	email := emailFromContext(r)

	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid module index")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.findCourseLocked(courseID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Course not found")
		return
	}
	if !s.enrollments[email][courseID] {
		writeDetail(w, http.StatusBadRequest, "Not enrolled in this course")
		return
	}
	if idx < 0 || idx >= len(course.Modules) {
		writeDetail(w, http.StatusBadRequest, "Invalid module index")
		return
	}
	for _, c := range s.completions[email][courseID] {
		if c.ModuleIndex == idx {
			writeDetail(w, http.StatusBadRequest, "Module already completed")
			return
		}
	}

	if s.completions[email] == nil {
		s.completions[email] = make(map[string][]models.Completion)
	}
	c := models.Completion{CourseID: courseID, ModuleIndex: idx, CompletedAt: time.Now().UTC()}
	s.completions[email][courseID] = append(s.completions[email][courseID], c)
	s.accounts[email].user.Points += PointsPerModule

	writeJSON(w, http.StatusOK, models.CompletionResult{
		Success:      true,
		Message:      "Module completed",
		PointsEarned: PointsPerModule,
		Completion:   &c,
	})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	email := emailFromContext(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.findCourseLocked(courseID)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Course not found")
		return
	}

	completions := append([]models.Completion{}, s.completions[email][courseID]...)
	total := len(course.Modules)
	pct := 0.0
	if total > 0 {
		pct = float64(len(completions)) * 100 / float64(total)
	}

	writeJSON(w, http.StatusOK, models.Progress{
		Completions:        completions,
		CompletedModules:   len(completions),
		TotalModules:       total,
		ProgressPercentage: pct,
		IsFullyCompleted:   total > 0 && len(completions) == total,
	})
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contextWithEmail(r *http.Request, email string) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, email)
}

func emailFromContext(r *http.Request) string {
	email, _ := r.Context().Value(ctxKey{}).(string)
	return email
}
