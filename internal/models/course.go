package models

import (
	"fmt"
	"time"
)

// Difficulty levels used by the course catalog.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Module is one unit of a course. Modules are addressed by their index.
type Module struct {
	Title    string `json:"title"`
	Duration int    `json:"duration,omitempty"` // minutes
}

// Course is a catalog entry.
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Instructor  string   `json:"instructor"`
	Duration    int      `json:"duration"` // minutes
	Difficulty  string   `json:"difficulty"`
	Thumbnail   *string  `json:"thumbnail,omitempty"`
	Modules     []Module `json:"modules,omitempty"`
}

// FormatDuration renders the course duration as "4h 0m".
func (c *Course) FormatDuration() string {
	return fmt.Sprintf("%dh %dm", c.Duration/60, c.Duration%60)
}

// CourseList is the body of GET /api/courses.
type CourseList struct {
	Courses []Course `json:"courses"`
}

// CourseDetail is the body of GET /api/courses/:id.
type CourseDetail struct {
	Course Course `json:"course"`
}

// Enrollment records a user joining a course.
type Enrollment struct {
	ID         string    `json:"id"`
	UserID     UserID    `json:"userId"`
	CourseID   string    `json:"courseId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// EnrollmentResult is the body of POST /api/courses/:id/enroll.
type EnrollmentResult struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Enrollment *Enrollment `json:"enrollment,omitempty"`
}

// Completion records a finished module.
type Completion struct {
	ID          string    `json:"id,omitempty"`
	CourseID    string    `json:"courseId"`
	ModuleIndex int       `json:"moduleIndex"`
	CompletedAt time.Time `json:"completedAt"`
}

// CompletionResult is the body of POST /api/courses/:id/modules/:idx/complete.
type CompletionResult struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message,omitempty"`
	PointsEarned int         `json:"pointsEarned,omitempty"`
	Completion   *Completion `json:"completion,omitempty"`
}

// Progress is the body of GET /api/courses/:id/progress.
type Progress struct {
	Completions        []Completion `json:"completions"`
	CompletedModules   int          `json:"completedModules"`
	TotalModules       int          `json:"totalModules"`
	ProgressPercentage float64      `json:"progressPercentage"`
	IsFullyCompleted   bool         `json:"isFullyCompleted"`
}

// IsModuleCompleted reports whether the module at idx has a completion.
func (p *Progress) IsModuleCompleted(idx int) bool {
	for _, c := range p.Completions {
		if c.ModuleIndex == idx {
			return true
		}
	}
	return false
}
