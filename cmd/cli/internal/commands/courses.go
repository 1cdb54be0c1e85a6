package commands

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/internal/client"
	"github.com/wolfeidau/elearn/internal/models"
	"github.com/wolfeidau/elearn/internal/router"
)

// CoursesCmd browses the catalog and records progress.
type CoursesCmd struct {
	List     CoursesListCmd     `cmd:"" default:"1" help:"List all courses"`
	Show     CoursesShowCmd     `cmd:"" help:"Show course details"`
	Enroll   CoursesEnrollCmd   `cmd:"" help:"Enroll in a course"`
	Complete CoursesCompleteCmd `cmd:"" help:"Mark a module as completed"`
	Progress CoursesProgressCmd `cmd:"" help:"Show your progress in a course"`
}

// CoursesListCmd lists the catalog.
type CoursesListCmd struct{}

func (c *CoursesListCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Courses)
	if err != nil {
		return err
	}
	defer a.Close()

	courses, err := a.Client.ListCourses(ctx)
	if err != nil {
		return reportf(a, "Failed to load courses")
	}

	if len(courses) == 0 {
		fmt.Fprintln(globals.stdout(), "No courses available.")
		return nil
	}

	w := tabwriter.NewWriter(globals.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tINSTRUCTOR\tDIFFICULTY\tDURATION\tMODULES")

	for _, course := range courses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			course.ID,
			truncate(course.Title, 40),
			course.Instructor,
			course.Difficulty,
			course.FormatDuration(),
			len(course.Modules),
		)
	}

	return w.Flush()
}

// CoursesShowCmd prints one course with its modules. When logged in, the
// modules are marked with their completion state.
type CoursesShowCmd struct {
	ID string `arg:"" help:"Course ID"`
}

func (c *CoursesShowCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Courses+"/"+c.ID)
	if err != nil {
		return err
	}
	defer a.Close()

	course, err := a.Client.GetCourse(ctx, c.ID)
	if err != nil {
		if client.IsNotFound(err) {
			return reportf(a, "Course not found")
		}
		return reportf(a, "Failed to load course details")
	}

	var progress *models.Progress
	if a.Session.IsAuthenticated() {
		progress, err = a.Client.Progress(ctx, c.ID)
		if err != nil && !notEnrolled(err) {
			log.Debug().Err(err).Str("course", c.ID).Msg("failed to load progress")
		}
	}

	out := globals.stdout()
	fmt.Fprintf(out, "%s\n\n", course.Title)
	if course.Description != "" {
		fmt.Fprintf(out, "%s\n\n", course.Description)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Instructor:\t%s\n", course.Instructor)
	fmt.Fprintf(w, "Difficulty:\t%s\n", course.Difficulty)
	fmt.Fprintf(w, "Duration:\t%s\n", course.FormatDuration())
	fmt.Fprintf(w, "Modules:\t%d\n", len(course.Modules))
	if progress != nil {
		fmt.Fprintf(w, "Progress:\t%.0f%%\n", progress.ProgressPercentage)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(course.Modules) == 0 {
		return nil
	}

	fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tMODULE\tDURATION\tDONE")
	for i, m := range course.Modules {
		done := ""
		if progress != nil && progress.IsModuleCompleted(i) {
			done = "*"
		}
		fmt.Fprintf(w, "%d\t%s\t%d min\t%s\n", i, m.Title, m.Duration, done)
	}

	return w.Flush()
}

// CoursesEnrollCmd enrolls the signed in user.
type CoursesEnrollCmd struct {
	ID string `arg:"" help:"Course ID"`
}

func (c *CoursesEnrollCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Courses+"/"+c.ID)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireLogin(a); err != nil {
		return err
	}

	result, err := a.Client.Enroll(ctx, c.ID)
	if err != nil {
		if client.IsUnauthorized(err) {
			// Session teardown already told the user
			return ErrReported
		}
		return reportf(a, "%s", client.ErrorDetail(err, "Failed to enroll"))
	}

	message := result.Message
	if message == "" {
		message = "Enrolled successfully"
	}
	a.Notify.Success(message)

	return nil
}

// CoursesCompleteCmd marks a module as completed.
type CoursesCompleteCmd struct {
	ID     string `arg:"" help:"Course ID"`
	Module int    `arg:"" help:"Module index, starting at 0"`
}

func (c *CoursesCompleteCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Courses+"/"+c.ID)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireLogin(a); err != nil {
		return err
	}

	if c.Module < 0 {
		return reportf(a, "Module index must not be negative")
	}

	result, err := a.Client.CompleteModule(ctx, c.ID, c.Module)
	if err != nil {
		if client.IsUnauthorized(err) {
			return ErrReported
		}
		return reportf(a, "%s", client.ErrorDetail(err, "Failed to complete module"))
	}

	// Points changed on the server
	a.Session.RefreshUser(ctx)

	if result.PointsEarned > 0 {
		a.Notify.Success(fmt.Sprintf("Module completed! +%d points", result.PointsEarned))
	} else {
		a.Notify.Success("Module completed!")
	}

	return nil
}

// CoursesProgressCmd prints completion progress for a course.
type CoursesProgressCmd struct {
	ID string `arg:"" help:"Course ID"`
}

func (c *CoursesProgressCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := globals.open(ctx, router.Courses+"/"+c.ID)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := requireLogin(a); err != nil {
		return err
	}

	progress, err := a.Client.Progress(ctx, c.ID)
	if err != nil {
		if client.IsUnauthorized(err) {
			return ErrReported
		}
		return reportf(a, "%s", client.ErrorDetail(err, "Failed to load progress"))
	}

	w := tabwriter.NewWriter(globals.stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Completed:\t%d/%d\n", progress.CompletedModules, progress.TotalModules)
	fmt.Fprintf(w, "Progress:\t%.0f%%\n", progress.ProgressPercentage)
	fmt.Fprintf(w, "Finished:\t%v\n", progress.IsFullyCompleted)

	return w.Flush()
}

// notEnrolled reports whether err is the server declining to report progress
// for a course the user has not joined.
func notEnrolled(err error) bool {
	switch client.StatusCode(err) {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
