package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wolfeidau/elearn/internal/models"
)

// ListCourses returns the course catalog. Both the enveloped form
// {"courses": [...]} and a bare array are accepted.
func (c *Client) ListCourses(ctx context.Context) ([]models.Course, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/courses", nil, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []models.Course{}, nil
	}
	if raw[0] == '[' {
		var courses []models.Course
		if err := json.Unmarshal(raw, &courses); err != nil {
			return nil, fmt.Errorf("failed to decode course list: %w", err)
		}
		return courses, nil
	}

	var list models.CourseList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode course list: %w", err)
	}
	if list.Courses == nil {
		list.Courses = []models.Course{}
	}
	return list.Courses, nil
}

// GetCourse returns one course. Both {"course": {...}} and a bare course
// object are accepted.
func (c *Client) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, coursePath(courseID, ""), nil, &raw); err != nil {
		return nil, err
	}

	var envelope struct {
		Course *models.Course `json:"course"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode course: %w", err)
	}
	if envelope.Course != nil {
		return envelope.Course, nil
	}

	var course models.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return nil, fmt.Errorf("failed to decode course: %w", err)
	}
	return &course, nil
}

// Enroll enrolls the current user in a course.
func (c *Client) Enroll(ctx context.Context, courseID string) (*models.EnrollmentResult, error) {
	var result models.EnrollmentResult
	if err := c.do(ctx, http.MethodPost, coursePath(courseID, "/enroll"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CompleteModule marks the module at index idx as completed.
func (c *Client) CompleteModule(ctx context.Context, courseID string, idx int) (*models.CompletionResult, error) {
	if idx < 0 {
		return nil, fmt.Errorf("module index must not be negative: %d", idx)
	}

	var result models.CompletionResult
	path := coursePath(courseID, "/modules/"+strconv.Itoa(idx)+"/complete")
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Progress returns the current user's completion state for a course.
func (c *Client) Progress(ctx context.Context, courseID string) (*models.Progress, error) {
	var progress models.Progress
	if err := c.do(ctx, http.MethodGet, coursePath(courseID, "/progress"), nil, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func coursePath(courseID, suffix string) string {
	return "/api/courses/" + url.PathEscape(courseID) + suffix
}
