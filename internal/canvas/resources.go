// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package canvas

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
)

// Course is the subset of a Canvas course object the auditor reads.
type Course struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	CourseCode    string `json:"course_code,omitempty"`
	TotalStudents *int   `json:"total_students,omitempty"`
}

// Enrollment is a course enrollment.
type Enrollment struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	Type            string `json:"type"`
	EnrollmentState string `json:"enrollment_state"`
}

// Page is a wiki page.
type Page struct {
	PageID    int64  `json:"page_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
}

// Quiz is a classic quiz, or a New Quiz when IsQuizLTI is set.
type Quiz struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	IsQuizLTI bool   `json:"is_quiz_lti"`
	Published bool   `json:"published"`
}

// Assignment is a course assignment. Quizzes of both engines also surface
// here, flagged by SubmissionTypes or QuizLTI.
type Assignment struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	SubmissionTypes     []string `json:"submission_types"`
	QuizLTI             bool     `json:"quiz_lti"`
	IsQuizLTIAssignment bool     `json:"is_quiz_lti_assignment"`
	Published           bool     `json:"published"`
}

// IsQuiz reports whether the assignment is the gradebook face of a quiz.
func (a Assignment) IsQuiz() bool {
	if a.QuizLTI {
		return true
	}
	for _, t := range a.SubmissionTypes {
		if t == "online_quiz" {
			return true
		}
	}
	return false
}

// DiscussionTopic is a discussion or announcement topic.
type DiscussionTopic struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
}

// Response is a submission or discussion entry; only the author matters.
type Response struct {
	UserID int64 `json:"user_id"`
}

// Module is a course module.
type Module struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	ItemsCount int    `json:"items_count"`
	Published  *bool  `json:"published,omitempty"`
}

// ModuleItem is one entry of a module.
type ModuleItem struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	PageURL   string `json:"page_url,omitempty"`
	ContentID int64  `json:"content_id,omitempty"`
	Position  int    `json:"position"`
}

// decodeAll decodes every raw element into T.
func decodeAll[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decode element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func fetchTyped[T any](ctx context.Context, c *Client, path string, query url.Values, envelope string) ([]T, error) {
	raw, err := c.fetchAll(ctx, path, query, envelope)
	if err != nil {
		return nil, err
	}
	items, err := decodeAll[T](raw)
	if err != nil {
		return nil, &UpstreamError{URL: c.resolve(path, query), Err: err}
	}
	return items, nil
}

func coursePath(courseID int64, rest string) string {
	if rest == "" {
		return fmt.Sprintf("courses/%d", courseID)
	}
	return fmt.Sprintf("courses/%d/%s", courseID, rest)
}

// Query sets used by the auditor and the per-endpoint probe.
var (
	enrollmentQuery = url.Values{"type[]": {"StudentEnrollment"}, "state[]": {"active"}}
	publishedQuery  = url.Values{"published": {"true"}}
	activeQuery     = url.Values{"only_active": {"true"}}
)

// Course fetches course metadata.
func (c *Client) Course(ctx context.Context, courseID int64) (*Course, error) {
	rawURL := c.resolve(coursePath(courseID, ""), url.Values{"include[]": {"total_students"}})
	p, err := c.getPage(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	var course Course
	if err := json.Unmarshal(p.body, &course); err != nil {
		return nil, &UpstreamError{StatusCode: p.status, URL: rawURL, Err: fmt.Errorf("decode course: %w", err)}
	}
	return &course, nil
}

// ActiveStudentEnrollments lists active student enrollments.
func (c *Client) ActiveStudentEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error) {
	return fetchTyped[Enrollment](ctx, c, coursePath(courseID, "enrollments"), enrollmentQuery, "")
}

// PublishedPages lists published wiki pages.
func (c *Client) PublishedPages(ctx context.Context, courseID int64) ([]Page, error) {
	return fetchTyped[Page](ctx, c, coursePath(courseID, "pages"), publishedQuery, "")
}

// Quizzes lists all quizzes, classic and New Quizzes alike.
func (c *Client) Quizzes(ctx context.Context, courseID int64) ([]Quiz, error) {
	return fetchTyped[Quiz](ctx, c, coursePath(courseID, "quizzes"), nil, "")
}

// PublishedAssignments lists published assignments.
func (c *Client) PublishedAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	return fetchTyped[Assignment](ctx, c, coursePath(courseID, "assignments"), publishedQuery, "")
}

// ActiveDiscussionTopics lists discussion topics that are not locked or deleted.
func (c *Client) ActiveDiscussionTopics(ctx context.Context, courseID int64) ([]DiscussionTopic, error) {
	return fetchTyped[DiscussionTopic](ctx, c, coursePath(courseID, "discussion_topics"), activeQuery, "")
}

// QuizSubmissions lists submissions for one quiz.
func (c *Client) QuizSubmissions(ctx context.Context, courseID, quizID int64) ([]Response, error) {
	path := coursePath(courseID, fmt.Sprintf("quizzes/%d/submissions", quizID))
	return fetchTyped[Response](ctx, c, path, nil, "quiz_submissions")
}

// AssignmentSubmissions lists submissions for one assignment.
func (c *Client) AssignmentSubmissions(ctx context.Context, courseID, assignmentID int64) ([]Response, error) {
	path := coursePath(courseID, fmt.Sprintf("assignments/%d/submissions", assignmentID))
	return fetchTyped[Response](ctx, c, path, nil, "")
}

// DiscussionEntries lists top-level entries of one topic.
func (c *Client) DiscussionEntries(ctx context.Context, courseID, topicID int64) ([]Response, error) {
	path := coursePath(courseID, fmt.Sprintf("discussion_topics/%d/entries", topicID))
	return fetchTyped[Response](ctx, c, path, nil, "")
}

// Modules lists course modules.
func (c *Client) Modules(ctx context.Context, courseID int64) ([]Module, error) {
	return fetchTyped[Module](ctx, c, coursePath(courseID, "modules"), nil, "")
}

// ModuleItems lists the items of one module.
func (c *Client) ModuleItems(ctx context.Context, courseID, moduleID int64) ([]ModuleItem, error) {
	return fetchTyped[ModuleItem](ctx, c, coursePath(courseID, fmt.Sprintf("modules/%d/items", moduleID)), nil, "")
}
