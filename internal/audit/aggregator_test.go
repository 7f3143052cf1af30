// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/tomtom215/coursescope/internal/canvas"
)

// mockSource is an in-memory course with call counting.
type mockSource struct {
	mu    sync.Mutex
	calls map[string]int

	course      *canvas.Course
	enrollments []canvas.Enrollment
	pages       []canvas.Page
	quizzes     []canvas.Quiz
	assignments []canvas.Assignment
	topics      []canvas.DiscussionTopic

	quizSubs       map[int64][]canvas.Response
	assignmentSubs map[int64][]canvas.Response
	entries        map[int64][]canvas.Response

	failOn  string
	failErr error
}

func (m *mockSource) record(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
	if m.failOn == name {
		return m.failErr
	}
	return nil
}

func (m *mockSource) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockSource) Course(_ context.Context, id int64) (*canvas.Course, error) {
	if err := m.record("course"); err != nil {
		return nil, err
	}
	if m.course == nil {
		return &canvas.Course{ID: id, Name: fmt.Sprintf("Course %d", id)}, nil
	}
	return m.course, nil
}

func (m *mockSource) ActiveStudentEnrollments(context.Context, int64) ([]canvas.Enrollment, error) {
	return m.enrollments, m.record("enrollments")
}

func (m *mockSource) PublishedPages(context.Context, int64) ([]canvas.Page, error) {
	return m.pages, m.record("pages")
}

func (m *mockSource) Quizzes(context.Context, int64) ([]canvas.Quiz, error) {
	return m.quizzes, m.record("quizzes")
}

func (m *mockSource) PublishedAssignments(context.Context, int64) ([]canvas.Assignment, error) {
	return m.assignments, m.record("assignments")
}

func (m *mockSource) ActiveDiscussionTopics(context.Context, int64) ([]canvas.DiscussionTopic, error) {
	return m.topics, m.record("topics")
}

func (m *mockSource) QuizSubmissions(_ context.Context, _, quizID int64) ([]canvas.Response, error) {
	return m.quizSubs[quizID], m.record("quiz_submissions")
}

func (m *mockSource) AssignmentSubmissions(_ context.Context, _, id int64) ([]canvas.Response, error) {
	return m.assignmentSubs[id], m.record("assignment_submissions")
}

func (m *mockSource) DiscussionEntries(_ context.Context, _, id int64) ([]canvas.Response, error) {
	return m.entries[id], m.record("entries")
}

func users(ids ...int64) []canvas.Response {
	out := make([]canvas.Response, len(ids))
	for i, id := range ids {
		out[i] = canvas.Response{UserID: id}
	}
	return out
}

func students(n int) []canvas.Enrollment {
	out := make([]canvas.Enrollment, n)
	for i := range out {
		out[i] = canvas.Enrollment{ID: int64(i + 1), UserID: int64(100 + i), Type: "StudentEnrollment"}
	}
	return out
}

// sampleCourse has 4 students, one quiz of each engine, two plain
// assignments plus the two quiz-backed assignments, and two topics.
func sampleCourse() *mockSource {
	return &mockSource{
		enrollments: students(4),
		pages:       []canvas.Page{{PageID: 1}, {PageID: 2}, {PageID: 3}},
		quizzes: []canvas.Quiz{
			{ID: 10, Title: "Classic", IsQuizLTI: false},
			{ID: 11, Title: "New", IsQuizLTI: true},
		},
		assignments: []canvas.Assignment{
			{ID: 20, Name: "Essay", SubmissionTypes: []string{"online_text_entry"}},
			{ID: 21, Name: "Upload", SubmissionTypes: []string{"online_upload"}},
			{ID: 22, Name: "Classic quiz", SubmissionTypes: []string{"online_quiz"}},
			{ID: 23, Name: "New quiz", SubmissionTypes: []string{"external_tool"}, QuizLTI: true},
		},
		topics: []canvas.DiscussionTopic{{ID: 30}, {ID: 31}},
		quizSubs: map[int64][]canvas.Response{
			10: users(100, 101, 101),
			11: users(102),
		},
		assignmentSubs: map[int64][]canvas.Response{
			20: users(100, 101, 102, 103),
			21: users(100, 100),
			22: users(100, 101, 102, 103),
			23: users(100, 101, 102, 103),
		},
		entries: map[int64][]canvas.Response{
			30: users(100, 101, 100, 101),
			31: nil,
		},
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAudit_Counts(t *testing.T) {
	t.Parallel()

	src := sampleCourse()
	got, err := NewAggregator(src, 1).Audit(context.Background(), 42)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	if got.CourseID != 42 {
		t.Errorf("CourseID = %d", got.CourseID)
	}
	if got.PublishedPages != 3 {
		t.Errorf("PublishedPages = %d, want 3", got.PublishedPages)
	}
	if got.ClassicQuizzes != 1 || got.NewQuizzes != 1 {
		t.Errorf("quizzes = %d classic, %d new, want 1 and 1", got.ClassicQuizzes, got.NewQuizzes)
	}
	if got.OtherAssignments != 2 {
		t.Errorf("OtherAssignments = %d, want 2 (quiz-backed assignments excluded)", got.OtherAssignments)
	}
	if got.Discussions != 2 {
		t.Errorf("Discussions = %d, want 2", got.Discussions)
	}
	if got.ActiveStudents != 4 {
		t.Errorf("ActiveStudents = %d, want 4", got.ActiveStudents)
	}
}

func TestAudit_Ratios(t *testing.T) {
	t.Parallel()

	got, err := NewAggregator(sampleCourse(), 1).Audit(context.Background(), 1)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	// quizzes: (2 + 1) / (4 * 2)
	if !approxEqual(got.QuizEngagement, 3.0/8.0) {
		t.Errorf("QuizEngagement = %v, want 0.375", got.QuizEngagement)
	}
	// other assignments only: (4 + 1) / (4 * 2)
	if !approxEqual(got.AssignmentEngagement, 5.0/8.0) {
		t.Errorf("AssignmentEngagement = %v, want 0.625", got.AssignmentEngagement)
	}
	// topics: (2 + 0) / (4 * 2)
	if !approxEqual(got.DiscussionEngagement, 2.0/8.0) {
		t.Errorf("DiscussionEngagement = %v, want 0.25", got.DiscussionEngagement)
	}
}

func TestAudit_EachCollectionFetchedOnce(t *testing.T) {
	t.Parallel()

	src := sampleCourse()
	if _, err := NewAggregator(src, 1).Audit(context.Background(), 1); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	want := map[string]int{
		"enrollments":            1,
		"pages":                  1,
		"quizzes":                1,
		"assignments":            1,
		"topics":                 1,
		"quiz_submissions":       2,
		"assignment_submissions": 2, // quiz-backed assignments are not fetched
		"entries":                2,
	}
	for name, n := range want {
		if got := src.count(name); got != n {
			t.Errorf("%s fetched %d times, want %d", name, got, n)
		}
	}
}

func TestAudit_NoStudentsSkipsSubFetches(t *testing.T) {
	t.Parallel()

	src := sampleCourse()
	src.enrollments = nil

	got, err := NewAggregator(src, 4).Audit(context.Background(), 1)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if got.QuizEngagement != 0 || got.AssignmentEngagement != 0 || got.DiscussionEngagement != 0 {
		t.Errorf("ratios = %v/%v/%v, want all 0", got.QuizEngagement, got.AssignmentEngagement, got.DiscussionEngagement)
	}
	for _, name := range []string{"quiz_submissions", "assignment_submissions", "entries"} {
		if n := src.count(name); n != 0 {
			t.Errorf("%s fetched %d times, want 0", name, n)
		}
	}
}

func TestAudit_NoItemsGivesZeroRatio(t *testing.T) {
	t.Parallel()

	src := sampleCourse()
	src.quizzes = nil
	src.topics = nil
	src.quizSubs = nil

	got, err := NewAggregator(src, 1).Audit(context.Background(), 1)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if got.QuizEngagement != 0 || got.DiscussionEngagement != 0 {
		t.Errorf("QuizEngagement = %v, DiscussionEngagement = %v, want 0", got.QuizEngagement, got.DiscussionEngagement)
	}
	if got.AssignmentEngagement == 0 {
		t.Error("AssignmentEngagement should be unaffected")
	}
}

func TestAudit_QuizzesWithoutSubmissions(t *testing.T) {
	t.Parallel()

	src := sampleCourse()
	src.quizSubs = map[int64][]canvas.Response{}

	got, err := NewAggregator(src, 1).Audit(context.Background(), 1)
	if err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	if got.QuizEngagement != 0 {
		t.Errorf("QuizEngagement = %v, want 0", got.QuizEngagement)
	}
}

func TestAudit_Idempotent(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(sampleCourse(), 3)
	first, err := agg.Audit(context.Background(), 9)
	if err != nil {
		t.Fatalf("first Audit() error = %v", err)
	}
	second, err := agg.Audit(context.Background(), 9)
	if err != nil {
		t.Fatalf("second Audit() error = %v", err)
	}
	if *first != *second {
		t.Errorf("audits differ:\n%+v\n%+v", first, second)
	}
}

func TestAudit_PropagatesUpstreamError(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"enrollments", "quizzes", "assignment_submissions", "entries"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			src := sampleCourse()
			src.failOn = name
			src.failErr = &canvas.UpstreamError{StatusCode: 500, URL: "https://canvas.example.edu/api/v1/" + name}

			_, err := NewAggregator(src, 2).Audit(context.Background(), 1)
			var ue *canvas.UpstreamError
			if !errors.As(err, &ue) || ue.StatusCode != 500 {
				t.Errorf("Audit() error = %v, want the *canvas.UpstreamError", err)
			}
		})
	}
}

func TestAudit_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	seq, err := NewAggregator(sampleCourse(), 1).Audit(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	par, err := NewAggregator(sampleCourse(), 8).Audit(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if *seq != *par {
		t.Errorf("parallel result differs:\n%+v\n%+v", seq, par)
	}
}

func TestNewAggregator_ClampsParallelism(t *testing.T) {
	t.Parallel()

	if got := NewAggregator(sampleCourse(), 0).parallelism; got != 1 {
		t.Errorf("parallelism = %d, want 1", got)
	}
}
