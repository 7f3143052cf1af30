// CourseScope - Canvas Course Audit Batch Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coursescope

package audit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/coursescope/internal/canvas"
	"github.com/tomtom215/coursescope/internal/models"
)

// Source is the read side of the Canvas API used by an audit.
type Source interface {
	Course(ctx context.Context, courseID int64) (*canvas.Course, error)
	ActiveStudentEnrollments(ctx context.Context, courseID int64) ([]canvas.Enrollment, error)
	PublishedPages(ctx context.Context, courseID int64) ([]canvas.Page, error)
	Quizzes(ctx context.Context, courseID int64) ([]canvas.Quiz, error)
	PublishedAssignments(ctx context.Context, courseID int64) ([]canvas.Assignment, error)
	ActiveDiscussionTopics(ctx context.Context, courseID int64) ([]canvas.DiscussionTopic, error)
	QuizSubmissions(ctx context.Context, courseID, quizID int64) ([]canvas.Response, error)
	AssignmentSubmissions(ctx context.Context, courseID, assignmentID int64) ([]canvas.Response, error)
	DiscussionEntries(ctx context.Context, courseID, topicID int64) ([]canvas.Response, error)
}

var _ Source = (*canvas.Client)(nil)

// Aggregator computes course metrics from a Source.
type Aggregator struct {
	src         Source
	parallelism int
}

// NewAggregator returns an aggregator issuing at most parallelism concurrent
// upstream fetches per course. Values below 1 are treated as 1.
func NewAggregator(src Source, parallelism int) *Aggregator {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Aggregator{src: src, parallelism: parallelism}
}

// courseContent is the first-level harvest of a course.
type courseContent struct {
	enrollments []canvas.Enrollment
	pages       []canvas.Page
	quizzes     []canvas.Quiz
	assignments []canvas.Assignment
	topics      []canvas.DiscussionTopic
}

// Audit computes the metrics of one course. Only CourseID and the metric
// fields of the result are set.
func (a *Aggregator) Audit(ctx context.Context, courseID int64) (*models.CourseAuditResult, error) {
	content, err := a.harvest(ctx, courseID)
	if err != nil {
		return nil, err
	}

	classic, newQuizzes := splitQuizzes(content.quizzes)
	others := otherAssignments(content.assignments)
	students := len(content.enrollments)

	result := &models.CourseAuditResult{
		CourseID:         courseID,
		PublishedPages:   len(content.pages),
		ClassicQuizzes:   classic,
		NewQuizzes:       newQuizzes,
		OtherAssignments: len(others),
		Discussions:      len(content.topics),
		ActiveStudents:   students,
	}

	if students == 0 {
		return result, nil
	}

	quizIDs := make([]int64, len(content.quizzes))
	for i, q := range content.quizzes {
		quizIDs[i] = q.ID
	}
	assignmentIDs := make([]int64, len(others))
	for i, asg := range others {
		assignmentIDs[i] = asg.ID
	}
	topicIDs := make([]int64, len(content.topics))
	for i, t := range content.topics {
		topicIDs[i] = t.ID
	}

	totals, err := a.responders(ctx, courseID, [kindCount][]int64{
		kindQuiz:       quizIDs,
		kindAssignment: assignmentIDs,
		kindDiscussion: topicIDs,
	})
	if err != nil {
		return nil, err
	}

	result.QuizEngagement = models.EngagementRatio(totals[kindQuiz], students, len(quizIDs))
	result.AssignmentEngagement = models.EngagementRatio(totals[kindAssignment], students, len(assignmentIDs))
	result.DiscussionEngagement = models.EngagementRatio(totals[kindDiscussion], students, len(topicIDs))
	return result, nil
}

func (a *Aggregator) harvest(ctx context.Context, courseID int64) (*courseContent, error) {
	var c courseContent
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)

	g.Go(func() (err error) {
		c.enrollments, err = a.src.ActiveStudentEnrollments(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		c.pages, err = a.src.PublishedPages(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		c.quizzes, err = a.src.Quizzes(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		c.assignments, err = a.src.PublishedAssignments(gctx, courseID)
		return err
	})
	g.Go(func() (err error) {
		c.topics, err = a.src.ActiveDiscussionTopics(gctx, courseID)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

type itemKind int

const (
	kindQuiz itemKind = iota
	kindAssignment
	kindDiscussion
	kindCount
)

// responders sums, per kind, the distinct responders of every item.
func (a *Aggregator) responders(ctx context.Context, courseID int64, items [kindCount][]int64) ([kindCount]int, error) {
	var counts [kindCount][]int
	for k := range items {
		counts[k] = make([]int, len(items[k]))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for k := range items {
		kind := itemKind(k)
		for i, id := range items[k] {
			g.Go(func() error {
				resp, err := a.fetchResponses(gctx, kind, courseID, id)
				if err != nil {
					return err
				}
				counts[kind][i] = distinctUsers(resp)
				return nil
			})
		}
	}

	var totals [kindCount]int
	if err := g.Wait(); err != nil {
		return totals, err
	}
	for k := range counts {
		for _, n := range counts[k] {
			totals[k] += n
		}
	}
	return totals, nil
}

func (a *Aggregator) fetchResponses(ctx context.Context, kind itemKind, courseID, itemID int64) ([]canvas.Response, error) {
	switch kind {
	case kindQuiz:
		return a.src.QuizSubmissions(ctx, courseID, itemID)
	case kindAssignment:
		return a.src.AssignmentSubmissions(ctx, courseID, itemID)
	default:
		return a.src.DiscussionEntries(ctx, courseID, itemID)
	}
}

// splitQuizzes counts classic quizzes and New Quizzes.
func splitQuizzes(quizzes []canvas.Quiz) (classic, newQuizzes int) {
	for _, q := range quizzes {
		if q.IsQuizLTI {
			newQuizzes++
		} else {
			classic++
		}
	}
	return classic, newQuizzes
}

// otherAssignments drops assignments that are the gradebook face of a quiz,
// by either submission type or the quiz_lti flag.
func otherAssignments(assignments []canvas.Assignment) []canvas.Assignment {
	out := make([]canvas.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if !a.IsQuiz() {
			out = append(out, a)
		}
	}
	return out
}

func distinctUsers(responses []canvas.Response) int {
	seen := make(map[int64]struct{}, len(responses))
	for _, r := range responses {
		seen[r.UserID] = struct{}{}
	}
	return len(seen)
}
