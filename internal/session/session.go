// Package session implements the exam-taking client: navigation and answer
// capture, the countdown timer, the integrity monitor and the one-shot
// submit. Event handlers (user input, timer ticks, integrity signals) are
// serialized through one mutex; the submit network call is the only point
// where the lock is released mid-operation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type State string

const (
	StateLoading    State = "LOADING"
	StateReady      State = "READY"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateFailed     State = "FAILED"
)

const (
	maxViolations   = 3
	maxTabSwitches  = 2
	inactivityLimit = 5 * time.Minute
)

var (
	ErrNotStarted   = errors.New("session not started")
	ErrNotEditable  = errors.New("session no longer accepts changes")
	ErrInvalidIndex = errors.New("question index out of range")
	ErrEmptyExam    = errors.New("exam has no questions")
)

// ExamClient is the server surface the session needs.
type ExamClient interface {
	FetchExam(ctx context.Context, examID uuid.UUID) (*model.StudentExamView, error)
	Submit(ctx context.Context, examID uuid.UUID, req *model.SubmitExamRequest) (*model.SubmitResult, error)
}

// ViolationReporter forwards integrity signals to the server. Reporting is
// best-effort; a failed report never interrupts the attempt.
type ViolationReporter interface {
	Report(ctx context.Context, examID uuid.UUID, req *model.ReportViolationRequest) error
}

// Session is one student's attempt at one exam.
type Session struct {
	mu       sync.Mutex
	client   ExamClient
	reporter ViolationReporter
	log      zerolog.Logger
	now      func() time.Time

	examID  uuid.UUID
	exam    *model.StudentExamView
	state   State
	current int
	answers map[int]int

	remaining    int // seconds
	lastActivity time.Time

	violations  int
	tabSwitches int
	warnings    []string

	// submitGuard makes the submit one-shot across every trigger: manual
	// click, timer expiry and integrity force-submit. First caller wins.
	submitGuard atomic.Bool

	result  *model.SubmitResult
	lastErr error
}

func New(client ExamClient, reporter ViolationReporter, log zerolog.Logger) *Session {
	return &Session{
		client:   client,
		reporter: reporter,
		log:      log.With().Str("component", "exam_session").Logger(),
		now:      time.Now,
		state:    StateLoading,
		answers:  make(map[int]int),
	}
}

// Start fetches the exam and moves the session to Ready. A fetch failure or
// an empty exam is unrecoverable.
func (s *Session) Start(ctx context.Context, examID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLoading {
		return fmt.Errorf("cannot start from state %s", s.state)
	}

	exam, err := s.client.FetchExam(ctx, examID)
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		return fmt.Errorf("fetch exam: %w", err)
	}
	if len(exam.Questions) == 0 {
		s.state = StateFailed
		s.lastErr = ErrEmptyExam
		return ErrEmptyExam
	}

	s.examID = examID
	s.exam = exam
	s.remaining = exam.Duration * 60
	s.lastActivity = s.now()
	s.state = StateReady

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("questions", len(exam.Questions)).
		Int("seconds", s.remaining).
		Msg("session ready")

	return nil
}

// Begin marks the attempt as underway.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		return fmt.Errorf("cannot begin from state %s", s.state)
	}
	s.state = StateInProgress
	s.lastActivity = s.now()
	return nil
}

// SelectAnswer records answers[questionIndex] = selectedOption, overwriting
// any earlier pick for that question.
func (s *Session) SelectAnswer(questionIndex, selectedOption int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(s.exam.Questions) {
		return ErrInvalidIndex
	}
	if selectedOption < 0 || selectedOption >= len(s.exam.Questions[questionIndex].Options) {
		return fmt.Errorf("option %d out of range for question %d", selectedOption, questionIndex)
	}

	s.answers[questionIndex] = selectedOption
	s.lastActivity = s.now()
	return nil
}

// Navigate jumps to an arbitrary question. Order is free.
func (s *Session) Navigate(questionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editable(); err != nil {
		return err
	}
	if questionIndex < 0 || questionIndex >= len(s.exam.Questions) {
		return ErrInvalidIndex
	}
	s.current = questionIndex
	s.lastActivity = s.now()
	return nil
}

// Next advances to the following question, clamped at the last one.
func (s *Session) Next() error {
	s.mu.Lock()
	target := s.current + 1
	s.mu.Unlock()
	if err := s.Navigate(target); errors.Is(err, ErrInvalidIndex) {
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

// Prev moves to the previous question, clamped at the first one.
func (s *Session) Prev() error {
	s.mu.Lock()
	target := s.current - 1
	s.mu.Unlock()
	if err := s.Navigate(target); errors.Is(err, ErrInvalidIndex) {
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

// Tick is the one-second heartbeat. It decrements the countdown, fires the
// automatic submit when time runs out and raises an inactivity violation
// after five quiet minutes.
func (s *Session) Tick(ctx context.Context) {
	s.mu.Lock()

	if s.state != StateInProgress && s.state != StateReady {
		s.mu.Unlock()
		return
	}

	if s.remaining > 0 {
		s.remaining--
		if s.remaining == 0 {
			s.mu.Unlock()
			s.submit(ctx, true, "Time expired")
			return
		}
	}

	if s.now().Sub(s.lastActivity) >= inactivityLimit {
		// Reset the window so one quiet stretch counts once.
		s.lastActivity = s.now()
		s.mu.Unlock()
		s.recordViolation(ctx, model.ViolationInactivity, "No activity for 5 minutes")
		return
	}

	s.mu.Unlock()
}

// Activity notes pointer/keyboard/click activity for the inactivity monitor.
func (s *Session) Activity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.now()
}

// Submit is the manual submission trigger.
func (s *Session) Submit(ctx context.Context) error {
	return s.submit(ctx, false, "")
}

// submit is the single submission path shared by every trigger. The guard
// flips exactly once; losers of the race return immediately with no effect.
// On a failed network call the guard is released and the session drops back
// to InProgress with all answers intact, so the student can retry.
func (s *Session) submit(ctx context.Context, auto bool, reason string) error {
	if !s.submitGuard.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	if s.state != StateInProgress && s.state != StateReady {
		s.submitGuard.Store(false)
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.state = StateSubmitting

	req := &model.SubmitExamRequest{
		Answers:       s.answerList(),
		AutoSubmitted: auto,
		Reason:        reason,
	}
	examID := s.examID
	s.mu.Unlock()

	result, err := s.client.Submit(ctx, examID, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state = StateInProgress
		s.lastErr = err
		s.submitGuard.Store(false)
		s.log.Error().Err(err).Str("exam_id", examID.String()).Msg("submit failed")
		return fmt.Errorf("submit exam: %w", err)
	}

	s.state = StateSubmitted
	s.result = result

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("score", result.Score).
		Bool("auto", auto).
		Str("reason", reason).
		Msg("exam submitted")

	return nil
}

func (s *Session) answerList() []model.AnswerRequest {
	indexes := make([]int, 0, len(s.answers))
	for idx := range s.answers {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	answers := make([]model.AnswerRequest, 0, len(indexes))
	for _, idx := range indexes {
		i, opt := idx, s.answers[idx]
		answers = append(answers, model.AnswerRequest{
			QuestionIndex:  &i,
			SelectedOption: &opt,
		})
	}
	return answers
}

func (s *Session) editable() error {
	switch s.state {
	case StateReady, StateInProgress:
		return nil
	case StateLoading, StateFailed:
		return ErrNotStarted
	default:
		return ErrNotEditable
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the question index in view.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Remaining returns the seconds left on the countdown.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// Answers returns a copy of the recorded selections.
func (s *Session) Answers() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Result returns the grading outcome after a successful submit.
func (s *Session) Result() *model.SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the most recent failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
