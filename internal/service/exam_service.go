package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/examly/examly-backend/internal/grading"
	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNotExamOwner       = errors.New("not the exam owner")
	ErrAlreadySubmitted   = errors.New("already submitted")
	ErrHasSubmissions     = errors.New("exam has submissions")
)

// ValidationError carries the aggregated message for a rejected payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ExamStore is the persistence surface the service needs for exams.
// Implemented by repository.ExamRepository; lookups signal absence with
// pgx.ErrNoRows.
type ExamStore interface {
	Create(ctx context.Context, exam *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Exam, error)
	ListAll(ctx context.Context) ([]model.Exam, error)
	Update(ctx context.Context, exam *model.Exam) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SubmissionStore is the persistence surface for submissions. Create reports
// a duplicate (exam, student) pair with pgx.ErrNoRows, which is what the
// conditional insert underneath produces.
type SubmissionStore interface {
	Create(ctx context.Context, examID uuid.UUID, sub *model.Submission) error
	Verify(ctx context.Context, examID, submissionID uuid.UUID, teacherID string) (*model.Submission, error)
}

// MonitorPublisher broadcasts exam activity to live monitor subscribers.
type MonitorPublisher interface {
	Publish(ctx context.Context, event model.MonitorEvent) error
}

// ExamService mediates every state transition on exams and submissions:
// ownership, duplicate-submission prevention, role-based visibility and the
// verification workflow.
type ExamService struct {
	exams   ExamStore
	subs    SubmissionStore
	monitor MonitorPublisher
	log     zerolog.Logger
}

func NewExamService(exams ExamStore, subs SubmissionStore, monitor MonitorPublisher, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:   exams,
		subs:    subs,
		monitor: monitor,
		log:     log.With().Str("component", "exam_service").Logger(),
	}
}

// Create validates a draft and stores it as a new exam owned by teacherID.
func (s *ExamService) Create(ctx context.Context, teacherID string, req *model.CreateExamRequest) (*model.TeacherExamView, error) {
	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	exam := &model.Exam{
		ID:          uuid.New(),
		Title:       req.Title,
		Subject:     req.Subject,
		Description: req.Description,
		Duration:    req.Duration,
		Questions:   questions,
		TeacherID:   teacherID,
		Submissions: []model.Submission{},
	}

	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("teacher_id", teacherID).
		Int("questions", len(exam.Questions)).
		Msg("exam created")

	return teacherExamView(exam), nil
}

// ListForTeacher returns the exams owned by teacherID, with every submission.
func (s *ExamService) ListForTeacher(ctx context.Context, teacherID string) ([]model.TeacherExamView, error) {
	exams, err := s.exams.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	views := make([]model.TeacherExamView, 0, len(exams))
	for i := range exams {
		views = append(views, *teacherExamView(&exams[i]))
	}
	return views, nil
}

// ListForStudent returns every exam, question detail redacted and submissions
// reduced to the caller's own.
func (s *ExamService) ListForStudent(ctx context.Context, studentID string) ([]model.StudentExamView, error) {
	exams, err := s.exams.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	views := make([]model.StudentExamView, 0, len(exams))
	for i := range exams {
		views = append(views, *studentExamView(&exams[i], studentID))
	}
	return views, nil
}

// GetForTeacher returns a single exam with the full answer key. An exam owned
// by someone else is reported as not found rather than revealed.
func (s *ExamService) GetForTeacher(ctx context.Context, teacherID string, examID uuid.UUID) (*model.TeacherExamView, error) {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrExamNotFound
	}
	return teacherExamView(exam), nil
}

// GetForStudent returns a single exam redacted for the calling student.
func (s *ExamService) GetForStudent(ctx context.Context, studentID string, examID uuid.UUID) (*model.StudentExamView, error) {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	return studentExamView(exam, studentID), nil
}

// Update replaces an exam's content. Only the owner may update, and only
// while the exam has no submissions; the no-submissions precondition is
// enforced atomically with the write.
func (s *ExamService) Update(ctx context.Context, teacherID string, examID uuid.UUID, req *model.UpdateExamRequest) (*model.TeacherExamView, error) {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}
	if len(exam.Submissions) > 0 {
		return nil, ErrHasSubmissions
	}

	questions, err := buildQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	exam.Title = req.Title
	exam.Subject = req.Subject
	exam.Description = req.Description
	exam.Duration = req.Duration
	exam.Questions = questions

	if err := s.exams.Update(ctx, exam); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// A submission landed between the read and the write.
			return nil, ErrHasSubmissions
		}
		return nil, fmt.Errorf("update exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("teacher_id", teacherID).
		Msg("exam updated")

	return teacherExamView(exam), nil
}

// Delete removes an exam and everything under it. Owner only.
func (s *ExamService) Delete(ctx context.Context, teacherID string, examID uuid.UUID) error {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return err
	}
	if exam.TeacherID != teacherID {
		return ErrNotExamOwner
	}

	if err := s.exams.Delete(ctx, examID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExamNotFound
		}
		return fmt.Errorf("delete exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("teacher_id", teacherID).
		Msg("exam deleted")

	return nil
}

// Submit grades a student's answer set and records it as that student's one
// submission for the exam. The storage layer's conditional insert makes the
// duplicate check and the append a single atomic step, so two concurrent
// submits for the same (exam, student) pair cannot both succeed.
func (s *ExamService) Submit(ctx context.Context, studentID string, examID uuid.UUID, req *model.SubmitExamRequest) (*model.SubmitResult, error) {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}

	for i := range exam.Submissions {
		if exam.Submissions[i].StudentID == studentID {
			return nil, ErrAlreadySubmitted
		}
	}

	inputs := make([]grading.Input, 0, len(req.Answers))
	for _, a := range req.Answers {
		inputs = append(inputs, grading.Input{
			QuestionIndex:  *a.QuestionIndex,
			SelectedOption: *a.SelectedOption,
		})
	}

	graded, score, err := grading.Grade(exam.Questions, inputs)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	sub := &model.Submission{
		ID:            uuid.New(),
		StudentID:     studentID,
		Answers:       graded,
		Score:         score,
		AutoSubmitted: req.AutoSubmitted,
		SubmitReason:  req.Reason,
	}

	if err := s.subs.Create(ctx, examID, sub); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Int("score", score).
		Bool("auto_submitted", req.AutoSubmitted).
		Msg("submission recorded")

	s.publish(ctx, model.MonitorEvent{
		Type:      model.MonitorEventSubmission,
		ExamID:    examID,
		StudentID: studentID,
		Score:     &score,
		Detail:    req.Reason,
		At:        time.Now(),
	})

	return &model.SubmitResult{Score: score, Answers: graded}, nil
}

// VerifySubmission marks a submission as reviewed by the exam's owner.
func (s *ExamService) VerifySubmission(ctx context.Context, teacherID string, examID, submissionID uuid.UUID) (*model.TeacherSubmissionView, error) {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrNotExamOwner
	}

	sub, err := s.subs.Verify(ctx, examID, submissionID, teacherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("verify submission: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Str("submission_id", submissionID.String()).
		Str("teacher_id", teacherID).
		Msg("submission verified")

	s.publish(ctx, model.MonitorEvent{
		Type:      model.MonitorEventVerification,
		ExamID:    examID,
		StudentID: sub.StudentID,
		Score:     &sub.Score,
		At:        time.Now(),
	})

	view := teacherSubmissionView(sub)
	return &view, nil
}

func getExamVia(ctx context.Context, store ExamStore, examID uuid.UUID) (*model.Exam, error) {
	exam, err := store.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

func (s *ExamService) publish(ctx context.Context, event model.MonitorEvent) {
	if s.monitor == nil {
		return
	}
	if err := s.monitor.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).
			Str("exam_id", event.ExamID.String()).
			Str("event_type", string(event.Type)).
			Msg("failed to publish monitor event")
	}
}

// buildQuestions converts request questions to the stored form, collecting
// every bounds failure into one aggregated validation message.
func buildQuestions(reqs []model.QuestionRequest) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(reqs))
	var problems []string

	for i, q := range reqs {
		correct := *q.CorrectOption
		if correct >= len(q.Options) {
			problems = append(problems, fmt.Sprintf("question %d: correctOption %d does not address any of its %d options", i, correct, len(q.Options)))
		}
		questions = append(questions, model.Question{
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: correct,
		})
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Message: strings.Join(problems, "; ")}
	}
	return questions, nil
}

// teacherExamView exposes the full question list but reduces each submitted
// answer to its bare selection.
func teacherExamView(exam *model.Exam) *model.TeacherExamView {
	subs := make([]model.TeacherSubmissionView, 0, len(exam.Submissions))
	for i := range exam.Submissions {
		subs = append(subs, teacherSubmissionView(&exam.Submissions[i]))
	}

	return &model.TeacherExamView{
		ID:          exam.ID,
		Title:       exam.Title,
		Subject:     exam.Subject,
		Description: exam.Description,
		Duration:    exam.Duration,
		Questions:   exam.Questions,
		TeacherID:   exam.TeacherID,
		Submissions: subs,
		CreatedAt:   exam.CreatedAt,
	}
}

func teacherSubmissionView(sub *model.Submission) model.TeacherSubmissionView {
	answers := make([]model.TeacherAnswerView, 0, len(sub.Answers))
	for _, a := range sub.Answers {
		answers = append(answers, model.TeacherAnswerView{
			QuestionIndex:  a.QuestionIndex,
			SelectedOption: a.SelectedOption,
		})
	}

	return model.TeacherSubmissionView{
		ID:            sub.ID,
		StudentID:     sub.StudentID,
		Answers:       answers,
		Score:         sub.Score,
		Verified:      sub.Verified,
		VerifiedAt:    sub.VerifiedAt,
		VerifiedBy:    sub.VerifiedBy,
		SubmittedAt:   sub.SubmittedAt,
		AutoSubmitted: sub.AutoSubmitted,
		SubmitReason:  sub.SubmitReason,
	}
}

// studentExamView redacts an exam for a student caller. The answer key is
// never present. Before the student's submission is verified each question is
// just text and options; after verification the student's own picks are
// merged back in by question index.
func studentExamView(exam *model.Exam, studentID string) *model.StudentExamView {
	var own *model.Submission
	for i := range exam.Submissions {
		if exam.Submissions[i].StudentID == studentID {
			own = &exam.Submissions[i]
			break
		}
	}

	questions := make([]model.StudentQuestionView, 0, len(exam.Questions))
	for i, q := range exam.Questions {
		view := model.StudentQuestionView{
			Text:    q.Text,
			Options: q.Options,
		}
		if own != nil && own.Verified {
			for _, a := range own.Answers {
				if a.QuestionIndex == i {
					selected := a.SelectedOption
					view.SelectedOption = &selected
					break
				}
			}
		}
		questions = append(questions, view)
	}

	subs := make([]model.Submission, 0, 1)
	if own != nil {
		subs = append(subs, *own)
	}

	return &model.StudentExamView{
		ID:          exam.ID,
		Title:       exam.Title,
		Subject:     exam.Subject,
		Description: exam.Description,
		Duration:    exam.Duration,
		Questions:   questions,
		TeacherID:   exam.TeacherID,
		Submissions: subs,
		CreatedAt:   exam.CreatedAt,
	}
}
