package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// fakeExamStore mimics the repository contract, including the pgx.ErrNoRows
// signals the conditional SQL statements produce.
type fakeExamStore struct {
	mu    sync.Mutex
	exams map[uuid.UUID]*model.Exam
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{exams: make(map[uuid.UUID]*model.Exam)}
}

func (f *fakeExamStore) Create(_ context.Context, exam *model.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam.CreatedAt = time.Now()
	cp := *exam
	f.exams[exam.ID] = &cp
	return nil
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exam, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *exam
	cp.Submissions = append([]model.Submission(nil), exam.Submissions...)
	return &cp, nil
}

func (f *fakeExamStore) ListByTeacher(_ context.Context, teacherID string) ([]model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Exam, 0)
	for _, exam := range f.exams {
		if exam.TeacherID == teacherID {
			out = append(out, *exam)
		}
	}
	return out, nil
}

func (f *fakeExamStore) ListAll(_ context.Context) ([]model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Exam, 0)
	for _, exam := range f.exams {
		out = append(out, *exam)
	}
	return out, nil
}

func (f *fakeExamStore) Update(_ context.Context, exam *model.Exam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.exams[exam.ID]
	if !ok || len(stored.Submissions) > 0 {
		return pgx.ErrNoRows
	}
	cp := *exam
	cp.Submissions = stored.Submissions
	cp.CreatedAt = stored.CreatedAt
	f.exams[exam.ID] = &cp
	return nil
}

func (f *fakeExamStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.exams[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.exams, id)
	return nil
}

// fakeSubStore appends into the exam store under the same lock, so the
// uniqueness check behaves like the database constraint.
type fakeSubStore struct {
	exams *fakeExamStore
}

func (f *fakeSubStore) Create(_ context.Context, examID uuid.UUID, sub *model.Submission) error {
	f.exams.mu.Lock()
	defer f.exams.mu.Unlock()
	exam, ok := f.exams.exams[examID]
	if !ok {
		return pgx.ErrNoRows
	}
	for i := range exam.Submissions {
		if exam.Submissions[i].StudentID == sub.StudentID {
			return pgx.ErrNoRows
		}
	}
	sub.SubmittedAt = time.Now()
	exam.Submissions = append(exam.Submissions, *sub)
	return nil
}

func (f *fakeSubStore) Verify(_ context.Context, examID, submissionID uuid.UUID, teacherID string) (*model.Submission, error) {
	f.exams.mu.Lock()
	defer f.exams.mu.Unlock()
	exam, ok := f.exams.exams[examID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	for i := range exam.Submissions {
		if exam.Submissions[i].ID == submissionID {
			now := time.Now()
			exam.Submissions[i].Verified = true
			exam.Submissions[i].VerifiedAt = &now
			exam.Submissions[i].VerifiedBy = teacherID
			cp := exam.Submissions[i]
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeMonitor struct {
	mu     sync.Mutex
	events []model.MonitorEvent
}

func (f *fakeMonitor) Publish(_ context.Context, event model.MonitorEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeMonitor) byType(t model.MonitorEventType) []model.MonitorEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MonitorEvent
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestService(t *testing.T) (*ExamService, *fakeExamStore, *fakeMonitor) {
	t.Helper()
	exams := newFakeExamStore()
	monitor := &fakeMonitor{}
	svc := NewExamService(exams, &fakeSubStore{exams: exams}, monitor, zerolog.Nop())
	return svc, exams, monitor
}

func intPtr(n int) *int { return &n }

func draftExam() *model.CreateExamRequest {
	return &model.CreateExamRequest{
		Title:       "Algebra Midterm",
		Subject:     "Math",
		Description: "Covers chapters 1-4",
		Duration:    60,
		Questions: []model.QuestionRequest{
			{Text: "2+2?", Options: []string{"3", "4", "5"}, CorrectOption: intPtr(1)},
			{Text: "3*3?", Options: []string{"6", "9"}, CorrectOption: intPtr(1)},
			{Text: "10/2?", Options: []string{"5", "2"}, CorrectOption: intPtr(0)},
			{Text: "7-4?", Options: []string{"3", "4"}, CorrectOption: intPtr(0)},
		},
	}
}

func mustCreate(t *testing.T, svc *ExamService, teacherID string) *model.TeacherExamView {
	t.Helper()
	view, err := svc.Create(context.Background(), teacherID, draftExam())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return view
}

func submitReq(pairs ...[2]int) *model.SubmitExamRequest {
	req := &model.SubmitExamRequest{}
	for _, p := range pairs {
		req.Answers = append(req.Answers, model.AnswerRequest{
			QuestionIndex:  intPtr(p[0]),
			SelectedOption: intPtr(p[1]),
		})
	}
	return req
}

func TestCreateRejectsCorrectOptionOutOfRange(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := draftExam()
	req.Questions[1].CorrectOption = intPtr(5)
	req.Questions[3].CorrectOption = intPtr(2)

	_, err := svc.Create(context.Background(), "t1", req)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Message, "question 1") || !strings.Contains(verr.Message, "question 3") {
		t.Errorf("message should aggregate both problems, got %q", verr.Message)
	}
}

func TestCreateAssignsOwnerAndID(t *testing.T) {
	svc, _, _ := newTestService(t)

	view := mustCreate(t, svc, "t1")
	if view.ID == uuid.Nil {
		t.Error("exam id not assigned")
	}
	if view.TeacherID != "t1" {
		t.Errorf("owner = %q, want t1", view.TeacherID)
	}
	if len(view.Questions) != 4 {
		t.Errorf("questions = %d, want 4", len(view.Questions))
	}
}

func TestSubmitGradesAndRecords(t *testing.T) {
	svc, _, monitor := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	res, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1}, [2]int{1, 0}, [2]int{2, 0}, [2]int{3, 0}))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 75 {
		t.Errorf("score = %d, want 75", res.Score)
	}
	if len(res.Answers) != 4 {
		t.Fatalf("answers = %d, want 4", len(res.Answers))
	}
	if res.Answers[1].IsCorrect {
		t.Error("answer 1 should be wrong")
	}

	events := monitor.byType(model.MonitorEventSubmission)
	if len(events) != 1 {
		t.Fatalf("submission events = %d, want 1", len(events))
	}
	if events[0].Score == nil || *events[0].Score != 75 {
		t.Error("monitor event should carry the score")
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	if _, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1})); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 0}))
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmitConcurrentOnlyOneWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	const attempts = 8
	errs := make(chan error, attempts)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		go func() {
			start.Wait()
			_, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1}))
			errs <- err
		}()
	}
	start.Done()

	var ok, dup int
	for i := 0; i < attempts; i++ {
		err := <-errs
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadySubmitted):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != attempts-1 {
		t.Fatalf("got %d successes and %d duplicates, want 1 and %d", ok, dup, attempts-1)
	}
}

func TestSubmitRejectsBadIndexes(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	_, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{9, 0}))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	// A rejected submit must not consume the student's single attempt.
	if _, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1})); err != nil {
		t.Fatalf("retry after rejected submit: %v", err)
	}
}

func TestSubmitMissingExam(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Submit(context.Background(), "s1", uuid.New(), submitReq())
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound, got %v", err)
	}
}

func TestUpdateOwnershipAndSubmissionGuard(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	patch := &model.UpdateExamRequest{
		Title:       "Algebra Midterm v2",
		Subject:     "Math",
		Description: "Updated",
		Duration:    45,
		Questions:   draftExam().Questions,
	}

	if _, err := svc.Update(context.Background(), "t2", exam.ID, patch); !errors.Is(err, ErrNotExamOwner) {
		t.Fatalf("non-owner update: expected ErrNotExamOwner, got %v", err)
	}

	view, err := svc.Update(context.Background(), "t1", exam.ID, patch)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if view.Title != "Algebra Midterm v2" || view.Duration != 45 {
		t.Error("update did not apply")
	}

	if _, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1})); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Update(context.Background(), "t1", exam.ID, patch); !errors.Is(err, ErrHasSubmissions) {
		t.Fatalf("update with submissions: expected ErrHasSubmissions, got %v", err)
	}
}

func TestDeleteOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	if err := svc.Delete(context.Background(), "t2", exam.ID); !errors.Is(err, ErrNotExamOwner) {
		t.Fatalf("non-owner delete: expected ErrNotExamOwner, got %v", err)
	}
	if err := svc.Delete(context.Background(), "t1", exam.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := svc.GetForTeacher(context.Background(), "t1", exam.ID); !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("expected ErrExamNotFound after delete, got %v", err)
	}
}

func TestVerifySubmission(t *testing.T) {
	svc, _, monitor := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	if _, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1})); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	full, err := svc.GetForTeacher(context.Background(), "t1", exam.ID)
	if err != nil {
		t.Fatalf("GetForTeacher: %v", err)
	}
	subID := full.Submissions[0].ID

	if _, err := svc.VerifySubmission(context.Background(), "t2", exam.ID, subID); !errors.Is(err, ErrNotExamOwner) {
		t.Fatalf("non-owner verify: expected ErrNotExamOwner, got %v", err)
	}
	if _, err := svc.VerifySubmission(context.Background(), "t1", exam.ID, uuid.New()); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("missing submission: expected ErrSubmissionNotFound, got %v", err)
	}

	sub, err := svc.VerifySubmission(context.Background(), "t1", exam.ID, subID)
	if err != nil {
		t.Fatalf("VerifySubmission: %v", err)
	}
	if !sub.Verified || sub.VerifiedBy != "t1" || sub.VerifiedAt == nil {
		t.Errorf("verification fields not set: %+v", sub)
	}

	if len(monitor.byType(model.MonitorEventVerification)) != 1 {
		t.Error("expected one verification monitor event")
	}
}

func TestStudentViewRedaction(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	// Before any submission: bare questions, no submissions.
	view, err := svc.GetForStudent(context.Background(), "s1", exam.ID)
	if err != nil {
		t.Fatalf("GetForStudent: %v", err)
	}
	if len(view.Submissions) != 0 {
		t.Errorf("submissions = %d, want 0", len(view.Submissions))
	}
	for i, q := range view.Questions {
		if q.SelectedOption != nil {
			t.Errorf("question %d: selectedOption leaked before submission", i)
		}
	}

	if _, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1}, [2]int{1, 0})); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "s2", exam.ID, submitReq([2]int{0, 0})); err != nil {
		t.Fatalf("Submit s2: %v", err)
	}

	// Unverified: own submission visible, no selections merged into questions.
	view, err = svc.GetForStudent(context.Background(), "s1", exam.ID)
	if err != nil {
		t.Fatalf("GetForStudent: %v", err)
	}
	if len(view.Submissions) != 1 || view.Submissions[0].StudentID != "s1" {
		t.Fatalf("expected only own submission, got %+v", view.Submissions)
	}
	for i, q := range view.Questions {
		if q.SelectedOption != nil {
			t.Errorf("question %d: selectedOption leaked before verification", i)
		}
	}

	full, err := svc.GetForTeacher(context.Background(), "t1", exam.ID)
	if err != nil {
		t.Fatalf("GetForTeacher: %v", err)
	}
	var ownID uuid.UUID
	for _, sub := range full.Submissions {
		if sub.StudentID == "s1" {
			ownID = sub.ID
		}
	}
	if _, err := svc.VerifySubmission(context.Background(), "t1", exam.ID, ownID); err != nil {
		t.Fatalf("VerifySubmission: %v", err)
	}

	// Verified: own picks merged in by index, unanswered stay nil.
	view, err = svc.GetForStudent(context.Background(), "s1", exam.ID)
	if err != nil {
		t.Fatalf("GetForStudent: %v", err)
	}
	if view.Questions[0].SelectedOption == nil || *view.Questions[0].SelectedOption != 1 {
		t.Errorf("question 0 selectedOption = %v, want 1", view.Questions[0].SelectedOption)
	}
	if view.Questions[1].SelectedOption == nil || *view.Questions[1].SelectedOption != 0 {
		t.Errorf("question 1 selectedOption = %v, want 0", view.Questions[1].SelectedOption)
	}
	if view.Questions[2].SelectedOption != nil {
		t.Error("question 2 was not answered, selectedOption should be absent")
	}
}

func TestTeacherViewsScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	mine := mustCreate(t, svc, "t1")
	mustCreate(t, svc, "t2")

	list, err := svc.ListForTeacher(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ListForTeacher: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("expected only own exam, got %d", len(list))
	}

	if _, err := svc.GetForTeacher(context.Background(), "t2", mine.ID); !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("foreign exam: expected ErrExamNotFound, got %v", err)
	}
}

func TestTeacherSubmissionAnswersRedacted(t *testing.T) {
	svc, _, _ := newTestService(t)
	exam := mustCreate(t, svc, "t1")

	if _, err := svc.Submit(context.Background(), "s1", exam.ID, submitReq([2]int{0, 1}, [2]int{1, 1})); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	list, err := svc.ListForTeacher(context.Background(), "t1")
	if err != nil {
		t.Fatalf("ListForTeacher: %v", err)
	}
	if len(list[0].Submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(list[0].Submissions))
	}
	answers := list[0].Submissions[0].Answers
	if len(answers) != 2 {
		t.Fatalf("answers = %d, want 2", len(answers))
	}
	if answers[0].QuestionIndex != 0 || answers[0].SelectedOption != 1 {
		t.Errorf("answer 0 = %+v", answers[0])
	}
}

func TestListForStudentCoversAllExams(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustCreate(t, svc, "t1")
	mustCreate(t, svc, "t2")

	list, err := svc.ListForStudent(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListForStudent: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("exams = %d, want 2", len(list))
	}
}
