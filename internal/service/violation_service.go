package service

import (
	"context"
	"fmt"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ViolationSink accepts violation events for asynchronous persistence.
// Implemented by repository.ViolationQueue.
type ViolationSink interface {
	Enqueue(ctx context.Context, ev model.ViolationEvent) error
}

// ViolationStore reads back persisted violations.
type ViolationStore interface {
	ViolationsByExam(ctx context.Context, examID uuid.UUID) ([]model.ViolationEvent, error)
}

// ViolationService records integrity violations reported by exam-taking
// clients. Events go to a queue for batch persistence and onto the exam's
// live monitor channel so the owning teacher sees them as they happen.
type ViolationService struct {
	exams   ExamStore
	sink    ViolationSink
	store   ViolationStore
	monitor MonitorPublisher
	log     zerolog.Logger
}

func NewViolationService(exams ExamStore, sink ViolationSink, store ViolationStore, monitor MonitorPublisher, log zerolog.Logger) *ViolationService {
	return &ViolationService{
		exams:   exams,
		sink:    sink,
		store:   store,
		monitor: monitor,
		log:     log.With().Str("component", "violation_service").Logger(),
	}
}

// Report enqueues one violation for the calling student on the given exam.
func (s *ViolationService) Report(ctx context.Context, studentID string, examID uuid.UUID, req *model.ReportViolationRequest) error {
	if _, err := getExamVia(ctx, s.exams, examID); err != nil {
		return err
	}

	ev := model.ViolationEvent{
		ExamID:     examID,
		StudentID:  studentID,
		Type:       req.Type,
		Detail:     req.Detail,
		OccurredAt: time.Now(),
	}

	if err := s.sink.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("enqueue violation: %w", err)
	}

	s.log.Debug().
		Str("exam_id", examID.String()).
		Str("student_id", studentID).
		Str("type", string(ev.Type)).
		Msg("violation reported")

	if s.monitor != nil {
		event := model.MonitorEvent{
			Type:      model.MonitorEventViolation,
			ExamID:    examID,
			StudentID: studentID,
			Detail:    string(req.Type),
			At:        ev.OccurredAt,
		}
		if err := s.monitor.Publish(ctx, event); err != nil {
			s.log.Warn().Err(err).
				Str("exam_id", examID.String()).
				Msg("failed to publish violation to monitor")
		}
	}

	return nil
}

// ListForExam returns the persisted violations for an exam. Owner only; a
// foreign exam is reported as not found.
func (s *ViolationService) ListForExam(ctx context.Context, teacherID string, examID uuid.UUID) ([]model.ViolationEvent, error) {
	exam, err := getExamVia(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	if exam.TeacherID != teacherID {
		return nil, ErrExamNotFound
	}

	events, err := s.store.ViolationsByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return events, nil
}
