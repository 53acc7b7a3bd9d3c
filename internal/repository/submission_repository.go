package repository

import (
	"context"
	"fmt"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SubmissionRepository struct {
	pool *pgxpool.Pool
}

func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create records a student's submission for an exam. The UNIQUE constraint
// on (exam_id, student_id) makes this safe under concurrent submits: the
// second writer gets no row back and the caller sees pgx.ErrNoRows.
func (r *SubmissionRepository) Create(ctx context.Context, examID uuid.UUID, sub *model.Submission) error {
	query := `
		INSERT INTO submissions (id, exam_id, student_id, answers, score, auto_submitted, submit_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (exam_id, student_id) DO NOTHING
		RETURNING submitted_at
	`

	return r.pool.QueryRow(ctx, query,
		sub.ID,
		examID,
		sub.StudentID,
		sub.Answers,
		sub.Score,
		sub.AutoSubmitted,
		sub.SubmitReason,
	).Scan(&sub.SubmittedAt)
}

// Verify marks a submission as reviewed by a teacher. Returns pgx.ErrNoRows
// when the submission does not belong to the exam or does not exist.
func (r *SubmissionRepository) Verify(ctx context.Context, examID, submissionID uuid.UUID, teacherID string) (*model.Submission, error) {
	query := `
		UPDATE submissions
		SET verified = TRUE, verified_at = NOW(), verified_by = $3
		WHERE id = $2 AND exam_id = $1
		RETURNING id, student_id, answers, score, verified, verified_at,
		          COALESCE(verified_by, ''), submitted_at, auto_submitted, COALESCE(submit_reason, '')
	`

	var sub model.Submission
	err := r.pool.QueryRow(ctx, query, examID, submissionID, teacherID).Scan(
		&sub.ID,
		&sub.StudentID,
		&sub.Answers,
		&sub.Score,
		&sub.Verified,
		&sub.VerifiedAt,
		&sub.VerifiedBy,
		&sub.SubmittedAt,
		&sub.AutoSubmitted,
		&sub.SubmitReason,
	)
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// InsertViolations bulk-inserts persisted proctoring violations. It uses
// CopyFrom for throughput and falls back to row-by-row inserts if the copy
// fails, returning the rows that could not be written so the caller can
// requeue them.
func (r *SubmissionRepository) InsertViolations(ctx context.Context, events []model.ViolationEvent) ([]model.ViolationEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	rows := make([][]any, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []any{ev.ExamID, ev.StudentID, string(ev.Type), ev.Detail, ev.OccurredAt})
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"exam_violations"},
		[]string{"exam_id", "student_id", "type", "detail", "occurred_at"},
		pgx.CopyFromRows(rows),
	)
	if err == nil {
		return nil, nil
	}

	// Copy is all-or-nothing. Retry each row so one bad event cannot block
	// the rest of the batch.
	query := `
		INSERT INTO exam_violations (exam_id, student_id, type, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	var failed []model.ViolationEvent
	for _, ev := range events {
		if _, rowErr := r.pool.Exec(ctx, query, ev.ExamID, ev.StudentID, string(ev.Type), ev.Detail, ev.OccurredAt); rowErr != nil {
			failed = append(failed, ev)
		}
	}

	if len(failed) > 0 {
		return failed, fmt.Errorf("insert violations: %d of %d rows failed: %w", len(failed), len(events), err)
	}
	return nil, nil
}

// ViolationsByExam lists persisted violations for an exam, newest first.
func (r *SubmissionRepository) ViolationsByExam(ctx context.Context, examID uuid.UUID) ([]model.ViolationEvent, error) {
	query := `
		SELECT exam_id, student_id, type, detail, occurred_at
		FROM exam_violations
		WHERE exam_id = $1
		ORDER BY occurred_at DESC
	`

	rows, err := r.pool.Query(ctx, query, examID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	events := make([]model.ViolationEvent, 0)
	for rows.Next() {
		var ev model.ViolationEvent
		if err := rows.Scan(&ev.ExamID, &ev.StudentID, &ev.Type, &ev.Detail, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}
