package repository

import (
	"context"
	"fmt"

	"github.com/examly/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExamRepository struct {
	pool *pgxpool.Pool
}

func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// Create inserts a new exam. Questions are stored as a JSONB document.
func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	query := `
		INSERT INTO exams (id, title, subject, description, duration, questions, teacher_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		exam.ID,
		exam.Title,
		exam.Subject,
		exam.Description,
		exam.Duration,
		exam.Questions,
		exam.TeacherID,
	).Scan(&exam.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}

	return nil
}

// GetByID fetches a single exam with all of its submissions. Returns
// pgx.ErrNoRows when the exam does not exist.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	query := `
		SELECT id, title, subject, description, duration, questions, teacher_id, created_at
		FROM exams
		WHERE id = $1
	`

	var exam model.Exam
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&exam.ID,
		&exam.Title,
		&exam.Subject,
		&exam.Description,
		&exam.Duration,
		&exam.Questions,
		&exam.TeacherID,
		&exam.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	subs, err := r.submissionsFor(ctx, []uuid.UUID{exam.ID})
	if err != nil {
		return nil, err
	}
	exam.Submissions = subs[exam.ID]

	return &exam, nil
}

// ListByTeacher fetches all exams authored by a teacher, submissions included.
func (r *ExamRepository) ListByTeacher(ctx context.Context, teacherID string) ([]model.Exam, error) {
	query := `
		SELECT id, title, subject, description, duration, questions, teacher_id, created_at
		FROM exams
		WHERE teacher_id = $1
		ORDER BY created_at DESC
	`

	return r.list(ctx, query, teacherID)
}

// ListAll fetches every exam, submissions included.
func (r *ExamRepository) ListAll(ctx context.Context) ([]model.Exam, error) {
	query := `
		SELECT id, title, subject, description, duration, questions, teacher_id, created_at
		FROM exams
		ORDER BY created_at DESC
	`

	return r.list(ctx, query)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}
	defer rows.Close()

	exams := make([]model.Exam, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var exam model.Exam
		if err := rows.Scan(
			&exam.ID,
			&exam.Title,
			&exam.Subject,
			&exam.Description,
			&exam.Duration,
			&exam.Questions,
			&exam.TeacherID,
			&exam.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		exams = append(exams, exam)
		ids = append(ids, exam.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(exams) == 0 {
		return exams, nil
	}

	subs, err := r.submissionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range exams {
		exams[i].Submissions = subs[exams[i].ID]
	}

	return exams, nil
}

func (r *ExamRepository) submissionsFor(ctx context.Context, examIDs []uuid.UUID) (map[uuid.UUID][]model.Submission, error) {
	query := `
		SELECT id, exam_id, student_id, answers, score, verified, verified_at,
		       COALESCE(verified_by, ''), submitted_at, auto_submitted, COALESCE(submit_reason, '')
		FROM submissions
		WHERE exam_id = ANY($1)
		ORDER BY submitted_at ASC
	`

	rows, err := r.pool.Query(ctx, query, examIDs)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.Submission)
	for rows.Next() {
		var sub model.Submission
		var examID uuid.UUID
		if err := rows.Scan(
			&sub.ID,
			&examID,
			&sub.StudentID,
			&sub.Answers,
			&sub.Score,
			&sub.Verified,
			&sub.VerifiedAt,
			&sub.VerifiedBy,
			&sub.SubmittedAt,
			&sub.AutoSubmitted,
			&sub.SubmitReason,
		); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out[examID] = append(out[examID], sub)
	}

	return out, rows.Err()
}

// Update rewrites an exam's content in place, but only while it has no
// submissions. Returns pgx.ErrNoRows when a submission already exists for
// the exam.
func (r *ExamRepository) Update(ctx context.Context, exam *model.Exam) error {
	query := `
		UPDATE exams
		SET title = $2, subject = $3, description = $4, duration = $5, questions = $6
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM submissions WHERE exam_id = $1)
		RETURNING id
	`

	var id uuid.UUID
	return r.pool.QueryRow(ctx, query,
		exam.ID,
		exam.Title,
		exam.Subject,
		exam.Description,
		exam.Duration,
		exam.Questions,
	).Scan(&id)
}

// Delete removes an exam and, through ON DELETE CASCADE, its submissions and
// violation records. Returns pgx.ErrNoRows when nothing was deleted.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
