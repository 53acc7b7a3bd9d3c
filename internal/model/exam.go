package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is the root document. It exclusively owns its questions and
// submissions; both live and die with the exam.
type Exam struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Duration    int          `json:"duration"` // minutes
	Questions   []Question   `json:"questions"`
	TeacherID   string       `json:"teacher"`
	Submissions []Submission `json:"submissions"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Question is a multiple-choice question. The position of an option in
// Options is the option's identity; question order inside an exam is
// significant and referenced by index.
type Question struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title       string            `json:"title" binding:"required,max=100"`
	Subject     string            `json:"subject" binding:"required"`
	Description string            `json:"description" binding:"required"`
	Duration    int               `json:"duration" binding:"required,min=1"`
	Questions   []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// UpdateExamRequest replaces the gradeable fields wholesale. Updates are
// rejected once the exam has submissions, so a full replace is safe.
type UpdateExamRequest struct {
	Title       string            `json:"title" binding:"required,max=100"`
	Subject     string            `json:"subject" binding:"required"`
	Description string            `json:"description" binding:"required"`
	Duration    int               `json:"duration" binding:"required,min=1"`
	Questions   []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// QuestionRequest carries one question in a create/update payload.
// CorrectOption is a pointer so that index 0 survives the required check;
// the upper bound (must address an existing option) is validated in the
// service where the option list is known.
type QuestionRequest struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required,min=1,dive,required"`
	CorrectOption *int     `json:"correctOption" binding:"required,min=0"`
}

// StudentQuestionView is a question as a student is allowed to see it.
// CorrectOption is never present. SelectedOption is merged in from the
// student's own submission once a teacher has verified it.
type StudentQuestionView struct {
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	SelectedOption *int     `json:"selectedOption,omitempty"`
}

// StudentExamView is an exam as returned to a student: question detail
// redacted per verification state, submissions reduced to the caller's own.
type StudentExamView struct {
	ID          uuid.UUID             `json:"id"`
	Title       string                `json:"title"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Duration    int                   `json:"duration"`
	Questions   []StudentQuestionView `json:"questions"`
	TeacherID   string                `json:"teacher"`
	Submissions []Submission          `json:"submissions"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// TeacherAnswerView is an answer inside a teacher's submission list.
// IsCorrect is withheld; correctness surfaces only through the score
// aggregate and the explicit verification action.
type TeacherAnswerView struct {
	QuestionIndex  int `json:"questionIndex"`
	SelectedOption int `json:"selectedOption"`
}

// TeacherSubmissionView is a submission as shown to the owning teacher.
type TeacherSubmissionView struct {
	ID            uuid.UUID           `json:"id"`
	StudentID     string              `json:"student"`
	Answers       []TeacherAnswerView `json:"answers"`
	Score         int                 `json:"score"`
	Verified      bool                `json:"verified"`
	VerifiedAt    *time.Time          `json:"verifiedAt,omitempty"`
	VerifiedBy    string              `json:"verifiedBy,omitempty"`
	SubmittedAt   time.Time           `json:"submittedAt"`
	AutoSubmitted bool                `json:"autoSubmitted,omitempty"`
	SubmitReason  string              `json:"submitReason,omitempty"`
}

// TeacherExamView is an exam as returned to its owning teacher: the full
// question list (answer key included) with redacted submissions.
type TeacherExamView struct {
	ID          uuid.UUID               `json:"id"`
	Title       string                  `json:"title"`
	Subject     string                  `json:"subject"`
	Description string                  `json:"description"`
	Duration    int                     `json:"duration"`
	Questions   []Question              `json:"questions"`
	TeacherID   string                  `json:"teacher"`
	Submissions []TeacherSubmissionView `json:"submissions"`
	CreatedAt   time.Time               `json:"createdAt"`
}
