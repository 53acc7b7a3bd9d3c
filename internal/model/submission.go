package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one student's single recorded attempt at an exam. It is
// created exactly once per (exam, student) pair and afterwards mutated only
// by the verification operation.
type Submission struct {
	ID            uuid.UUID  `json:"id"`
	StudentID     string     `json:"student"`
	Answers       []Answer   `json:"answers"`
	Score         int        `json:"score"` // percentage in [0, 100]
	Verified      bool       `json:"verified"`
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`
	VerifiedBy    string     `json:"verifiedBy,omitempty"`
	SubmittedAt   time.Time  `json:"submittedAt"`
	AutoSubmitted bool       `json:"autoSubmitted,omitempty"`
	SubmitReason  string     `json:"submitReason,omitempty"`
}

// Answer records one graded selection. IsCorrect is computed once at
// submission time and never changes.
type Answer struct {
	QuestionIndex  int  `json:"questionIndex"`
	SelectedOption int  `json:"selectedOption"`
	IsCorrect      bool `json:"isCorrect"`
}

// SubmitExamRequest is the payload for submitting an exam attempt.
// An empty answer list is legal: unanswered questions simply score zero.
type SubmitExamRequest struct {
	Answers       []AnswerRequest `json:"answers" binding:"dive"`
	AutoSubmitted bool            `json:"autoSubmitted"`
	Reason        string          `json:"reason" binding:"max=200"`
}

// AnswerRequest carries one candidate answer. Pointers keep index 0 alive
// through the required check.
type AnswerRequest struct {
	QuestionIndex  *int `json:"questionIndex" binding:"required,min=0"`
	SelectedOption *int `json:"selectedOption" binding:"required,min=0"`
}

// SubmitResult is returned to the student immediately after grading.
type SubmitResult struct {
	Score   int      `json:"score"`
	Answers []Answer `json:"answers"`
}
