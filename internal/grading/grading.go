// Package grading implements the pure scoring logic for exam submissions.
// It has no side effects and no dependencies beyond the data model; grading
// the same input twice always yields the same output.
package grading

import (
	"errors"
	"fmt"
	"math"

	"github.com/examly/examly-backend/internal/model"
)

// Input errors. Any of these rejects the whole submission; answers are
// never silently skipped.
var (
	ErrNoQuestions     = errors.New("exam has no questions")
	ErrIndexOutOfRange = errors.New("questionIndex does not address an existing question")
	ErrDuplicateIndex  = errors.New("duplicate questionIndex in answer set")
)

// Input is one candidate answer prior to grading.
type Input struct {
	QuestionIndex  int
	SelectedOption int
}

// Grade compares the candidate answers against the exam's answer key and
// returns the graded answers plus the aggregate percentage score.
//
// The score denominator is the exam's full question count, never the number
// of answers submitted: a partially answered exam scores proportionally low.
func Grade(questions []model.Question, answers []Input) ([]model.Answer, int, error) {
	if len(questions) == 0 {
		return nil, 0, ErrNoQuestions
	}

	seen := make(map[int]struct{}, len(answers))
	graded := make([]model.Answer, 0, len(answers))
	correct := 0

	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(questions) {
			return nil, 0, fmt.Errorf("%w: index %d, question count %d",
				ErrIndexOutOfRange, a.QuestionIndex, len(questions))
		}
		if _, dup := seen[a.QuestionIndex]; dup {
			return nil, 0, fmt.Errorf("%w: index %d", ErrDuplicateIndex, a.QuestionIndex)
		}
		seen[a.QuestionIndex] = struct{}{}

		isCorrect := a.SelectedOption == questions[a.QuestionIndex].CorrectOption
		if isCorrect {
			correct++
		}
		graded = append(graded, model.Answer{
			QuestionIndex:  a.QuestionIndex,
			SelectedOption: a.SelectedOption,
			IsCorrect:      isCorrect,
		})
	}

	score := int(math.Round(float64(correct) / float64(len(questions)) * 100))
	return graded, score, nil
}
