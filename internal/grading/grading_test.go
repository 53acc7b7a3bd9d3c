package grading

import (
	"errors"
	"testing"

	"github.com/examly/examly-backend/internal/model"
)

func fourQuestions() []model.Question {
	// Correct keys: [0, 1, 1, 3]
	return []model.Question{
		{Text: "Q1", Options: []string{"a", "b", "c", "d"}, CorrectOption: 0},
		{Text: "Q2", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
		{Text: "Q3", Options: []string{"a", "b", "c", "d"}, CorrectOption: 1},
		{Text: "Q4", Options: []string{"a", "b", "c", "d"}, CorrectOption: 3},
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name        string
		questions   []model.Question
		answers     []Input
		wantScore   int
		wantCorrect []bool
		wantErr     error
	}{
		{
			name:        "all correct scores 100",
			questions:   fourQuestions(),
			answers:     []Input{{0, 0}, {1, 1}, {2, 1}, {3, 3}},
			wantScore:   100,
			wantCorrect: []bool{true, true, true, true},
		},
		{
			name:        "one wrong scores 75",
			questions:   fourQuestions(),
			answers:     []Input{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
			wantScore:   75,
			wantCorrect: []bool{true, true, false, true},
		},
		{
			name:        "empty answer set scores 0",
			questions:   fourQuestions(),
			answers:     nil,
			wantScore:   0,
			wantCorrect: []bool{},
		},
		{
			name:        "partial set divides by full question count",
			questions:   fourQuestions(),
			answers:     []Input{{0, 0}},
			wantScore:   25,
			wantCorrect: []bool{true},
		},
		{
			name:      "one of three rounds to nearest",
			questions: fourQuestions()[:3],
			answers:   []Input{{0, 0}, {1, 2}, {2, 2}},
			// 1/3 -> 33.33 -> 33
			wantScore:   33,
			wantCorrect: []bool{true, false, false},
		},
		{
			name:      "two of three rounds up",
			questions: fourQuestions()[:3],
			answers:   []Input{{0, 0}, {1, 1}, {2, 2}},
			// 2/3 -> 66.67 -> 67
			wantScore:   67,
			wantCorrect: []bool{true, true, false},
		},
		{
			name:        "out of range selection is just incorrect",
			questions:   fourQuestions(),
			answers:     []Input{{0, 9}},
			wantScore:   0,
			wantCorrect: []bool{false},
		},
		{
			name:      "question index past end rejects submission",
			questions: fourQuestions(),
			answers:   []Input{{0, 0}, {4, 1}},
			wantErr:   ErrIndexOutOfRange,
		},
		{
			name:      "negative question index rejects submission",
			questions: fourQuestions(),
			answers:   []Input{{-1, 0}},
			wantErr:   ErrIndexOutOfRange,
		},
		{
			name:      "duplicate question index rejects submission",
			questions: fourQuestions(),
			answers:   []Input{{1, 1}, {1, 1}},
			wantErr:   ErrDuplicateIndex,
		},
		{
			name:    "no questions rejects submission",
			answers: []Input{{0, 0}},
			wantErr: ErrNoQuestions,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			graded, score, err := Grade(tc.questions, tc.answers)

			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if score != tc.wantScore {
				t.Fatalf("expected score %d, got %d", tc.wantScore, score)
			}
			if len(graded) != len(tc.wantCorrect) {
				t.Fatalf("expected %d graded answers, got %d", len(tc.wantCorrect), len(graded))
			}
			for i, want := range tc.wantCorrect {
				if graded[i].IsCorrect != want {
					t.Errorf("answer %d: expected isCorrect=%v, got %v", i, want, graded[i].IsCorrect)
				}
			}
		})
	}
}

func TestGradeIsDeterministic(t *testing.T) {
	questions := fourQuestions()
	answers := []Input{{0, 0}, {1, 1}, {2, 2}, {3, 3}}

	first, firstScore, err := Grade(questions, answers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		graded, score, err := Grade(questions, answers)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if score != firstScore {
			t.Fatalf("score changed across runs: %d vs %d", firstScore, score)
		}
		for j := range graded {
			if graded[j] != first[j] {
				t.Fatalf("graded answer %d changed across runs", j)
			}
		}
	}
}

func TestGradeDoesNotMutateInput(t *testing.T) {
	questions := fourQuestions()
	answers := []Input{{0, 3}}

	if _, _, err := Grade(questions, answers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if questions[0].CorrectOption != 0 || answers[0].SelectedOption != 3 {
		t.Fatal("grading mutated its input")
	}
}
