// Package model defines the shared domain types for the study coach backend.
package model

import (
	"github.com/rotisserie/eris"
)

// ErrSchema indicates that model output parsed as JSON but does not match
// the expected quiz shape.
var ErrSchema = eris.New("model output failed schema validation")

// optionCount is the required number of answer options per question.
const optionCount = 4

// QuestionCount is the number of questions every generated quiz must contain.
const QuestionCount = 5

// Question is a single multiple-choice question in its basic form.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Quiz is a generated multiple-choice quiz.
type Quiz struct {
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// Validate checks the quiz against the shape the prompt demands.
func (q *Quiz) Validate() error {
	if len(q.Questions) != QuestionCount {
		return eris.Wrapf(ErrSchema, "expected %d questions, got %d", QuestionCount, len(q.Questions))
	}
	for i, question := range q.Questions {
		if question.Question == "" {
			return eris.Wrapf(ErrSchema, "question %d: empty question text", i)
		}
		if len(question.Options) != optionCount {
			return eris.Wrapf(ErrSchema, "question %d: expected %d options, got %d", i, optionCount, len(question.Options))
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(question.Options) {
			return eris.Wrapf(ErrSchema, "question %d: correctAnswer %d out of range", i, question.CorrectAnswer)
		}
	}
	return nil
}

// Difficulty labels how hard a tutor question is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// TutorQuestion is the richer question form produced by the AI tutor:
// every question carries an explanation and a difficulty label.
type TutorQuestion struct {
	Question     string     `json:"question"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correctIndex"`
	Explanation  string     `json:"explanation"`
	Difficulty   Difficulty `json:"difficulty"`
}

// TutorQuiz is a personalized practice quiz targeting a student's weaknesses.
type TutorQuiz struct {
	Title     string          `json:"title"`
	Questions []TutorQuestion `json:"questions"`
}

// Validate checks the tutor quiz against the stricter tutor shape.
func (q *TutorQuiz) Validate() error {
	if len(q.Questions) != QuestionCount {
		return eris.Wrapf(ErrSchema, "expected %d questions, got %d", QuestionCount, len(q.Questions))
	}
	for i, question := range q.Questions {
		if question.Question == "" {
			return eris.Wrapf(ErrSchema, "question %d: empty question text", i)
		}
		if len(question.Options) != optionCount {
			return eris.Wrapf(ErrSchema, "question %d: expected %d options, got %d", i, optionCount, len(question.Options))
		}
		if question.CorrectIndex < 0 || question.CorrectIndex >= len(question.Options) {
			return eris.Wrapf(ErrSchema, "question %d: correctIndex %d out of range", i, question.CorrectIndex)
		}
		if question.Explanation == "" {
			return eris.Wrapf(ErrSchema, "question %d: missing explanation", i)
		}
		if !question.Difficulty.valid() {
			return eris.Wrapf(ErrSchema, "question %d: unknown difficulty %q", i, question.Difficulty)
		}
	}
	return nil
}
