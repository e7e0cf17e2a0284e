package tutor

import "fmt"

const promptTemplate = `You are a personal tutor. A student studying %s has shown the following weaknesses across recent lesson attempts, one per line, oldest first:

%s

Generate exactly 5 multiple choice questions that target these weaknesses so the student can practice them.

Return STRICT JSON in this format, with no surrounding prose or markdown:
{
  "questions": [
    {
      "question": "Question text",
      "options": ["A", "B", "C", "D"],
      "correctIndex": 0,
      "explanation": "Why the right answer is right",
      "difficulty": "easy"
    }
  ]
}

Each question must have exactly 4 options, correctIndex must be the zero-based index of the right option, and difficulty must be one of "easy", "medium", or "hard".`

// BuildPrompt renders the tutoring prompt for a subject and the student's
// flattened weakness labels.
func BuildPrompt(subject, weaknesses string) string {
	return fmt.Sprintf(promptTemplate, subject, weaknesses)
}
