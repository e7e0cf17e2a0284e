package quizgen

import (
	"fmt"
	"strings"
)

const promptTemplate = `Based on the following content, generate exactly 5 multiple choice questions.

Return STRICT JSON in this format, with no surrounding prose or markdown:
{
  "questions": [
    {
      "question": "Question text",
      "options": ["A", "B", "C", "D"],
      "correctAnswer": 0
    }
  ]
}

Each question must have exactly 4 options, and correctAnswer must be the zero-based index of the right option.

Content:
%s`

// BuildPrompt embeds the ordered document chunks verbatim into the quiz
// generation prompt.
func BuildPrompt(chunks []string) string {
	return fmt.Sprintf(promptTemplate, strings.Join(chunks, "\n\n"))
}
