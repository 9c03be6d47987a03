// Package answer builds oracle prompts and parses oracle replies into
// selections over a question's option set.
package answer

import (
	"fmt"
	"strings"
)

// FreeTextLimit is the reply length requested from the oracle for free-text questions.
const FreeTextLimit = 100

// Letter returns the option letter for index i (0 -> "A").
func Letter(i int) string {
	return string(rune('A' + i))
}

// LetteredPrompt enumerates options as "A. text" lines and asks for a letter.
func LetteredPrompt(question string, options []string) string {
	lines := make([]string, len(options))
	for i, opt := range options {
		lines[i] = fmt.Sprintf("%s. %s", Letter(i), opt)
	}
	return fmt.Sprintf("Question: %s\n\nOptions:\n%s\n\nWhat is the correct answer? Respond with only the letter (A, B, C, D, etc.):",
		question, strings.Join(lines, "\n"))
}

// LiteralPrompt lists options inline and asks for the exact option text.
func LiteralPrompt(question string, options []string) string {
	return fmt.Sprintf("Question: %s\n\nAvailable options: %s\n\nWhich option is most appropriate? Respond with the exact option text:",
		question, strings.Join(options, ", "))
}

// ScalePrompt asks for a rating between 1 and n.
func ScalePrompt(question string, n int) string {
	return fmt.Sprintf("Rate this on a scale from 1 to %d: \"%s\". Respond with only the number (1, 2, 3, etc.):", n, question)
}

// FreeTextPrompt asks for a short free-form answer.
func FreeTextPrompt(question string) string {
	return fmt.Sprintf("Provide a brief, appropriate answer for this question: \"%s\". Keep it under %d characters:", question, FreeTextLimit)
}

// GridRowPrompt asks for one row of a grid with the lettered protocol.
func GridRowPrompt(question, row string, options []string) string {
	return LetteredPrompt(fmt.Sprintf("%s - %s", question, row), options)
}
