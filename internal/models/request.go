package models

import "strings"

// Request is one submission: an image URL and its questions, in input order.
type Request struct {
	ImageURL  string   `json:"image_url"`
	Questions []string `json:"questions"`
}

// NewRequest builds a Request from the raw form fields.
func NewRequest(imageURL, questionBlock string) Request {
	return Request{
		ImageURL:  strings.TrimSpace(imageURL),
		Questions: ParseQuestions(questionBlock),
	}
}

// ParseQuestions splits a newline-delimited block into trimmed, non-blank questions.
func ParseQuestions(block string) []string {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")
	questions := make([]string, 0, len(lines))
	for _, line := range lines {
		q := strings.TrimSpace(line)
		if q == "" {
			continue
		}
		questions = append(questions, q)
	}
	return questions
}
