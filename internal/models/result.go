package models

import "image"

// StoredImage is a fetched image persisted under the save directory.
type StoredImage struct {
	Name        string      `json:"name"`
	Path        string      `json:"-"`
	SourceURL   string      `json:"source_url"`
	ContentType string      `json:"content_type"`
	Size        int64       `json:"size"`
	Format      string      `json:"format"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Bitmap      image.Image `json:"-"`
}

// AnswerPair holds one answered question; Index is 1-based over answered questions.
type AnswerPair struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Result captures one processed submission.
type Result struct {
	Image   *StoredImage `json:"image,omitempty"`
	Answers []AnswerPair `json:"answers"`
}
