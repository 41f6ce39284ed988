package models

import (
	"reflect"
	"testing"
)

func TestParseQuestionsSkipsBlankLines(t *testing.T) {
	got := ParseQuestions("What animal is this?\n\nWhat color is it?")
	want := []string{"What animal is this?", "What color is it?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestParseQuestionsTrimsAndHandlesCRLF(t *testing.T) {
	got := ParseQuestions("  first  \r\n \t \r\nsecond\r\n\r\n")
	want := []string{"first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestParseQuestionsEmptyBlock(t *testing.T) {
	if got := ParseQuestions(" \n\n "); len(got) != 0 {
		t.Fatalf("expected no questions, got %q", got)
	}
}

func TestNewRequestTrimsURL(t *testing.T) {
	req := NewRequest("  https://example.com/cat.jpg?x=1 \n", "a\nb")
	if req.ImageURL != "https://example.com/cat.jpg?x=1" {
		t.Fatalf("unexpected url %q", req.ImageURL)
	}
	if len(req.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(req.Questions))
	}
}
