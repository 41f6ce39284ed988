package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	dl, err := New(srv.Client()).Fetch(context.Background(), srv.URL+"/cat.png?x=1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(dl.Body) != "png-bytes" {
		t.Fatalf("unexpected body %q", dl.Body)
	}
	if dl.ContentType != "image/png" {
		t.Fatalf("unexpected content type %q", dl.ContentType)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(nil).Fetch(context.Background(), srv.URL+"/missing.jpg")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", statusErr.StatusCode)
	}
}

func TestFetchMalformedURL(t *testing.T) {
	_, err := New(nil).Fetch(context.Background(), "://not a url")
	if err == nil {
		t.Fatalf("expected error for malformed url")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Fatalf("malformed url must not look like a status failure")
	}
}

func TestFetchEmptyURL(t *testing.T) {
	if _, err := New(nil).Fetch(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
