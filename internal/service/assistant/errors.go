package assistant

import (
	"fmt"

	"emperror.dev/errors"

	"imageqa/internal/service/fetcher"
)

const downloadFailedMessage = "Failed to download the image. Please check the URL."

// FetchError covers everything up to the image being on disk: bad URLs,
// transport failures, non-200 responses and write failures.
type FetchError struct {
	URL        string
	StatusCode int // 0 unless the server answered with a non-200 status
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports saved bytes that are not a readable image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InferenceError reports a failed model call for one question.
type InferenceError struct {
	Index    int
	Question string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("answer question %d %q: %v", e.Index, e.Question, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func newFetchError(rawURL string, err error) *FetchError {
	fe := &FetchError{URL: rawURL, Err: err}
	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		fe.StatusCode = statusErr.StatusCode
	}
	return fe
}

// UserMessage renders err the way the page shows it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return downloadFailedMessage
	}
	return "An error occurred: " + err.Error()
}

// Kind names the failure class of err for API clients.
func Kind(err error) string {
	var (
		fe *FetchError
		de *DecodeError
		ie *InferenceError
	)
	switch {
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &ie):
		return "inference"
	default:
		return "internal"
	}
}
