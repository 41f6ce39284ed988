package assistant

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"strings"

	"emperror.dev/errors"

	"imageqa/internal/models"
	"imageqa/internal/service/ai"
	"imageqa/internal/service/fetcher"
	"imageqa/internal/service/loader"
	"imageqa/internal/storage"
)

// Fetcher downloads the submitted image.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Download, error)
}

// Service runs one submission end to end: fetch, save, decode, answer.
// It is built once at startup and shared by every request.
type Service struct {
	store   *storage.Store
	fetcher Fetcher
	model   ai.Model
	logger  *slog.Logger
}

// NewService wires the collaborators. A nil fetcher uses the default HTTP client.
func NewService(store *storage.Store, f Fetcher, model ai.Model, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if model == nil {
		return nil, errors.New("model is required")
	}
	if f == nil {
		f = fetcher.New(http.DefaultClient)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, fetcher: f, model: model, logger: logger}, nil
}

// ModelName reports the loaded model.
func (s *Service) ModelName() string {
	return s.model.Name()
}

// Ask processes req. On failure the error is a *FetchError, *DecodeError or
// *InferenceError; after an InferenceError the result still carries the
// saved image but no answers.
func (s *Service) Ask(ctx context.Context, req models.Request, requestID string) (*models.Result, error) {
	log := s.logger.With("requestID", requestID, "imageURL", req.ImageURL)

	stored, err := s.saveImage(ctx, req.ImageURL, requestID)
	if err != nil {
		log.WarnContext(ctx, "image not available", "error", err)
		return nil, err
	}
	log.InfoContext(ctx, "image saved",
		"name", stored.Name,
		"size", stored.Size,
		"format", stored.Format)

	answers, err := s.Answer(ctx, stored.Bitmap, req.Questions)
	if err != nil {
		log.WarnContext(ctx, "answering failed", "error", err)
		return &models.Result{Image: stored, Answers: []models.AnswerPair{}}, err
	}
	log.InfoContext(ctx, "questions answered", "count", len(answers))
	return &models.Result{Image: stored, Answers: answers}, nil
}

// saveImage downloads, writes and decodes the image while holding the storage key.
func (s *Service) saveImage(ctx context.Context, rawURL, requestID string) (*models.StoredImage, error) {
	dl, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, newFetchError(rawURL, err)
	}
	key, err := s.store.Key(rawURL, requestID, dl.Body)
	if err != nil {
		return nil, newFetchError(rawURL, err)
	}

	unlock, err := s.store.Lock(ctx, key)
	if err != nil {
		return nil, newFetchError(rawURL, errors.Wrap(err, "lock storage key"))
	}
	defer unlock()

	path, err := s.store.Write(key, dl.Body)
	if err != nil {
		return nil, newFetchError(rawURL, err)
	}
	decoded, err := loader.Load(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	bounds := decoded.Bitmap.Bounds()
	return &models.StoredImage{
		Name:        key,
		Path:        path,
		SourceURL:   rawURL,
		ContentType: dl.ContentType,
		Size:        int64(len(dl.Body)),
		Format:      decoded.Format,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Bitmap:      decoded.Bitmap,
	}, nil
}

// Answer runs one inference per non-blank question, in order. Blank entries
// are skipped and do not consume an index. The first failure aborts the loop.
func (s *Service) Answer(ctx context.Context, img image.Image, questions []string) ([]models.AnswerPair, error) {
	answers := make([]models.AnswerPair, 0, len(questions))
	for _, q := range models.ParseQuestions(strings.Join(questions, "\n")) {
		index := len(answers) + 1
		enc, err := s.model.Encode(ctx, img, q)
		if err != nil {
			return nil, &InferenceError{Index: index, Question: q, Err: err}
		}
		out, err := s.model.Generate(ctx, enc)
		if err != nil {
			return nil, &InferenceError{Index: index, Question: q, Err: err}
		}
		answers = append(answers, models.AnswerPair{
			Index:    index,
			Question: q,
			Answer:   s.model.Decode(out),
		})
	}
	return answers, nil
}
