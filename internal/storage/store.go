package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"emperror.dev/errors"

	"imageqa/internal/config"
)

// ErrNoFileName is returned when a URL path carries no usable file name.
var ErrNoFileName = errors.NewPlain("url has no file name")

const contentPrefixLen = 16

// Store keeps fetched images in a fixed directory. Nothing is ever cleaned up.
type Store struct {
	dir    string
	naming string
	locker Locker
}

// NewStore creates the directory if absent. A nil locker means an in-process keyed mutex.
func NewStore(dir, naming string, locker Locker) (*Store, error) {
	if dir == "" {
		return nil, errors.New("save directory must be provided")
	}
	switch naming {
	case "":
		naming = config.NamingBasename
	case config.NamingBasename, config.NamingContent, config.NamingSession:
	default:
		return nil, errors.Errorf("unsupported naming policy: %s", naming)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create save directory")
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Store{dir: dir, naming: naming, locker: locker}, nil
}

// Dir returns the root directory images are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Basename derives the local file name from a URL: the path up to any query
// string, stripped of directories.
func Basename(rawURL string) (string, error) {
	p, _, _ := strings.Cut(rawURL, "?")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		p = p[idx+1:]
	}
	if p == "" || p == "." || p == ".." {
		return "", errors.WithDetails(ErrNoFileName, "url", rawURL)
	}
	return p, nil
}

// Key returns the storage key of a download under the configured naming policy.
// Keys are slash separated and relative to the save directory.
func (s *Store) Key(rawURL, requestID string, body []byte) (string, error) {
	name, err := Basename(rawURL)
	if err != nil {
		return "", err
	}
	switch s.naming {
	case config.NamingContent:
		sum := sha256.Sum256(body)
		return hex.EncodeToString(sum[:])[:contentPrefixLen] + "-" + name, nil
	case config.NamingSession:
		if requestID == "" {
			return "", errors.New("session naming requires a request id")
		}
		return requestID + "/" + name, nil
	default:
		return name, nil
	}
}

// Path maps a key to its location on disk.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

// Write stores body under key, overwriting any previous file of the same key.
func (s *Store) Write(key string, body []byte) (string, error) {
	path := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, "create image directory")
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", errors.Wrapf(err, "write image %s", key)
	}
	return path, nil
}

// Lock serialises work on one key until the returned unlock is called.
func (s *Store) Lock(ctx context.Context, key string) (func(), error) {
	return s.locker.Lock(ctx, key)
}
