package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-quiz-service/internal/domain"
)

// TokenSource supplies the bearer credential for outbound persistence calls.
// It returns domain.ErrUnauthenticated when no usable credential exists.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed credential.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return usable(string(t), time.Now())
}

// EnvToken reads the credential from the named environment variable.
type EnvToken string

func (t EnvToken) Token(context.Context) (string, error) {
	return usable(os.Getenv(string(t)), time.Now())
}

// FileToken reads the credential from a file on every call so a refreshed
// token is picked up without a restart.
type FileToken struct {
	Path string
	now  func() time.Time
}

func NewFileToken(path string) *FileToken {
	return &FileToken{Path: path, now: time.Now}
}

func (f *FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: no token file at %s", domain.ErrUnauthenticated, f.Path)
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return usable(string(data), f.now())
}

// Save writes a token to the file, creating parent directories.
func (f *FileToken) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return os.WriteFile(f.Path, []byte(strings.TrimSpace(token)+"\n"), 0o600)
}

func usable(token string, now time.Time) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: no token", domain.ErrUnauthenticated)
	}
	if Expired(token, now) {
		return "", fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
	}
	return token, nil
}
