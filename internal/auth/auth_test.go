package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-quiz-service/internal/domain"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	issuer, err := NewIssuerWithClock("s3cret", time.Hour, func() time.Time { return now })
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := issuer.Verify(token)
	if err != nil || userID != "user-1" {
		t.Fatalf("verify: %q %v", userID, err)
	}

	other, _ := NewIssuerWithClock("different", time.Hour, func() time.Time { return now })
	if _, err := other.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected signature mismatch to be unauthenticated, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := issuer.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	if !Expired(token, now) {
		t.Fatalf("expected Expired to report true")
	}
	if Expired("opaque-token", now) {
		t.Fatalf("opaque token should not count as expired")
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer(" ", time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestTokenSources(t *testing.T) {
	ctx := context.Background()
	if _, err := StaticToken("").Token(ctx); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected empty static token to be unauthenticated, got %v", err)
	}

	issuer, _ := NewIssuer("s3cret", time.Hour)
	token, _ := issuer.Issue("user-1")
	if got, err := StaticToken(token).Token(ctx); err != nil || got != token {
		t.Fatalf("static token: %q %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "auth", "token")
	source := NewFileToken(path)
	if _, err := source.Token(ctx); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected missing file to be unauthenticated, got %v", err)
	}
	if err := source.Save(token); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, err := source.Token(ctx); err != nil || got != token {
		t.Fatalf("file token: %q %v", got, err)
	}

	expiredIssuer, _ := NewIssuerWithClock("s3cret", time.Minute, func() time.Time { return time.Now().Add(-time.Hour) })
	expired, _ := expiredIssuer.Issue("user-1")
	if err := os.WriteFile(path, []byte(expired), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := source.Token(ctx); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired file token to be unauthenticated, got %v", err)
	}
}

func TestEnvToken(t *testing.T) {
	t.Setenv("QUIZ_TEST_TOKEN", "")
	if _, err := EnvToken("QUIZ_TEST_TOKEN").Token(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated for empty variable, got %v", err)
	}
	t.Setenv("QUIZ_TEST_TOKEN", " opaque ")
	token, err := EnvToken("QUIZ_TEST_TOKEN").Token(context.Background())
	if err != nil || token != "opaque" {
		t.Fatalf("expected trimmed token, got %q (%v)", token, err)
	}
}
