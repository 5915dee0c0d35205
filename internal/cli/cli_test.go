package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-quiz-service/internal/config"
	"ai-quiz-service/internal/gateway"
	"ai-quiz-service/internal/generator"
)

func TestBuildGenerator(t *testing.T) {
	cfg := config.Config{}
	gen, err := buildGenerator(cfg, nil, nil)
	if err != nil || gen != nil {
		t.Fatalf("expected no generator without config, got %v (%v)", gen, err)
	}

	cfg.Generator.APIKey = "key"
	gen, err = buildGenerator(cfg, nil, nil)
	if _, ok := gen.(*generator.LLM); !ok || err != nil {
		t.Fatalf("expected llm generator, got %T (%v)", gen, err)
	}

	cfg.Generator.Provider = "remote"
	if _, err := buildGenerator(cfg, nil, nil); err == nil {
		t.Fatalf("expected remote without gateway to fail")
	}
	remote := gateway.NewHTTPClient("http://example.invalid", nil, gateway.Options{})
	if gen, err := buildGenerator(cfg, remote, nil); err != nil || gen != remote {
		t.Fatalf("expected remote generator, got %v (%v)", gen, err)
	}

	cfg.Generator.Provider = "oracle"
	if _, err := buildGenerator(cfg, nil, nil); err == nil {
		t.Fatalf("expected unknown provider to fail")
	}
}

func TestTokenCommandSavesToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")
	configFile := filepath.Join(dir, "config.yaml")
	data := "auth:\n  secret: s3cret\ngateway:\n  token_file: " + tokenPath + "\n"
	if err := os.WriteFile(configFile, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_AUTH_SECRET", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--config", configFile, "--user", "u1", "--save"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("token: %v", err)
	}
	if !strings.Contains(out.String(), "token saved") {
		t.Fatalf("unexpected output %q", out.String())
	}
	saved, err := os.ReadFile(tokenPath)
	if err != nil || strings.Count(strings.TrimSpace(string(saved)), ".") != 2 {
		t.Fatalf("expected a saved jwt, got %q (%v)", saved, err)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/quiz")
	if got := expandHome("~/.config/token"); got != filepath.Join("/home/quiz", ".config/token") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := expandHome("/abs/token"); got != "/abs/token" {
		t.Fatalf("unexpected path %q", got)
	}
}

func TestListenPortPrecedence(t *testing.T) {
	g := &globals{}
	if got := g.listenPort(); got != "8080" {
		t.Fatalf("expected default port, got %q", got)
	}
	g.cfg.Server.Port = "9000"
	if got := g.listenPort(); got != "9000" {
		t.Fatalf("expected configured port, got %q", got)
	}
	g.port = "7000"
	if got := g.listenPort(); got != "7000" {
		t.Fatalf("expected flag to win, got %q", got)
	}
}

func TestRootLoadsConfigBeforeSubcommands(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("auth: [\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--config", configFile, "--user", "u1"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected malformed config to stop the token command")
	}
}
