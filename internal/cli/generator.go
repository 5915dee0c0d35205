package cli

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/config"
	"ai-quiz-service/internal/gateway"
	"ai-quiz-service/internal/generator"
)

// buildGenerator picks the question source named by generator.provider. With
// no provider an API key selects the LLM and a bank path selects the bank.
// remote may be nil when no persistence backend is configured.
func buildGenerator(cfg config.Config, remote *gateway.HTTPClient, logger *log.Logger) (app.Generator, error) {
	gc := cfg.Generator
	provider := strings.ToLower(strings.TrimSpace(gc.Provider))
	if provider == "" {
		switch {
		case gc.APIKey != "":
			provider = "llm"
		case gc.BankPath != "":
			provider = "bank"
		default:
			return nil, nil
		}
	}

	switch provider {
	case "llm":
		client := &http.Client{Timeout: config.TTLDuration(gc.Timeout, 60*time.Second)}
		return generator.NewLLM(gc.APIKey, gc.BaseURL, gc.Model, client, logger), nil
	case "bank":
		return generator.LoadBank(gc.BankPath, logger)
	case "remote":
		if remote == nil {
			return nil, fmt.Errorf("generator provider remote needs gateway.base_url")
		}
		return remote, nil
	}
	return nil, fmt.Errorf("unknown generator provider %q", gc.Provider)
}

func sessionOptions(cfg config.Config, logger *log.Logger) app.SessionOptions {
	sc := cfg.Session
	return app.SessionOptions{
		CheckpointInterval: config.TTLDuration(sc.CheckpointInterval, 30*time.Second),
		PollInterval:       config.TTLDuration(sc.PollInterval, time.Second),
		TimePerQuestion:    time.Duration(sc.SecondsPerQuestion) * time.Second,
		WarningThreshold:   config.TTLDuration(sc.WarningThreshold, time.Minute),
		Logger:             logger,
	}
}
