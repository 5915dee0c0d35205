package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// BankTopic is one topic of a question bank file.
type BankTopic struct {
	Name       string             `json:"name" yaml:"name"`
	Difficulty domain.Difficulty  `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Questions  domain.QuestionSet `json:"questions" yaml:"questions"`
}

type bankFile struct {
	Topics []BankTopic `json:"topics" yaml:"topics"`
}

// Bank serves questions from a static question bank. It backs offline play
// and tests where no model is available.
type Bank struct {
	topics []BankTopic
	logger *log.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBank builds a bank from in-memory topics.
func NewBank(topics []BankTopic, logger *log.Logger) *Bank {
	if logger == nil {
		logger = log.Default()
	}
	return &Bank{
		topics: topics,
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// LoadBank reads a YAML or JSON question bank. Unknown fields are rejected.
func LoadBank(path string, logger *log.Logger) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	var file bankFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	} else {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&file); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if len(file.Topics) == 0 {
		return nil, fmt.Errorf("question bank %s has no topics", path)
	}
	for i, topic := range file.Topics {
		if strings.TrimSpace(topic.Name) == "" {
			return nil, fmt.Errorf("question bank topic %d has no name", i)
		}
	}
	return NewBank(file.Topics, logger), nil
}

// Topics lists the topic names in the bank.
func (b *Bank) Topics() []string {
	names := make([]string, 0, len(b.topics))
	for _, t := range b.topics {
		names = append(names, t.Name)
	}
	return names
}

// Generate draws up to NumberQuestions random questions for the topic. Topics
// match case-insensitively; a topic without a difficulty serves every level.
func (b *Bank) Generate(ctx context.Context, req domain.GenerationRequest) (domain.QuestionSet, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pool domain.QuestionSet
	for _, topic := range b.topics {
		if !strings.EqualFold(strings.TrimSpace(topic.Name), req.Topic) {
			continue
		}
		if topic.Difficulty != "" && topic.Difficulty != req.Difficulty {
			continue
		}
		pool = append(pool, topic.Questions...)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("no %s questions for topic %q", req.Difficulty, req.Topic)
	}

	pool = pool.Clone()
	b.mu.Lock()
	b.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	b.mu.Unlock()
	return Sanitize(pool, req.NumberQuestions, b.logger)
}
