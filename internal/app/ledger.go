package app

import (
	"sort"

	"ai-quiz-service/internal/domain"
)

// AnswerLedger maps question indexes to the set of currently selected options.
// It is owned by a single Session and guarded by the session lock.
type AnswerLedger struct {
	selections map[int]map[string]struct{}
}

// NewAnswerLedger returns an empty ledger.
func NewAnswerLedger() *AnswerLedger {
	return &AnswerLedger{selections: make(map[int]map[string]struct{})}
}

// LedgerFromAnswers rebuilds a ledger from its persisted form.
func LedgerFromAnswers(answers domain.Answers) *AnswerLedger {
	l := NewAnswerLedger()
	for idx, options := range answers {
		if len(options) == 0 {
			continue
		}
		set := make(map[string]struct{}, len(options))
		for _, o := range options {
			set[o] = struct{}{}
		}
		l.selections[idx] = set
	}
	return l
}

// Select applies a selection: single-select questions replace, multi-select toggle.
func (l *AnswerLedger) Select(index int, q domain.Question, option string) {
	if !q.MultiSelect() {
		l.selections[index] = map[string]struct{}{option: {}}
		return
	}
	set, ok := l.selections[index]
	if !ok {
		set = make(map[string]struct{})
		l.selections[index] = set
	}
	if _, selected := set[option]; selected {
		delete(set, option)
	} else {
		set[option] = struct{}{}
	}
	if len(set) == 0 {
		delete(l.selections, index)
	}
}

// Selected returns the selected options for a question in sorted order.
func (l *AnswerLedger) Selected(index int) []string {
	set := l.selections[index]
	out := make([]string, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// IsSelected reports whether option is selected for the question.
func (l *AnswerLedger) IsSelected(index int, option string) bool {
	_, ok := l.selections[index][option]
	return ok
}

// IsAnswered reports whether the question has a non-empty selection.
func (l *AnswerLedger) IsAnswered(index int) bool {
	return len(l.selections[index]) > 0
}

// AnsweredCount counts questions with a non-empty selection.
func (l *AnswerLedger) AnsweredCount() int {
	n := 0
	for _, set := range l.selections {
		if len(set) > 0 {
			n++
		}
	}
	return n
}

// AllAnswered reports whether every index in [0,n) has a selection.
func (l *AnswerLedger) AllAnswered(n int) bool {
	for i := 0; i < n; i++ {
		if !l.IsAnswered(i) {
			return false
		}
	}
	return true
}

// Answers exports the ledger in its persisted form.
func (l *AnswerLedger) Answers() domain.Answers {
	out := make(domain.Answers, len(l.selections))
	for idx := range l.selections {
		if selected := l.Selected(idx); len(selected) > 0 {
			out[idx] = selected
		}
	}
	return out
}
