package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"ai-quiz-service/internal/domain"
)

// Generator produces the question set for a new quiz.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.QuestionSet, error)
}

// Gateway persists snapshots and final results. Implementations return
// domain.ErrUnauthenticated without touching the network when no credential is available.
type Gateway interface {
	SaveSnapshot(ctx context.Context, snap domain.Snapshot) (string, error)
	LoadSnapshot(ctx context.Context, id string) (domain.Snapshot, error)
	SaveResult(ctx context.Context, result domain.Result) error
	// FlushSnapshot delivers a snapshot without blocking the caller.
	FlushSnapshot(snap domain.Snapshot)
}

// SessionOptions tunes timing and logging of a Session.
type SessionOptions struct {
	CheckpointInterval time.Duration
	PollInterval       time.Duration
	TimePerQuestion    time.Duration
	WarningThreshold   time.Duration
	FinalizeTimeout    time.Duration
	Clock              Clock
	Logger             *log.Logger
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.TimePerQuestion <= 0 {
		o.TimePerQuestion = 60 * time.Second
	}
	if o.WarningThreshold <= 0 {
		o.WarningThreshold = time.Minute
	}
	if o.FinalizeTimeout <= 0 {
		o.FinalizeTimeout = 10 * time.Second
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// EventType names a session notification.
type EventType string

const (
	EventState            EventType = "state"
	EventTick             EventType = "tick"
	EventTimeWarning      EventType = "time_warning"
	EventCheckpointed     EventType = "checkpointed"
	EventCheckpointFailed EventType = "checkpoint_failed"
	EventSubmitted        EventType = "submitted"
	EventFinalizeFailed   EventType = "finalize_failed"
)

// Event is pushed to subscribers whenever the session changes.
type Event struct {
	Type  EventType `json:"type"`
	View  View      `json:"view"`
	Error string    `json:"error,omitempty"`
}

// QuestionView is a read-only rendering of one question. Correct answers,
// explanation and score are only filled once the session is submitted.
type QuestionView struct {
	Index          int      `json:"index"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	MultiSelect    bool     `json:"multiSelect"`
	Selected       []string `json:"selected"`
	CorrectAnswers []string `json:"correctAnswers,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
	Score          *float64 `json:"score,omitempty"`
}

// View is a point-in-time rendering of the session computed on read.
type View struct {
	Phase            domain.Phase      `json:"phase"`
	SessionID        string            `json:"sessionId,omitempty"`
	Topic            string            `json:"topic,omitempty"`
	Difficulty       domain.Difficulty `json:"difficulty,omitempty"`
	QuestionIndex    int               `json:"questionIndex"`
	TotalQuestions   int               `json:"totalQuestions"`
	Answered         int               `json:"answered"`
	AllottedSeconds  int               `json:"allottedSeconds"`
	ElapsedSeconds   int               `json:"elapsedSeconds"`
	RemainingSeconds int               `json:"remainingSeconds"`
	TimeWarning      bool              `json:"timeWarning"`
	Question         *QuestionView     `json:"question,omitempty"`
	Result           *domain.Result    `json:"result,omitempty"`
	Review           []QuestionView    `json:"review,omitempty"`
}

// Session is the quiz state machine: Idle -> Active -> Submitted. It owns the
// question set, answer ledger, clock and both periodic tasks of one quiz.
type Session struct {
	generator Generator
	gateway   Gateway
	opts      SessionOptions
	logger    *log.Logger

	// saveMu serializes snapshot saves so the identifier assigned by the first
	// save is reused by every later one.
	saveMu sync.Mutex

	mu            sync.Mutex
	epoch         uint64
	cancelRequest context.CancelFunc
	timerCtx      context.Context
	stopTimers    context.CancelFunc
	phase         domain.Phase
	id            string
	topic         string
	difficulty    domain.Difficulty
	questions     domain.QuestionSet
	index         int
	ledger        *AnswerLedger
	clock         *SessionClock
	allotted      time.Duration
	lastRemaining time.Duration
	result        *domain.Result
	score         *Score
	subscribers   map[chan Event]struct{}
	closed        bool

	wg sync.WaitGroup
}

// NewSession builds an idle session. A nil gateway runs the quiz without persistence.
func NewSession(generator Generator, gateway Gateway, opts SessionOptions) *Session {
	opts = opts.withDefaults()
	return &Session{
		generator:   generator,
		gateway:     gateway,
		opts:        opts,
		logger:      opts.Logger,
		phase:       domain.PhaseIdle,
		ledger:      NewAnswerLedger(),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// View renders the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Start generates a new quiz and activates it. The latest of any overlapping
// Start/Resume calls wins; earlier ones are cancelled and return domain.ErrSuperseded.
func (s *Session) Start(ctx context.Context, req domain.GenerationRequest) (View, error) {
	req, err := req.Normalize()
	if err != nil {
		return s.View(), &domain.GenerationError{Err: err}
	}
	if s.generator == nil {
		return s.View(), &domain.GenerationError{Err: errors.New("question generator is not configured")}
	}
	ticket, reqCtx, cancel, err := s.beginRequest(ctx)
	if err != nil {
		return s.View(), err
	}
	defer cancel()

	questions, err := s.generator.Generate(reqCtx, req)
	if err == nil {
		err = questions.Validate()
	}

	s.mu.Lock()
	if ticket != s.epoch {
		s.mu.Unlock()
		return s.View(), domain.ErrSuperseded
	}
	s.cancelRequest = nil
	if err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, &domain.GenerationError{Err: err}
	}
	if err := s.activateLocked(activation{
		topic:      req.Topic,
		difficulty: req.Difficulty,
		questions:  questions.Clone(),
	}); err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, err
	}
	s.mu.Unlock()

	if err := s.Checkpoint(ctx); err != nil && !errors.Is(err, domain.ErrNotActive) {
		s.logger.Printf("initial checkpoint failed: %v", err)
	}
	return s.View(), nil
}

// Resume loads a snapshot through the gateway and reactivates it with its
// elapsed time carried forward.
func (s *Session) Resume(ctx context.Context, id string) (View, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.View(), &domain.ResumeError{Err: fmt.Errorf("%w: empty quiz id", domain.ErrSnapshotNotFound)}
	}
	if s.gateway == nil {
		return s.View(), &domain.ResumeError{Err: domain.ErrUnauthenticated}
	}
	ticket, reqCtx, cancel, err := s.beginRequest(ctx)
	if err != nil {
		return s.View(), err
	}
	defer cancel()

	snap, err := s.gateway.LoadSnapshot(reqCtx, id)
	if err == nil {
		err = snap.Validate()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.epoch {
		return s.viewLocked(), domain.ErrSuperseded
	}
	s.cancelRequest = nil
	if err != nil {
		return s.viewLocked(), &domain.ResumeError{Err: err}
	}
	if snap.SessionID == "" {
		snap.SessionID = id
	}
	err = s.activateLocked(activation{
		id:         snap.SessionID,
		topic:      snap.Topic,
		difficulty: snap.Difficulty,
		questions:  snap.Questions.Clone(),
		index:      snap.CurrentQuestionIndex,
		answers:    snap.Answers,
		prior:      time.Duration(snap.ElapsedSeconds) * time.Second,
	})
	return s.viewLocked(), err
}

// SelectAnswer replaces the selection of a single-select question or toggles
// the option of a multi-select one.
func (s *Session) SelectAnswer(index int, option string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive {
		return s.viewLocked(), domain.ErrNotActive
	}
	if index < 0 || index >= len(s.questions) {
		return s.viewLocked(), domain.ErrQuestionOutOfRange
	}
	q := s.questions[index]
	if !q.HasOption(option) {
		return s.viewLocked(), domain.ErrOptionNotFound
	}
	s.ledger.Select(index, q, option)
	s.publishLocked(EventState)
	return s.viewLocked(), nil
}

// GoTo moves to index, clamped to the question set.
func (s *Session) GoTo(index int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive {
		return s.viewLocked(), domain.ErrNotActive
	}
	s.index = clampIndex(index, len(s.questions))
	s.publishLocked(EventState)
	return s.viewLocked(), nil
}

// Next advances one question; it is a no-op on the last question.
func (s *Session) Next() (View, error) {
	return s.step(1)
}

// Previous goes back one question; it is a no-op on the first question.
func (s *Session) Previous() (View, error) {
	return s.step(-1)
}

func (s *Session) step(delta int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive {
		return s.viewLocked(), domain.ErrNotActive
	}
	next := s.index + delta
	if next < 0 || next >= len(s.questions) {
		return s.viewLocked(), nil
	}
	s.index = next
	s.publishLocked(EventState)
	return s.viewLocked(), nil
}

// Checkpoint upserts the current snapshot. The identifier returned by the
// first save is kept for all later saves. Outside Active it returns
// domain.ErrNotActive and does nothing.
func (s *Session) Checkpoint(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.closed || s.phase != domain.PhaseActive {
		s.mu.Unlock()
		return domain.ErrNotActive
	}
	snap := s.snapshotLocked()
	epoch := s.epoch
	s.mu.Unlock()

	if s.gateway == nil {
		return nil
	}
	id, err := s.gateway.SaveSnapshot(ctx, snap)
	if err != nil {
		cerr := &domain.CheckpointError{Err: err}
		if !errors.Is(err, domain.ErrUnauthenticated) {
			s.logger.Printf("checkpoint failed: %v", err)
			s.mu.Lock()
			if s.epoch == epoch {
				s.publishErrorLocked(EventCheckpointFailed, cerr)
			}
			s.mu.Unlock()
		}
		return cerr
	}

	s.mu.Lock()
	if s.epoch == epoch {
		if s.id == "" {
			s.id = id
		}
		s.publishLocked(EventCheckpointed)
	}
	s.mu.Unlock()
	return nil
}

// Submit grades the quiz once every question has an answer. The result is
// persisted in the background; a failed save never hides the local grade.
func (s *Session) Submit() (View, error) {
	s.mu.Lock()
	if s.phase != domain.PhaseActive {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, domain.ErrNotActive
	}
	if !s.ledger.AllAnswered(len(s.questions)) {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, domain.ErrUnanswered
	}
	result := s.submitLocked(false)
	epoch := s.epoch
	view := s.viewLocked()
	s.mu.Unlock()

	s.finalize(result, epoch)
	return view, nil
}

// Poll re-evaluates the clock now instead of waiting for the next tick,
// force-submitting once the allotted time is used up.
func (s *Session) Poll() {
	s.mu.Lock()
	ctx := s.timerCtx
	s.mu.Unlock()
	if ctx != nil {
		s.poll(ctx)
	}
}

// Exit checkpoints an active quiz and returns to Idle; the snapshot stays
// resumable. A failed checkpoint is returned but the session still goes idle.
func (s *Session) Exit(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.phase != domain.PhaseActive {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, domain.ErrNotActive
	}
	s.stopTimersLocked()
	s.mu.Unlock()

	err := s.Checkpoint(ctx)

	s.mu.Lock()
	s.resetLocked()
	s.publishLocked(EventState)
	view := s.viewLocked()
	s.mu.Unlock()
	if err != nil && !errors.Is(err, domain.ErrNotActive) {
		return view, err
	}
	return view, nil
}

// Reset discards the in-memory quiz and cancels any in-flight start or resume.
// Persisted snapshots and results are left untouched.
func (s *Session) Reset() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.publishLocked(EventState)
	return s.viewLocked()
}

// Flush hands the latest snapshot to the gateway's fire-and-forget delivery.
// It is meant for unload paths and does not wait for the save.
func (s *Session) Flush() bool {
	s.mu.Lock()
	if s.phase != domain.PhaseActive || s.gateway == nil {
		s.mu.Unlock()
		return false
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.gateway.FlushSnapshot(snap)
	return true
}

// Close stops the periodic tasks, closes subscriber channels, waits for
// pending result saves and then resets the session. A closed session rejects
// Start and Resume with domain.ErrInvalidTransition.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	if s.cancelRequest != nil {
		s.cancelRequest()
		s.cancelRequest = nil
	}
	s.stopTimersLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

// Subscribe returns a channel of session events, starting with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- Event{Type: EventState, View: s.viewLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

type activation struct {
	id         string
	topic      string
	difficulty domain.Difficulty
	questions  domain.QuestionSet
	index      int
	answers    domain.Answers
	prior      time.Duration
}

func (s *Session) beginRequest(ctx context.Context) (uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase != domain.PhaseIdle {
		return 0, nil, nil, domain.ErrInvalidTransition
	}
	s.epoch++
	if s.cancelRequest != nil {
		s.cancelRequest()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancelRequest = cancel
	return s.epoch, reqCtx, cancel, nil
}

func (s *Session) activateLocked(a activation) error {
	if s.closed {
		return domain.ErrInvalidTransition
	}
	s.stopTimersLocked()
	s.phase = domain.PhaseActive
	s.id = a.id
	s.topic = a.topic
	s.difficulty = a.difficulty
	s.questions = a.questions
	s.index = clampIndex(a.index, len(a.questions))
	s.ledger = LedgerFromAnswers(a.answers)
	s.clock = NewSessionClock(s.opts.Clock, a.prior)
	// The loaded questions, not a stored count, decide the allotment.
	s.allotted = time.Duration(len(a.questions)) * s.opts.TimePerQuestion
	s.lastRemaining = time.Duration(math.MaxInt64)
	s.result = nil
	s.score = nil
	s.publishLocked(EventState)
	s.startTimersLocked()
	return nil
}

func (s *Session) resetLocked() {
	s.epoch++
	if s.cancelRequest != nil {
		s.cancelRequest()
		s.cancelRequest = nil
	}
	s.stopTimersLocked()
	s.phase = domain.PhaseIdle
	s.id = ""
	s.topic = ""
	s.difficulty = ""
	s.questions = nil
	s.index = 0
	s.ledger = NewAnswerLedger()
	s.clock = nil
	s.allotted = 0
	s.result = nil
	s.score = nil
}

func (s *Session) submitLocked(forced bool) domain.Result {
	elapsed := s.clock.Freeze()
	s.stopTimersLocked()
	if forced && elapsed > s.allotted {
		elapsed = s.allotted
	}
	score := ScoreQuiz(s.questions, s.ledger.Answers())
	result := domain.Result{
		SessionID:      s.id,
		Topic:          s.topic,
		Category:       domain.DefaultCategory,
		Difficulty:     s.difficulty,
		TotalQuestions: len(s.questions),
		Score:          score.Total,
		CorrectAnswers: score.Rounded(),
		Percentage:     score.Percentage,
		ElapsedSeconds: int(elapsed / time.Second),
		Forced:         forced,
	}
	s.phase = domain.PhaseSubmitted
	s.result = &result
	s.score = &score
	s.publishLocked(EventSubmitted)
	return result
}

// finalize saves result in the background. A snapshot save still in flight
// at submit time may assign the quiz id late, so the id is re-read once
// saveMu is free and the submission it belongs to is still current.
func (s *Session) finalize(result domain.Result, epoch uint64) {
	if s.gateway == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if result.SessionID == "" {
			s.saveMu.Lock()
			s.mu.Lock()
			if s.epoch == epoch && s.id != "" {
				result.SessionID = s.id
				if s.result != nil {
					s.result.SessionID = s.id
				}
			}
			s.mu.Unlock()
			s.saveMu.Unlock()
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.FinalizeTimeout)
		defer cancel()
		err := s.gateway.SaveResult(ctx, result)
		if err == nil {
			return
		}
		ferr := &domain.FinalizeError{Err: err}
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.logger.Printf("result kept locally: %v", ferr)
			return
		}
		s.logger.Printf("%v", ferr)
		s.mu.Lock()
		s.publishErrorLocked(EventFinalizeFailed, ferr)
		s.mu.Unlock()
	}()
}

func (s *Session) startTimersLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.timerCtx = ctx
	s.stopTimers = cancel
	s.wg.Add(2)
	go s.runPoller(ctx)
	go s.runAutosave(ctx)
}

func (s *Session) stopTimersLocked() {
	if s.stopTimers != nil {
		s.stopTimers()
	}
	s.stopTimers = nil
	s.timerCtx = nil
}

func (s *Session) runPoller(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		s.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Session) runAutosave(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.CheckpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Failures are logged inside Checkpoint and retried on the next tick.
			_ = s.Checkpoint(ctx)
		}
	}
}

// poll runs under the timer context of one activation; once that context is
// cancelled it never touches the session again.
func (s *Session) poll(ctx context.Context) {
	s.mu.Lock()
	if ctx.Err() != nil || s.phase != domain.PhaseActive {
		s.mu.Unlock()
		return
	}
	remaining := s.clock.Remaining(s.allotted)
	if remaining <= 0 {
		result := s.submitLocked(true)
		epoch := s.epoch
		s.mu.Unlock()
		s.finalize(result, epoch)
		return
	}
	s.publishLocked(EventTick)
	if remaining < s.opts.WarningThreshold && s.lastRemaining >= s.opts.WarningThreshold {
		s.publishLocked(EventTimeWarning)
	}
	s.lastRemaining = remaining
	s.mu.Unlock()
}

func (s *Session) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		SessionID:            s.id,
		Topic:                s.topic,
		Difficulty:           s.difficulty,
		TotalQuestions:       len(s.questions),
		CurrentQuestionIndex: s.index,
		Questions:            s.questions,
		Answers:              s.ledger.Answers(),
		ElapsedSeconds:       s.clock.ElapsedSeconds(),
	}
}

func (s *Session) viewLocked() View {
	v := View{
		Phase:          s.phase,
		SessionID:      s.id,
		Topic:          s.topic,
		Difficulty:     s.difficulty,
		TotalQuestions: len(s.questions),
	}
	if s.phase == domain.PhaseIdle {
		return v
	}
	v.QuestionIndex = s.index
	v.Answered = s.ledger.AnsweredCount()
	v.AllottedSeconds = int(s.allotted / time.Second)

	switch s.phase {
	case domain.PhaseActive:
		elapsed := s.clock.Elapsed()
		remaining := s.allotted - elapsed
		if remaining < 0 {
			remaining = 0
		}
		v.ElapsedSeconds = int(elapsed / time.Second)
		v.RemainingSeconds = int((remaining + time.Second - 1) / time.Second)
		v.TimeWarning = remaining < s.opts.WarningThreshold
		q := s.questionViewLocked(s.index, false)
		v.Question = &q
	case domain.PhaseSubmitted:
		result := *s.result
		v.Result = &result
		v.ElapsedSeconds = result.ElapsedSeconds
		if remaining := v.AllottedSeconds - result.ElapsedSeconds; remaining > 0 {
			v.RemainingSeconds = remaining
		}
		q := s.questionViewLocked(s.index, true)
		v.Question = &q
		v.Review = make([]QuestionView, 0, len(s.questions))
		for i := range s.questions {
			v.Review = append(v.Review, s.questionViewLocked(i, true))
		}
	}
	return v
}

func (s *Session) questionViewLocked(index int, reveal bool) QuestionView {
	q := s.questions[index]
	qv := QuestionView{
		Index:       index,
		Text:        q.Text,
		Options:     append([]string(nil), q.Options...),
		MultiSelect: q.MultiSelect(),
		Selected:    s.ledger.Selected(index),
	}
	if reveal {
		qv.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
		qv.Explanation = q.Explanation
		if s.score != nil && index < len(s.score.PerQuestion) {
			value := s.score.PerQuestion[index].Score
			qv.Score = &value
		}
	}
	return qv
}

func (s *Session) publishLocked(t EventType) {
	s.broadcastLocked(Event{Type: t, View: s.viewLocked()})
}

func (s *Session) publishErrorLocked(t EventType, err error) {
	s.broadcastLocked(Event{Type: t, View: s.viewLocked(), Error: err.Error()})
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow subscriber never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func clampIndex(index, n int) int {
	if index < 0 || n == 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}
