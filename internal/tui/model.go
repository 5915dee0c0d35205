package tui

import (
	"context"
	"errors"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Options selects what the terminal client does on launch.
type Options struct {
	Topic      string
	Difficulty string
	Count      int
	// ResumeID resumes a saved quiz instead of generating a new one.
	ResumeID string
	NoColor  bool
}

// Model renders a Session and turns key presses into session operations.
type Model struct {
	ctx      context.Context
	session  *app.Session
	events   <-chan app.Event
	opts     Options
	view     app.View
	cursor   int
	spinner  spinner.Model
	loading  bool
	status   string
	quitting bool
}

// EventMsg wraps a session event for Bubble Tea.
type EventMsg struct {
	Event app.Event
}

// requestDoneMsg reports the end of a start, resume or exit request.
type requestDoneMsg struct {
	view app.View
	err  error
	exit bool
}

// NewModel builds a model over session; events should come from session.Subscribe.
func NewModel(ctx context.Context, session *app.Session, events <-chan app.Event, opts Options) Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{
		ctx:     ctx,
		session: session,
		events:  events,
		opts:    opts,
		view:    session.View(),
		spinner: s,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), m.spinner.Tick, m.open())
}

// open starts or resumes the quiz in the background.
func (m Model) open() tea.Cmd {
	session, ctx, opts := m.session, m.ctx, m.opts
	return func() tea.Msg {
		if opts.ResumeID != "" {
			view, err := session.Resume(ctx, opts.ResumeID)
			return requestDoneMsg{view: view, err: err}
		}
		view, err := session.Start(ctx, domain.GenerationRequest{
			Topic:           opts.Topic,
			NumberQuestions: opts.Count,
			Difficulty:      domain.Difficulty(opts.Difficulty),
		})
		return requestDoneMsg{view: view, err: err}
	}
}

func (m Model) exit() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		view, err := session.Exit(ctx)
		return requestDoneMsg{view: view, err: err, exit: true}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case EventMsg:
		m = m.applyEvent(typed.Event)
		return m, waitForEvent(m.events)
	case requestDoneMsg:
		m.loading = false
		m.view = typed.view
		if typed.err != nil {
			m.status = typed.err.Error()
		}
		if typed.exit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) applyEvent(ev app.Event) Model {
	m.view = ev.View
	switch ev.Type {
	case app.EventTimeWarning:
		m.status = "less than a minute left"
	case app.EventCheckpointed:
		m.status = "progress saved"
	case app.EventCheckpointFailed, app.EventFinalizeFailed:
		m.status = ev.Error
	case app.EventSubmitted:
		if ev.View.Result != nil && ev.View.Result.Forced {
			m.status = "time is up, quiz submitted"
		}
	}
	if q := m.view.Question; q != nil && m.cursor >= len(q.Options) {
		m.cursor = 0
	}
	return m
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	}
	if m.loading || m.view.Phase != domain.PhaseActive || m.view.Question == nil {
		return m, nil
	}

	var (
		view app.View
		err  error
	)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.view.Question.Options)-1 {
			m.cursor++
		}
		return m, nil
	case " ", "enter":
		view, err = m.session.SelectAnswer(m.view.QuestionIndex, m.view.Question.Options[m.cursor])
	case "right", "l", "n":
		view, err = m.session.Next()
		m.cursor = 0
	case "left", "h", "p":
		view, err = m.session.Previous()
		m.cursor = 0
	case "s":
		view, err = m.session.Submit()
	case "x":
		m.loading = true
		m.status = "saving progress"
		return m, tea.Batch(m.exit(), m.spinner.Tick)
	default:
		return m, nil
	}
	m.view = view
	m.status = ""
	if err != nil {
		m.status = friendlyError(err)
	}
	return m, nil
}

func friendlyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnanswered):
		return "answer every question before submitting"
	default:
		return err.Error()
	}
}

// waitForEvent blocks until a session event is available.
func waitForEvent(events <-chan app.Event) tea.Cmd {
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		event, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: event}
	}
}
