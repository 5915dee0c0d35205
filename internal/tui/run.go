package tui

import (
	"context"
	"io"
	"os"

	"ai-quiz-service/internal/app"
	tea "github.com/charmbracelet/bubbletea"
)

// Run plays one quiz in the terminal until the user quits. Quitting an
// active quiz flushes its snapshot so it can be resumed later.
func Run(ctx context.Context, session *app.Session, out io.Writer, opts Options) error {
	if out == nil {
		out = os.Stdout
	}
	events, cancel := session.Subscribe()
	defer cancel()

	model := NewModel(ctx, session, events, opts)
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(out), tea.WithAltScreen())
	_, err := program.Run()

	session.Flush()
	session.Close()
	return err
}
