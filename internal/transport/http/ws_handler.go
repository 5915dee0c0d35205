package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler hosts one quiz Session per websocket connection.
type WSHandler struct {
	generator app.Generator
	attempts  *app.AttemptService
	verifier  TokenVerifier
	opts      app.SessionOptions
	upgrader  websocket.Upgrader
}

// NewWSHandler builds the live quiz handler. A nil attempts service or a
// connection without a token runs sessions without persistence.
func NewWSHandler(gen app.Generator, attempts *app.AttemptService, verifier TokenVerifier, opts app.SessionOptions) *WSHandler {
	return &WSHandler{
		generator: gen,
		attempts:  attempts,
		verifier:  verifier,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type resumePayload struct {
	QuizID string `json:"quizId"`
}

type selectPayload struct {
	Index  int    `json:"index"`
	Option string `json:"option"`
}

type gotoPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and drives a Session from client messages.
// Closing the connection flushes the active quiz so it stays resumable.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID string
	if token := requestToken(r); token != "" && h.verifier != nil {
		var err error
		if userID, err = h.verifier.Verify(token); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var gateway app.Gateway
	var local *app.LocalGateway
	if userID != "" && h.attempts != nil {
		local = app.NewLocalGateway(h.attempts, userID, h.opts.Logger)
		gateway = local
	}
	session := app.NewSession(h.generator, gateway, h.opts)
	updates, cancelUpdates := session.Subscribe()
	defer cancelUpdates()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})
	var commands sync.WaitGroup

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}
	replyError := func(err error) {
		if err == nil || errors.Is(err, domain.ErrSuperseded) {
			return
		}
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// Keep draining so senders never block on a dead connection.
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for ev := range updates {
			reply(outboundMessage[any]{Type: string(ev.Type), Payload: ev})
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyError(errors.New("invalid start payload"))
				continue
			}
			commands.Add(1)
			go func() {
				defer commands.Done()
				_, err := session.Start(ctx, domain.GenerationRequest{
					Topic:           payload.Topic,
					NumberQuestions: payload.Count,
					Difficulty:      domain.Difficulty(payload.Difficulty),
				})
				replyError(err)
			}()
		case "resume":
			var payload resumePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyError(errors.New("invalid resume payload"))
				continue
			}
			commands.Add(1)
			go func() {
				defer commands.Done()
				_, err := session.Resume(ctx, payload.QuizID)
				replyError(err)
			}()
		case "select":
			var payload selectPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyError(errors.New("invalid select payload"))
				continue
			}
			_, err := session.SelectAnswer(payload.Index, payload.Option)
			replyError(err)
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				replyError(errors.New("invalid goto payload"))
				continue
			}
			_, err := session.GoTo(payload.Index)
			replyError(err)
		case "next":
			_, err := session.Next()
			replyError(err)
		case "previous":
			_, err := session.Previous()
			replyError(err)
		case "checkpoint":
			// Failed saves already arrive as checkpoint_failed events.
			var cerr *domain.CheckpointError
			if err := session.Checkpoint(ctx); !errors.As(err, &cerr) {
				replyError(err)
			}
		case "submit":
			_, err := session.Submit()
			replyError(err)
		case "exit":
			_, err := session.Exit(ctx)
			replyError(err)
		case "reset":
			session.Reset()
		default:
			replyError(errors.New("unsupported message type"))
		}
	}

	close(closeSignals)
	session.Flush()
	session.Close()
	commands.Wait()
	<-updatesDone
	close(send)
	<-writerDone

	if local != nil {
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelDrain()
		if err := local.Drain(drainCtx); err != nil {
			log.Printf("flush on disconnect did not finish: %v", err)
		}
	}
}
