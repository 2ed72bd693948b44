package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// WSHandler exposes the attempt lifecycle over a websocket: the client
// drives start/answer/pause/resume/submit and receives attempt snapshots,
// per-second timer ticks and the final result.
type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.AttemptService) *WSHandler {
	return &WSHandler{
		service: service,
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

type answerPayload struct {
	QuestionID       string        `json:"questionId"`
	Answer           domain.Answer `json:"answer"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
}

type attemptRefPayload struct {
	AttemptID string `json:"attemptId"`
}

type answerResult struct {
	QuestionID            string `json:"questionId"`
	Correct               bool   `json:"correct"`
	PointsEarned          int    `json:"pointsEarned"`
	RequiresManualGrading bool   `json:"requiresManualGrading"`
}

type tickPayload struct {
	AttemptID            string `json:"attemptId"`
	TimeRemainingSeconds int    `json:"timeRemainingSeconds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and wires it into the attempt use cases.
// The caller identifies as ?userId=...&quizId=...
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	quizID := r.URL.Query().Get("quizId")
	if userID == "" || quizID == "" {
		http.Error(w, "missing userId or quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var tickCancel func()
	var pumps sync.WaitGroup
	defer func() {
		if tickCancel != nil {
			tickCancel()
		}
		close(closeSignals)
		pumps.Wait()
		close(send)
		<-writerDone
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "start":
			attempt, err := h.service.Start(r.Context(), userID, quizID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "attempt", Payload: attempt}
			tickCancel = h.pumpTicks(r.Context(), attempt, send, closeSignals, &pumps, tickCancel)

		case "answer":
			var payload answerPayload
			ref, ok := decode(inbound.Payload, &payload, send)
			if !ok {
				continue
			}
			attempt, err := h.service.SubmitAnswer(r.Context(), ref, payload.QuestionID, payload.Answer, payload.TimeSpentSeconds)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			record := attempt.Answers[payload.QuestionID]
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID:            payload.QuestionID,
				Correct:               record.Correct,
				PointsEarned:          record.PointsEarned,
				RequiresManualGrading: record.RequiresManualGrading,
			}}

		case "pause":
			h.transition(r.Context(), inbound.Payload, send, h.service.Pause)

		case "resume":
			var payload attemptRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			attempt, err := h.service.Resume(r.Context(), payload.AttemptID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "attempt", Payload: attempt}
			tickCancel = h.pumpTicks(r.Context(), attempt, send, closeSignals, &pumps, tickCancel)

		case "submit":
			var payload attemptRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			attempt, err := h.service.Submit(r.Context(), payload.AttemptID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: attempt}

		case "review":
			var payload attemptRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errMsg(err)
				continue
			}
			review, err := h.service.Review(r.Context(), payload.AttemptID)
			if err != nil {
				send <- errMsg(err)
				continue
			}
			send <- outboundMessage[any]{Type: "review", Payload: review}

		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}
}

// transition runs a state-machine operation addressed by attempt id and
// replies with the updated attempt snapshot.
func (h *WSHandler) transition(ctx context.Context, raw json.RawMessage, send chan outboundMessage[any], op func(context.Context, string) (*domain.QuizAttempt, error)) {
	var payload attemptRefPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		send <- errMsg(err)
		return
	}
	attempt, err := op(ctx, payload.AttemptID)
	if err != nil {
		send <- errMsg(err)
		return
	}
	send <- outboundMessage[any]{Type: "attempt", Payload: attempt}
}

// pumpTicks forwards the attempt's timer ticks to the client. When the
// countdown ends (submit, pause or expiry) the final snapshot is pushed if
// the attempt went terminal, so the client learns about a server-side
// timeout without polling.
func (h *WSHandler) pumpTicks(ctx context.Context, attempt *domain.QuizAttempt, send chan outboundMessage[any], closeSignals <-chan struct{}, pumps *sync.WaitGroup, prevCancel func()) func() {
	if prevCancel != nil {
		prevCancel()
	}
	if !attempt.Timed() {
		return nil
	}
	ticks, cancel, err := h.service.SubscribeTicks(attempt.ID)
	if err != nil {
		return nil
	}

	attemptID := attempt.ID
	pumps.Add(1)
	go func() {
		defer pumps.Done()
		for {
			select {
			case remaining, ok := <-ticks:
				if !ok {
					final, err := h.service.Attempt(ctx, attemptID)
					if err == nil && final.Status.Terminal() {
						select {
						case send <- outboundMessage[any]{Type: "result", Payload: final}:
						case <-closeSignals:
						}
					}
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{AttemptID: attemptID, TimeRemainingSeconds: remaining}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()
	return cancel
}

func decode(raw json.RawMessage, payload *answerPayload, send chan outboundMessage[any]) (string, bool) {
	var ref attemptRefPayload
	if err := json.Unmarshal(raw, &ref); err != nil || ref.AttemptID == "" {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid payload: attemptId required"}}
		return "", false
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
		return "", false
	}
	return ref.AttemptID, true
}

func errMsg(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
