package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler exposes one attempt per websocket connection. Connecting starts
// the attempt; the handler owns the per-second clock that drives the
// controller, so the engine itself never touches a timer.
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
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
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

// optionView and friends are what the taker sees: correct options never
// leave the server.
type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID      string       `json:"id"`
	Prompt  string       `json:"prompt"`
	Options []optionView `json:"options"`
	Points  int          `json:"points"`
}

type startedPayload struct {
	AttemptID        string         `json:"attemptId"`
	QuizID           string         `json:"quizId"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	PassingScore     int            `json:"passingScore"`
	Questions        []questionView `json:"questions"`
	RemainingSeconds int            `json:"remainingSeconds"`
	CurrentIndex     int            `json:"currentIndex"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type answerSavedPayload struct {
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId,omitempty"`
}

type positionPayload struct {
	CurrentIndex int `json:"currentIndex"`
}

type resultPayload struct {
	AttemptID string `json:"attemptId"`
	domain.Result
	AutoSubmitted bool `json:"autoSubmitted"`
}

// ServeWS upgrades the request, starts an attempt, and bridges websocket
// messages into controller calls until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	takerID := r.URL.Query().Get("takerId") // empty means anonymous practice
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	controller, err := h.service.StartAttempt(r.Context(), quizID, takerID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	attempt := controller.Attempt()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	// The handler is the clock source: one Tick per wall-clock second while
	// the attempt runs. Only a tick that itself crossed into Submitted may
	// push a result; a manual submit is answered on the read loop.
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				remaining, autoSubmitted, err := controller.Tick(r.Context())
				if err != nil {
					if !push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}) {
						return
					}
					continue
				}
				if !push(outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: remaining}}) {
					return
				}
				if autoSubmitted {
					if result, ok := controller.Result(); ok {
						push(outboundMessage[any]{Type: "result", Payload: resultPayload{AttemptID: attempt.ID, Result: result, AutoSubmitted: true}})
					}
					return
				}
				if controller.State() == app.StateSubmitted {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "started", Payload: startedView(attempt, controller)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := controller.SelectAnswer(payload.QuestionID, payload.OptionID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerSaved", Payload: answerSavedPayload{QuestionID: payload.QuestionID, OptionID: payload.OptionID}}
		case "goto":
			var payload gotoPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid goto payload"}}
				continue
			}
			index := controller.GoTo(payload.Index)
			send <- outboundMessage[any]{Type: "position", Payload: positionPayload{CurrentIndex: index}}
		case "submit":
			result, err := controller.Submit(r.Context())
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: resultPayload{AttemptID: attempt.ID, Result: result}}
		case "history":
			attempts, err := h.service.History(r.Context(), quizID, takerID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "history", Payload: attempts}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
}

func startedView(attempt domain.Attempt, controller *app.Controller) startedPayload {
	quiz := controller.Quiz()
	questions := make([]questionView, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		options := make([]optionView, 0, len(question.Options))
		for _, opt := range question.Options {
			options = append(options, optionView{ID: opt.ID, Text: opt.Text})
		}
		questions = append(questions, questionView{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Options: options,
			Points:  question.Points,
		})
	}
	return startedPayload{
		AttemptID:        attempt.ID,
		QuizID:           quiz.ID,
		Title:            quiz.Title,
		Description:      quiz.Description,
		TimeLimitSeconds: quiz.TimeLimitSeconds,
		PassingScore:     quiz.PassingScore,
		Questions:        questions,
		RemainingSeconds: controller.Remaining(),
		CurrentIndex:     controller.CurrentIndex(),
	}
}
