package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"xforce-progression/internal/app"
	"xforce-progression/internal/domain"
	"xforce-progression/internal/logger"
	"xforce-progression/internal/metrics"
)

type WSHandler struct {
	service       *app.ProgressionService
	hub           *Hub
	autoProvision bool
	log           *logger.Logger
	upgrader      websocket.Upgrader
}

func NewWSHandler(service *app.ProgressionService, hub *Hub, autoProvision bool, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service:       service,
		hub:           hub,
		autoProvision: autoProvision,
		log:           log.With("component", "ws"),
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

type submitQuizPayload struct {
	QuizID           string                    `json:"quizId"`
	Answers          []domain.AnswerSubmission `json:"answers"`
	TimeTakenSeconds *float64                  `json:"timeTakenSeconds,omitempty"`
}

type leaderboardPayload struct {
	Limit int `json:"limit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var pushTypes = map[domain.EventType]string{
	domain.EventQuizScored:          "quizScored",
	domain.EventLevelUp:             "levelUp",
	domain.EventAchievementUnlocked: "achievementUnlocked",
	domain.EventStreakUpdated:       "streakUpdated",
}

// ServeWS upgrades HTTP requests to websockets. Connecting counts as user
// activity; afterwards the client can submit quizzes and query its progression
// while level-ups and unlocks are pushed as they happen.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	ctx := r.Context()
	if h.autoProvision {
		if _, err := h.service.Provision(ctx, userID); err != nil {
			_ = conn.WriteJSON(h.failure(userID, err))
			return
		}
	}

	// Subscribe before recording activity so the connect-time unlocks are pushed too.
	events, cancel := h.hub.Subscribe(userID)
	defer cancel()

	activity, err := h.service.OnUserActivity(ctx, userID, time.Time{})
	if err != nil {
		_ = conn.WriteJSON(h.failure(userID, err))
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "userId", userID, "error", err)
				// Unblock ReadJSON so the read loop stops too.
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				typ, ok := pushTypes[event.Type]
				if !ok {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: typ, Payload: event}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if enqueue(send, writerDone, outboundMessage[any]{Type: "connected", Payload: activity}) {
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				break
			}
			if !enqueue(send, writerDone, h.handle(r, userID, inbound)) {
				break
			}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handle(r *http.Request, userID string, inbound inboundMessage) outboundMessage[any] {
	ctx := r.Context()
	switch inbound.Type {
	case "submitQuiz":
		var payload submitQuizPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return rejected("invalid submitQuiz payload")
		}
		outcome, err := h.service.OnQuizSubmitted(ctx, userID, payload.QuizID, payload.Answers, payload.TimeTakenSeconds)
		if err != nil {
			return h.failure(userID, err)
		}
		return outboundMessage[any]{Type: "quizResult", Payload: outcome}
	case "progress":
		progress, err := h.service.AchievementProgress(ctx, userID)
		if err != nil {
			return h.failure(userID, err)
		}
		return outboundMessage[any]{Type: "progress", Payload: progress}
	case "snapshot":
		snapshot, err := h.service.Snapshot(ctx, userID)
		if err != nil {
			return h.failure(userID, err)
		}
		return outboundMessage[any]{Type: "snapshot", Payload: snapshot}
	case "leaderboard":
		var payload leaderboardPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				return rejected("invalid leaderboard payload")
			}
		}
		lb, err := h.service.Leaderboard(ctx, payload.Limit)
		if err != nil {
			return h.failure(userID, err)
		}
		return outboundMessage[any]{Type: "leaderboard", Payload: lb}
	default:
		return rejected("unsupported message type")
	}
}

// enqueue hands msg to the writer. It reports false once the writer has stopped.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// failure maps a service error to an outbound message. Input errors are echoed
// back as "rejected"; anything else is logged and reported as an opaque "error".
func (h *WSHandler) failure(userID string, err error) outboundMessage[any] {
	if domain.IsInputError(err) {
		return rejected(err.Error())
	}
	h.log.Error("ws request failed", "userId", userID, "error", err)
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "internal error"}}
}

func rejected(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "rejected", Payload: errorPayload{Message: msg}}
}
