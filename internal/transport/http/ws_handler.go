package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"idiom-battle-service/internal/app"
	"idiom-battle-service/internal/combat"
	"idiom-battle-service/internal/domain"
)

type WSHandler struct {
	service  *app.BattleService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BattleService) *WSHandler {
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

type difficultyPayload struct {
	Tier string `json:"tier"`
}

type answerPayload struct {
	Choice  int  `json:"choice"`
	Timeout bool `json:"timeout"`
}

// quizView is the client-facing quiz. The correct index stays server-side;
// the client only ever learns it through the resolution events.
type quizView struct {
	Prompt      string             `json:"prompt"`
	Choices     []string           `json:"choices"`
	Tier        domain.Tier        `json:"tier"`
	TimeLimitMs int64              `json:"timeLimitMs"`
	Purpose     domain.QuizPurpose `json:"purpose"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the connection and runs one battle: query params identify
// the player and stage, inbound messages drive the turn engine, and engine
// events stream back as they happen.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	stageRaw := r.URL.Query().Get("stage")
	stageID, err := strconv.Atoi(stageRaw)
	if userID == "" || err != nil {
		http.Error(w, "missing userId or stage", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	snapshot, err := h.service.StartBattle(r.Context(), userID, stageID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	events, cancel, err := h.service.Subscribe(r.Context(), userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Abandon(r.Context(), userID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
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
				select {
				case send <- toOutbound(event):
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "battleStarted", Payload: snapshot}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(r, userID, inbound, send)
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(r *http.Request, userID string, inbound inboundMessage, send chan outboundMessage[any]) {
	switch inbound.Type {
	case "selectDifficulty":
		var payload difficultyPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errorMessage("invalid difficulty payload")
			return
		}
		tier, err := domain.ParseTier(payload.Tier)
		if err != nil {
			send <- errorMessage(err.Error())
			return
		}
		if _, err := h.service.SelectDifficulty(r.Context(), userID, tier); err != nil {
			send <- errorMessage(err.Error())
		}
	case "attackAnswer":
		choice, ok := parseAnswer(inbound.Payload, send)
		if !ok {
			return
		}
		if _, err := h.service.SubmitAttack(r.Context(), userID, choice); err != nil {
			send <- errorMessage(err.Error())
			return
		}
		h.continueCounterIfPending(r, userID, send)
	case "defenseAnswer":
		choice, ok := parseAnswer(inbound.Payload, send)
		if !ok {
			return
		}
		if _, err := h.service.SubmitDefense(r.Context(), userID, choice); err != nil {
			send <- errorMessage(err.Error())
		}
	case "continueCounter":
		// Manual retry path for a failed defense-quiz generation.
		if _, err := h.service.ContinueBossCounter(r.Context(), userID); err != nil {
			send <- errorMessage(err.Error())
		}
	default:
		send <- errorMessage("unsupported message type")
	}
}

// continueCounterIfPending rolls the boss counter-attack immediately after a
// non-lethal attack so the defense quiz reaches the client without another
// round trip. Pool shortages surface as an error; the client retries with
// continueCounter or abandons the stage.
func (h *WSHandler) continueCounterIfPending(r *http.Request, userID string, send chan outboundMessage[any]) {
	snapshot, err := h.service.Snapshot(userID)
	if err != nil || snapshot.Phase != combat.PhaseBossCounter {
		return
	}
	if _, err := h.service.ContinueBossCounter(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrInsufficientPool) {
			send <- errorMessage("defense quiz unavailable, retry with continueCounter")
			return
		}
		send <- errorMessage(err.Error())
	}
}

func parseAnswer(raw json.RawMessage, send chan outboundMessage[any]) (int, bool) {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		send <- errorMessage("invalid answer payload")
		return 0, false
	}
	if payload.Timeout {
		return domain.NoAnswer, true
	}
	return payload.Choice, true
}

func errorMessage(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

func toOutbound(event domain.Event) outboundMessage[any] {
	if presented, ok := event.(domain.QuizPresented); ok {
		return outboundMessage[any]{Type: "quiz", Payload: quizView{
			Prompt:      presented.Quiz.Prompt,
			Choices:     presented.Quiz.Choices,
			Tier:        presented.Quiz.Tier,
			TimeLimitMs: presented.Quiz.TimeLimitMs,
			Purpose:     presented.Purpose,
		}}
	}
	return outboundMessage[any]{Type: event.Kind(), Payload: event}
}
