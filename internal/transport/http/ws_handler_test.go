package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"idiom-battle-service/internal/app"
	"idiom-battle-service/internal/domain"
	"idiom-battle-service/internal/infra/memory"
)

func TestWebSocketBattleFlow(t *testing.T) {
	service := app.NewBattleService(
		memory.NewSessionStore(),
		memory.NewIdiomBank(memory.NewStaticBankLoader(sampleBank()), time.Minute),
		memory.NewProgressStore(),
		nil,
	)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1&stage=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msgType, payload := readNext(conn, t, "battleStarted")
	if msgType != "battleStarted" {
		t.Fatalf("expected battleStarted, got %s", msgType)
	}
	if payload["phase"] != "awaitingDifficulty" {
		t.Fatalf("expected awaitingDifficulty phase, got %v", payload["phase"])
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "selectDifficulty",
		"payload": map[string]any{"tier": "EASY"},
	}); err != nil {
		t.Fatalf("write selectDifficulty: %v", err)
	}

	_, quiz := readNext(conn, t, "quiz")
	choices, ok := quiz["choices"].([]any)
	if !ok || len(choices) != 4 {
		t.Fatalf("expected 4 quiz choices, got %v", quiz["choices"])
	}
	if _, leaked := quiz["correctIndex"]; leaked {
		t.Fatalf("correct index leaked to the client")
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "attackAnswer",
		"payload": map[string]any{"choice": 0},
	}); err != nil {
		t.Fatalf("write attackAnswer: %v", err)
	}

	// The attack resolution arrives first, then the boss counter's defense
	// quiz follows without another client round trip.
	attackSeen := false
	defenseQuizSeen := false
	for i := 0; i < 3; i++ {
		typ, body := readNext(conn, t, "")
		switch typ {
		case "attackResolved":
			attackSeen = true
		case "quiz":
			if body["purpose"] == "defense" {
				defenseQuizSeen = true
			}
		}
		if attackSeen && defenseQuizSeen {
			break
		}
	}
	if !attackSeen || !defenseQuizSeen {
		t.Fatalf("expected attackResolved and defense quiz, got attackResolved=%v defenseQuiz=%v", attackSeen, defenseQuizSeen)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "defenseAnswer",
		"payload": map[string]any{"timeout": true},
	}); err != nil {
		t.Fatalf("write defenseAnswer: %v", err)
	}

	_, resolution := readNext(conn, t, "defenseResolved")
	if success, ok := resolution["success"].(bool); !ok || success {
		t.Fatalf("expected failed defense on timeout, got %v", resolution)
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	service := app.NewBattleService(
		memory.NewSessionStore(),
		memory.NewIdiomBank(memory.NewStaticBankLoader(sampleBank()), time.Minute),
		memory.NewProgressStore(),
		nil,
	)
	wsHandler := NewWSHandler(service)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "?userId=u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing stage, got %d", resp.StatusCode)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func sampleBank() map[domain.Tier][]domain.Idiom {
	bank := make(map[domain.Tier][]domain.Idiom)
	id := int64(1)
	for _, tier := range domain.Tiers {
		for _, answer := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
			bank[tier] = append(bank[tier], domain.Idiom{
				ID:     id,
				Prompt: "meaning of " + answer,
				Answer: string(tier) + " " + answer,
				Tier:   tier,
			})
			id++
		}
	}
	return bank
}
