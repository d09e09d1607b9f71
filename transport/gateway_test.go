package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pokerhall/evaluator"
	"pokerhall/registry"
	"pokerhall/room"
	"pokerhall/service"
	"pokerhall/store"
)

func TestDecodeActionParsesBareStringVariants(t *testing.T) {
	cases := map[string]room.ActionKind{
		`"Fold"`:  room.ActionFold,
		`"Check"`: room.ActionCheck,
		`"Call"`:  room.ActionCall,
		`"AllIn"`: room.ActionAllIn,
	}
	for raw, want := range cases {
		got, err := decodeAction(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("decodeAction(%s): %v", raw, err)
		}
		if got.Kind != want {
			t.Fatalf("decodeAction(%s) = %v, want %v", raw, got.Kind, want)
		}
	}
}

func TestDecodeActionParsesRaiseObject(t *testing.T) {
	got, err := decodeAction(json.RawMessage(`{"Raise": 150}`))
	if err != nil {
		t.Fatalf("decodeAction: %v", err)
	}
	if got.Kind != room.ActionRaise {
		t.Fatalf("expected ActionRaise, got %v", got.Kind)
	}
	if got.Amount != 150 {
		t.Fatalf("expected amount 150, got %d", got.Amount)
	}
}

func TestDecodeActionRejectsUnknownString(t *testing.T) {
	if _, err := decodeAction(json.RawMessage(`"Bluff"`)); err == nil {
		t.Fatalf("expected an error for an unrecognized action string")
	}
}

func TestDecodeActionRejectsMalformedPayload(t *testing.T) {
	if _, err := decodeAction(json.RawMessage(`42`)); err == nil {
		t.Fatalf("expected an error for a non-string, non-object payload")
	}
}

type staticResolver struct {
	userID uuid.UUID
	name   string
}

func (r staticResolver) ResolveSession(ctx context.Context, token string) (uuid.UUID, string, error) {
	return r.userID, r.name, nil
}

// TestSocketDisconnectTriggersLeavePlayer drives a real join over a
// websocket connection, closes the socket without sending an explicit
// "leave" event, and checks that readPump's cleanup still calls
// LeavePlayer: the buy-in is credited back and the user's current room
// is cleared, the same as the explicit leave path.
func TestSocketDisconnectTriggersLeavePlayer(t *testing.T) {
	ctx := context.Background()
	roomID := uuid.New()
	userID := uuid.New()

	mem := store.NewMemoryStore([]uuid.UUID{roomID})
	if err := mem.CreateUser(ctx, userID, "alice", 1000); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	reg := registry.New()
	reg.Upsert(room.NewRoomWithID(roomID, nil))

	gw := New(staticResolver{userID: userID, name: "alice"})
	svc := service.New(reg, evaluator.New(), mem, mem, gw, nil)
	gw.SetGameService(svc)

	srv := httptest.NewServer(http.HandlerFunc(gw.HandleWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=anything"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	join := clientEvent{Type: "join", RoomID: roomID, BuyIn: 200}
	payload, err := json.Marshal(join)
	if err != nil {
		t.Fatalf("marshal join: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		u, err := mem.Get(ctx, userID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if u.CurrentRoom != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("JoinPlayer did not complete within the deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for {
		u, err := mem.Get(ctx, userID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if u.CurrentRoom == nil && u.Balance == 1000 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected disconnect to trigger LeavePlayer (CurrentRoom cleared, balance restored to 1000), got CurrentRoom=%v balance=%d", u.CurrentRoom, u.Balance)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
