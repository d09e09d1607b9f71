// Command pokerserver wires the room state machine, the external
// collaborator stores, and the WebSocket gateway into one binary.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"pokerhall/auth"
	"pokerhall/evaluator"
	"pokerhall/registry"
	"pokerhall/service"
	"pokerhall/store"
	"pokerhall/transport"
)

func main() {
	roomIDs := configuredRoomIDs()

	backend, storeMode, err := store.NewFromEnv(roomIDs)
	if err != nil {
		log.Fatalf("[pokerserver] failed to init store: %v", err)
	}
	defer backend.Close()

	reg := registry.New()
	eval := evaluator.New()
	authMgr := auth.NewManager(backend.Users)
	gw := transport.New(authMgr)

	svc := service.New(reg, eval, backend.RoomInfo, backend.Users, gw, nil)
	gw.SetGameService(svc)

	if err := svc.InitRooms(context.Background()); err != nil {
		log.Fatalf("[pokerserver] failed to init rooms: %v", err)
	}

	authHTTP := auth.NewHTTPHandler(authMgr)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	authHTTP.RegisterRoutes(mux)

	addr := strings.TrimSpace(os.Getenv("SERVER_ADDR"))
	if addr == "" {
		addr = ":18080"
	}
	log.Printf("[pokerserver] store mode: %s", storeMode)
	log.Printf("[pokerserver] rooms: %d", len(roomIDs))
	log.Printf("[pokerserver] starting WebSocket server on %s", addr)
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil {
		log.Fatalf("[pokerserver] failed to start: %v", err)
	}
}

// configuredRoomIDs reads POKERHALL_ROOM_IDS (comma-separated UUIDs) for
// the in-memory backend's seed list; sqlite/postgres ignore it and read
// their room_info table instead.
func configuredRoomIDs() []uuid.UUID {
	raw := strings.TrimSpace(os.Getenv("POKERHALL_ROOM_IDS"))
	if raw == "" {
		return []uuid.UUID{uuid.New()}
	}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			log.Fatalf("[pokerserver] invalid room id %q: %v", part, err)
		}
		ids = append(ids, id)
	}
	return ids
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
