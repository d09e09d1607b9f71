package service

import "github.com/google/uuid"

// Fabric is the broadcast fabric the game service publishes through:
// a topic-based publish, a point-to-point publish, and subscription
// management. Implementations (e.g. transport.Gateway) own the actual
// sockets; the service never touches a socket directly.
type Fabric interface {
	// PublishRoom fans payload out to every socket subscribed to roomID.
	PublishRoom(roomID uuid.UUID, payload any)
	// PublishHand sends payload to exactly one socket.
	PublishHand(socketID string, payload any)
	// PublishOutcome fans payload out to every socket subscribed to roomID.
	PublishOutcome(roomID uuid.UUID, payload any)
	// Subscribe joins a socket to a room's topic.
	Subscribe(socketID string, roomID uuid.UUID)
	// Unsubscribe leaves a socket from a room's topic.
	Unsubscribe(socketID string, roomID uuid.UUID)
	// Disconnect forcibly closes a socket.
	Disconnect(socketID string)
}
