// ABOUTME: Platform is the chat side the bot drives: messages, rooms and direct messages
// ABOUTME: Implemented by the matrix package and by a recording fake in tests

package bot

import (
	"context"
	"time"

	"github.com/2389/shopkeeper/internal/render"
)

// Platform performs chat side effects. Room and event ids are opaque strings.
type Platform interface {
	// SendNotice posts a plain notice, used for command replies.
	SendNotice(ctx context.Context, roomID, text string) error
	// SendMarkdown posts a formatted message and returns its event id.
	SendMarkdown(ctx context.Context, roomID string, msg render.Message) (string, error)
	// EditMarkdown replaces the content of a message the bot sent earlier.
	EditMarkdown(ctx context.Context, roomID, eventID string, msg render.Message) error
	// Redact removes a message.
	Redact(ctx context.Context, roomID, eventID, reason string) error

	// CreateControlPanel creates a private room for ownerID and returns its id.
	CreateControlPanel(ctx context.Context, ownerID, name string) (string, error)
	// CreateShopRoom creates the room where ownerID's listings are posted.
	// New shop rooms are closed.
	CreateShopRoom(ctx context.Context, ownerID, name, topic string) (string, error)
	// SetShopOpen lets members join the shop room (open) or not (closed).
	SetShopOpen(ctx context.Context, roomID string, open bool) error
	// TeardownRoom removes everyone from a room the bot created and leaves it.
	TeardownRoom(ctx context.Context, roomID, reason string) error

	// DirectMessage sends msg to userID in a one to one room.
	DirectMessage(ctx context.Context, userID string, msg render.Message) error
}

// Message is an incoming text message.
type Message struct {
	EventID   string
	RoomID    string
	SenderID  string
	Body      string
	Timestamp time.Time
}

// Membership is an incoming join or leave in a room.
type Membership struct {
	EventID     string
	RoomID      string
	UserID      string
	DisplayName string
	Joined      bool // false means the user left or was removed
	Timestamp   time.Time
}
