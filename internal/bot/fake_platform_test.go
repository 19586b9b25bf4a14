// ABOUTME: Recording fake of the chat platform for bot tests
// ABOUTME: Hands out sequential room and event ids and can be told to fail specific calls

package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/2389/shopkeeper/internal/render"
)

var errPlatform = errors.New("platform unavailable")

type postedMessage struct {
	ID   string
	Room string
	Msg  render.Message
}

type fakePlatform struct {
	mu   sync.Mutex
	next int

	notices  map[string][]string
	posts    []postedMessage
	edits    map[string]render.Message // event id -> latest content
	redacted []string
	panels   []string
	shops    []string
	open     map[string]bool
	torndown []string
	dms      map[string][]render.Message

	failCreateShop bool
	failSend       bool
	failSetOpen    bool
	dmDelay        time.Duration
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		notices: make(map[string][]string),
		edits:   make(map[string]render.Message),
		open:    make(map[string]bool),
		dms:     make(map[string][]render.Message),
	}
}

func (f *fakePlatform) id(prefix string) string {
	f.next++
	return fmt.Sprintf("%s%d", prefix, f.next)
}

func (f *fakePlatform) SendNotice(_ context.Context, roomID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices[roomID] = append(f.notices[roomID], text)
	return nil
}

func (f *fakePlatform) SendMarkdown(_ context.Context, roomID string, msg render.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return "", errPlatform
	}
	id := f.id("$ev")
	f.posts = append(f.posts, postedMessage{ID: id, Room: roomID, Msg: msg})
	return id, nil
}

func (f *fakePlatform) EditMarkdown(_ context.Context, _, eventID string, msg render.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[eventID] = msg
	return nil
}

func (f *fakePlatform) Redact(_ context.Context, _, eventID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redacted = append(f.redacted, eventID)
	return nil
}

func (f *fakePlatform) CreateControlPanel(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id("!panel")
	f.panels = append(f.panels, id)
	return id, nil
}

func (f *fakePlatform) CreateShopRoom(_ context.Context, _, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateShop {
		return "", errPlatform
	}
	id := f.id("!shop")
	f.shops = append(f.shops, id)
	f.open[id] = false
	return id, nil
}

func (f *fakePlatform) SetShopOpen(_ context.Context, roomID string, open bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetOpen {
		return errPlatform
	}
	f.open[roomID] = open
	return nil
}

func (f *fakePlatform) TeardownRoom(_ context.Context, roomID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.torndown = append(f.torndown, roomID)
	return nil
}

func (f *fakePlatform) DirectMessage(_ context.Context, userID string, msg render.Message) error {
	time.Sleep(f.dmDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], msg)
	return nil
}

// lastNotice returns the most recent notice in a room, or "".
func (f *fakePlatform) lastNotice(roomID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.notices[roomID]
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1]
}

func (f *fakePlatform) noticeCount(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices[roomID])
}

// postsIn returns what was posted to a room, oldest first.
func (f *fakePlatform) postsIn(roomID string) []postedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []postedMessage
	for _, p := range f.posts {
		if p.Room == roomID {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakePlatform) wasRedacted(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.redacted {
		if id == eventID {
			return true
		}
	}
	return false
}
