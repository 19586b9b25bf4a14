// ABOUTME: Tests for converting Matrix timeline events into bot messages and membership changes
// ABOUTME: Covers edits, notices, profile updates and previous-membership parsing

package matrix

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

func textEvent(content *event.MessageEventContent) *event.Event {
	return &event.Event{
		ID:        "$msg",
		RoomID:    "!panel:example.org",
		Sender:    "@alice:example.org",
		Type:      event.EventMessage,
		Timestamp: 1700000000000,
		Content:   event.Content{Parsed: content},
	}
}

func TestMessageFromEvent(t *testing.T) {
	m, ok := messageFromEvent(textEvent(&event.MessageEventContent{MsgType: event.MsgText, Body: "!shop open"}))
	require.True(t, ok)
	assert.Equal(t, "$msg", m.EventID)
	assert.Equal(t, "!panel:example.org", m.RoomID)
	assert.Equal(t, "@alice:example.org", m.SenderID)
	assert.Equal(t, "!shop open", m.Body)
	assert.Equal(t, time.UnixMilli(1700000000000), m.Timestamp)
}

func TestMessageFromEvent_Skipped(t *testing.T) {
	notice := textEvent(&event.MessageEventContent{MsgType: event.MsgNotice, Body: "bot output"})
	_, ok := messageFromEvent(notice)
	assert.False(t, ok)

	edit := &event.MessageEventContent{MsgType: event.MsgText, Body: "* !shop close"}
	edit.SetEdit(id.EventID("$orig"))
	_, ok = messageFromEvent(textEvent(edit))
	assert.False(t, ok)

	_, ok = messageFromEvent(&event.Event{Content: event.Content{Parsed: &event.MemberEventContent{}}})
	assert.False(t, ok)
}

func memberEvent(user string, membership event.Membership, prev *event.Membership) *event.Event {
	stateKey := user
	evt := &event.Event{
		ID:        "$member",
		RoomID:    "!lobby:example.org",
		Sender:    id.UserID(user),
		Type:      event.StateMember,
		StateKey:  &stateKey,
		Timestamp: 1700000000000,
		Content: event.Content{Parsed: &event.MemberEventContent{
			Membership:  membership,
			Displayname: "Alice",
		}},
	}
	if prev != nil {
		raw, _ := json.Marshal(map[string]any{"membership": string(*prev)})
		evt.Unsigned.PrevContent = &event.Content{VeryRaw: raw}
	}
	return evt
}

func ptr(m event.Membership) *event.Membership { return &m }

func TestMembershipFromEvent(t *testing.T) {
	tests := []struct {
		name       string
		membership event.Membership
		prev       *event.Membership
		wantOK     bool
		wantJoined bool
	}{
		{"first join", event.MembershipJoin, nil, true, true},
		{"join after invite", event.MembershipJoin, ptr(event.MembershipInvite), true, true},
		{"profile update", event.MembershipJoin, ptr(event.MembershipJoin), false, false},
		{"leave after join", event.MembershipLeave, ptr(event.MembershipJoin), true, false},
		{"ban after join", event.MembershipBan, ptr(event.MembershipJoin), true, false},
		{"rejected invite", event.MembershipLeave, ptr(event.MembershipInvite), false, false},
		{"leave without history", event.MembershipLeave, nil, false, false},
		{"invite", event.MembershipInvite, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := membershipFromEvent(memberEvent("@alice:example.org", tt.membership, tt.prev))
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantJoined, ev.Joined)
			assert.Equal(t, "@alice:example.org", ev.UserID)
			assert.Equal(t, "!lobby:example.org", ev.RoomID)
			assert.Equal(t, "Alice", ev.DisplayName)
		})
	}
}

func TestMembershipFromEvent_NoStateKey(t *testing.T) {
	evt := memberEvent("@alice:example.org", event.MembershipJoin, nil)
	evt.StateKey = nil
	_, ok := membershipFromEvent(evt)
	assert.False(t, ok)
}

func TestPreviousMembership_AlreadyParsed(t *testing.T) {
	evt := memberEvent("@alice:example.org", event.MembershipLeave, nil)
	evt.Unsigned.PrevContent = &event.Content{Parsed: &event.MemberEventContent{Membership: event.MembershipJoin}}
	assert.Equal(t, event.MembershipJoin, previousMembership(evt))
}
