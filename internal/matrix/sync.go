// ABOUTME: Sync loop that turns Matrix timeline events into bot messages and membership changes
// ABOUTME: Each event is handled on its own goroutine; one user's membership changes run in order

package matrix

import (
	"context"
	"fmt"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/shopkeeper/internal/bot"
)

// Handler receives converted events. *bot.Bot implements it.
// QueueMembership is called on the sync goroutine in timeline order.
type Handler interface {
	HandleMessage(ctx context.Context, m bot.Message)
	QueueMembership(ev bot.Membership) func(context.Context)
}

// Run syncs until ctx is cancelled, auto-joining lobbyRoom when invited.
// It waits for in-flight handlers before returning.
func (c *Client) Run(ctx context.Context, h Handler, lobbyRoom string) error {
	syncer, ok := c.mx.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("%w: %T", errNoSyncer, c.mx.Syncer)
	}

	// Skip the backlog delivered by the first sync.
	syncer.OnSync(c.mx.DontProcessOldEvents)

	syncer.OnEventType(event.EventMessage, func(_ context.Context, evt *event.Event) {
		m, ok := messageFromEvent(evt)
		if !ok {
			return
		}
		c.dispatch(ctx, func(ctx context.Context) { h.HandleMessage(ctx, m) })
	})

	syncer.OnEventType(event.StateMember, func(_ context.Context, evt *event.Event) {
		if c.acceptLobbyInvite(ctx, evt, lobbyRoom) {
			return
		}
		ev, ok := membershipFromEvent(evt)
		if !ok {
			return
		}
		c.dispatch(ctx, h.QueueMembership(ev))
	})

	c.logger.Info("starting matrix sync", "homeserver", c.cfg.Homeserver, "user_id", c.mx.UserID)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- c.mx.SyncWithContext(ctx)
	}()

	var err error
	select {
	case <-ctx.Done():
		c.logger.Info("stopping matrix sync")
		c.mx.StopSync()
	case err = <-syncErr:
		if ctx.Err() == nil && err != nil {
			err = fmt.Errorf("matrix sync failed: %w", err)
		} else {
			err = nil
		}
	}

	c.wg.Wait()
	return err
}

func (c *Client) dispatch(ctx context.Context, fn func(context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(ctx)
	}()
}

// acceptLobbyInvite joins the lobby when the bot is invited to it and
// reports whether evt was that invite.
func (c *Client) acceptLobbyInvite(ctx context.Context, evt *event.Event, lobbyRoom string) bool {
	if evt.GetStateKey() != c.mx.UserID.String() {
		return false
	}
	content, ok := evt.Content.Parsed.(*event.MemberEventContent)
	if !ok || content.Membership != event.MembershipInvite {
		return false
	}
	if evt.RoomID.String() != lobbyRoom {
		c.logger.Debug("ignoring invite", "room", evt.RoomID, "sender", evt.Sender)
		return true
	}

	joinCtx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	if _, err := c.mx.JoinRoomByID(joinCtx, evt.RoomID); err != nil {
		c.logger.Error("failed to join lobby", "room", evt.RoomID, "error", err)
	} else {
		c.logger.Info("joined lobby", "room", evt.RoomID)
	}
	return true
}

// messageFromEvent converts a plain text message. Edits, notices and media
// are skipped.
func messageFromEvent(evt *event.Event) (bot.Message, bool) {
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return bot.Message{}, false
	}
	if content.RelatesTo != nil && content.RelatesTo.Type == event.RelReplace {
		return bot.Message{}, false
	}
	return bot.Message{
		EventID:   evt.ID.String(),
		RoomID:    evt.RoomID.String(),
		SenderID:  evt.Sender.String(),
		Body:      content.Body,
		Timestamp: time.UnixMilli(evt.Timestamp),
	}, true
}

// membershipFromEvent reports real joins and departures. Profile updates
// (join after join) and invites are skipped.
func membershipFromEvent(evt *event.Event) (bot.Membership, bool) {
	content, ok := evt.Content.Parsed.(*event.MemberEventContent)
	if !ok || evt.StateKey == nil {
		return bot.Membership{}, false
	}
	prev := previousMembership(evt)

	var joined bool
	switch content.Membership {
	case event.MembershipJoin:
		if prev == event.MembershipJoin {
			return bot.Membership{}, false
		}
		joined = true
	case event.MembershipLeave, event.MembershipBan:
		if prev != event.MembershipJoin {
			return bot.Membership{}, false
		}
	default:
		return bot.Membership{}, false
	}

	return bot.Membership{
		EventID:     evt.ID.String(),
		RoomID:      evt.RoomID.String(),
		UserID:      id.UserID(*evt.StateKey).String(),
		DisplayName: content.Displayname,
		Joined:      joined,
		Timestamp:   time.UnixMilli(evt.Timestamp),
	}, true
}

func previousMembership(evt *event.Event) event.Membership {
	prev := evt.Unsigned.PrevContent
	if prev == nil {
		return ""
	}
	if prev.Parsed == nil {
		if err := prev.ParseRaw(event.StateMember); err != nil {
			return ""
		}
	}
	if pm, ok := prev.Parsed.(*event.MemberEventContent); ok {
		return pm.Membership
	}
	return ""
}
