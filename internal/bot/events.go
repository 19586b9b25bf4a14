// ABOUTME: Lobby membership handling and shop sign upkeep
// ABOUTME: Joins register users and get a welcome DM; leaves revoke the affiliate and remove the user

package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/2389/shopkeeper/internal/render"
	"github.com/2389/shopkeeper/internal/shop"
	"github.com/2389/shopkeeper/internal/store"
)

// QueueMembership reserves ev's turn among its user's membership events and
// returns the handler to run. Call it in delivery order; the handler may run
// on any goroutine and must be run exactly once. A second event for the same
// user blocks here until the previous handler has finished.
func (b *Bot) QueueMembership(ev Membership) func(context.Context) {
	b.members.Lock(ev.UserID)
	return func(ctx context.Context) {
		defer b.members.Unlock(ev.UserID)
		b.HandleMembership(ctx, ev)
	}
}

// HandleMembership processes a join or leave. Only the lobby room counts.
func (b *Bot) HandleMembership(ctx context.Context, ev Membership) {
	if ev.UserID == b.self || ev.RoomID != b.lobby {
		return
	}
	if b.duplicate(ev.EventID) {
		return
	}

	if ev.Joined {
		b.metrics.IncEvent("join")
		b.memberJoined(ctx, ev)
		return
	}
	b.metrics.IncEvent("leave")
	b.memberLeft(ctx, ev)
}

func (b *Bot) memberJoined(ctx context.Context, ev Membership) {
	name := ev.DisplayName
	if name == "" {
		name = localpart(ev.UserID)
	}

	if _, err := b.svc.RegisterMember(ctx, ev.UserID, name, ev.Timestamp); err != nil {
		if errors.Is(err, shop.ErrUserExists) {
			b.logger.Debug("member already registered", "user", ev.UserID)
			return
		}
		b.logger.Error("failed to register member", "user", ev.UserID, "error", err)
		return
	}
	b.svc.Record(ctx, ev.UserID, store.AuditMemberJoin, "user", ev.UserID, nil)

	if err := b.platform.DirectMessage(ctx, ev.UserID, b.welcome); err != nil {
		b.logger.Warn("failed to send welcome", "user", ev.UserID, "error", err)
	}
}

// memberLeft revokes before removing so the user's shop and rooms go too.
func (b *Bot) memberLeft(ctx context.Context, ev Membership) {
	if err := b.revokeAffiliate(ctx, ev.UserID, ev.UserID, "owner left"); err != nil {
		b.logger.Error("failed to revoke departing affiliate", "user", ev.UserID, "error", err)
	}

	if err := b.svc.RemoveMember(ctx, ev.UserID); err != nil {
		if !errors.Is(err, shop.ErrUserNotFound) {
			b.logger.Error("failed to remove member", "user", ev.UserID, "error", err)
		}
		return
	}
	b.svc.Record(ctx, ev.UserID, store.AuditMemberLeave, "user", ev.UserID, nil)
}

// refreshSignAfter re-posts the sign when someone else wrote in a shop room.
func (b *Bot) refreshSignAfter(ctx context.Context, m Message) {
	sh, err := b.svc.GetShop(ctx, m.RoomID)
	if err != nil {
		if !errors.Is(err, shop.ErrShopNotFound) {
			b.logger.Warn("failed to look up shop room", "room", m.RoomID, "error", err)
		}
		return
	}
	if strings.Contains(m.Body, render.SignText(sh.Status)) {
		return
	}
	b.refreshSign(ctx, sh)
}

// refreshSign posts a new sign at the bottom of the shop room and removes
// the previous one. Concurrent refreshes for one shop are dropped.
func (b *Bot) refreshSign(ctx context.Context, sh *store.Shop) {
	release, ok := b.signs.TryAcquire(sh.ID)
	if !ok {
		b.logger.Debug("sign refresh already running", "shop", sh.ID)
		return
	}
	defer release()

	signID, err := b.platform.SendMarkdown(ctx, sh.ID, render.ShopSign(b.ownerName(ctx, sh), sh))
	if err != nil {
		b.logger.Warn("failed to post shop sign", "shop", sh.ID, "error", err)
		return
	}

	prev, err := b.svc.SetShopSign(ctx, sh.ID, signID)
	if err != nil {
		b.logger.Warn("failed to record shop sign", "shop", sh.ID, "error", err)
		return
	}
	if prev != nil && *prev != signID {
		if err := b.platform.Redact(ctx, sh.ID, *prev, "sign moved"); err != nil {
			b.logger.Warn("failed to remove old shop sign", "shop", sh.ID, "event", *prev, "error", err)
		}
	}
}

// updateSign rewrites the current sign in place, posting one if there is none.
func (b *Bot) updateSign(ctx context.Context, sh *store.Shop) {
	if sh.SignID == nil {
		b.refreshSign(ctx, sh)
		return
	}
	if err := b.platform.EditMarkdown(ctx, sh.ID, *sh.SignID, render.ShopSign(b.ownerName(ctx, sh), sh)); err != nil {
		b.logger.Warn("failed to edit shop sign", "shop", sh.ID, "error", err)
	}
}

func (b *Bot) ownerName(ctx context.Context, sh *store.Shop) string {
	if u, err := b.svc.GetUser(ctx, sh.OwnerID); err == nil {
		return u.DisplayName
	}
	return sh.OwnerID
}

// localpart returns "alice" for "@alice:example.org".
func localpart(userID string) string {
	s := strings.TrimPrefix(userID, "@")
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return s
}
