// ABOUTME: Command table and handlers for admin, shop and item commands
// ABOUTME: Handlers return the reply text or a typed shop error; platform effects follow successful writes

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/2389/shopkeeper/internal/render"
	"github.com/2389/shopkeeper/internal/shop"
	"github.com/2389/shopkeeper/internal/store"
)

// defaultAuditCount is how many entries the audit command shows by default.
const defaultAuditCount = 20

// request is one parsed command invocation.
type request struct {
	Message
	Args   []string
	ShopID string // set for control panel commands
}

// rest joins the arguments from i on, so trailing free text needs no quotes.
func (r *request) rest(i int) string {
	if i >= len(r.Args) {
		return ""
	}
	return strings.Join(r.Args[i:], " ")
}

type handlerFunc func(ctx context.Context, req *request) (string, error)

type command struct {
	Name           string
	Usage          string
	MinArgs        int
	InControlPanel bool // only runs in the sender's control panel
	Handler        handlerFunc
}

func (b *Bot) registerCommands() {
	cmds := []*command{
		{Name: "help", Usage: "help", Handler: b.help},
		{Name: "set_affiliate", Usage: "set_affiliate <user> <true/false>", MinArgs: 2, Handler: b.setAffiliate},
		{Name: "set_admin_status", Usage: "set_admin_status <user> <true/false>", MinArgs: 2, Handler: b.setAdminStatus},
		{Name: "audit", Usage: "audit [count]", Handler: b.audit},

		{Name: "shop", Usage: "shop <open/close>", MinArgs: 1, InControlPanel: true, Handler: b.setShopStatus},
		{Name: "items", Usage: "items", InControlPanel: true, Handler: b.listItems},
		{
			Name:           "add_item",
			Usage:          "add_item <name> <price> <qty> <type> <image> <desc>",
			MinArgs:        6,
			InControlPanel: true,
			Handler:        b.addItem,
		},
		{Name: "delete_item", Usage: "delete_item <item_id>", MinArgs: 1, InControlPanel: true, Handler: b.deleteItem},
		b.itemSetter("set_item_name", shop.FieldName, func(old, item *store.Item) string {
			return fmt.Sprintf("Successfully updated the item name from %s to %s!", old.Name, item.Name)
		}),
		b.itemSetter("set_item_desc", shop.FieldDesc, func(_, item *store.Item) string {
			return fmt.Sprintf("Successfully updated the item description for %s to %s!", item.Name, item.Description)
		}),
		b.itemSetter("set_item_price", shop.FieldPrice, func(_, item *store.Item) string {
			return fmt.Sprintf("Successfully updated the item price for %s to %s!", item.Name, render.FormatPrice(item.Price))
		}),
		b.itemSetter("set_item_quantity", shop.FieldQty, func(_, item *store.Item) string {
			return fmt.Sprintf("Successfully updated the item quantity for %s to %s!", item.Name, render.FormatQuantity(item.Quantity))
		}),
		b.itemSetter("set_item_type", shop.FieldType, func(_, item *store.Item) string {
			return fmt.Sprintf("Successfully updated the item type for %s to %s!", item.Name, item.Type)
		}),
		b.itemSetter("set_item_image", shop.FieldImage, func(_, item *store.Item) string {
			image := shop.NoImage
			if item.Image != nil {
				image = *item.Image
			}
			return fmt.Sprintf("Successfully updated the item image for %s to %s!", item.Name, image)
		}),
	}

	b.commands = make(map[string]*command, len(cmds))
	for _, c := range cmds {
		b.commands[c.Name] = c
	}
}

func (b *Bot) help(ctx context.Context, req *request) (string, error) {
	msg, err := render.Help(b.prefix)
	if err != nil {
		return "", err
	}
	b.send(ctx, req.RoomID, msg)
	return "", nil
}

// setAffiliate grants or revokes a user's shop. Rooms are created before the
// grant is recorded and torn down again if recording fails.
func (b *Bot) setAffiliate(ctx context.Context, req *request) (string, error) {
	if err := b.svc.CheckAdmin(ctx, req.SenderID, "", true); err != nil {
		return "", err
	}
	grant, err := shop.ParseBool(req.Args[1])
	if err != nil {
		return "", err
	}
	target, err := b.svc.FindUser(ctx, req.Args[0])
	if err != nil {
		return "", err
	}

	if grant {
		err = b.grantAffiliate(ctx, req.SenderID, target)
	} else {
		err = b.revokeAffiliate(ctx, req.SenderID, target.ID, "affiliate status revoked")
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully updated %s's affiliate status to %t!", target.DisplayName, grant), nil
}

func (b *Bot) grantAffiliate(ctx context.Context, actorID string, target *store.User) error {
	affiliated, err := b.svc.IsAffiliated(ctx, target.ID)
	if err != nil {
		return err
	}
	if affiliated {
		return &shop.Error{Kind: shop.KindAlreadyExists, Entity: shop.EntityAffiliate, Message: target.ID + " is already an affiliate"}
	}

	panelID, err := b.platform.CreateControlPanel(ctx, target.ID, target.DisplayName+"s control panel")
	if err != nil {
		return fmt.Errorf("creating control panel for %s: %w", target.ID, err)
	}
	shopName := target.DisplayName + "s shop"
	shopID, err := b.platform.CreateShopRoom(ctx, target.ID, shopName, "")
	if err != nil {
		b.teardown(ctx, "shop setup failed", panelID)
		return fmt.Errorf("creating shop room for %s: %w", target.ID, err)
	}

	sh, err := b.svc.GrantAffiliate(ctx, shop.AffiliateGrant{
		UserID:         target.ID,
		ControlPanelID: panelID,
		ShopID:         shopID,
		ShopName:       shopName,
	})
	if err != nil {
		b.teardown(ctx, "shop setup failed", panelID, shopID)
		return err
	}

	if welcome, err := render.ControlPanelWelcome(b.prefix); err == nil {
		b.send(ctx, panelID, welcome)
	} else {
		b.logger.Warn("failed to render control panel welcome", "error", err)
	}
	b.refreshSign(ctx, sh)

	b.svc.Record(ctx, actorID, store.AuditGrantAffiliate, "user", target.ID, map[string]any{
		"shop":          shopID,
		"control_panel": panelID,
	})
	b.metrics.AffiliateGranted()
	return nil
}

// revokeAffiliate removes the user's shop records and then their rooms.
func (b *Bot) revokeAffiliate(ctx context.Context, actorID, userID, reason string) error {
	revoked, err := b.svc.RevokeAffiliate(ctx, userID)
	b.teardown(ctx, reason, revoked.ControlPanelID, revoked.ShopID)
	if revoked.Any() {
		b.svc.Record(ctx, actorID, store.AuditRevokeAffiliate, "user", userID, map[string]any{
			"shop":          revoked.ShopID,
			"control_panel": revoked.ControlPanelID,
		})
		b.metrics.AffiliateRevoked()
	}
	return err
}

// teardown removes rooms, skipping empty ids. Failures are logged.
func (b *Bot) teardown(ctx context.Context, reason string, roomIDs ...string) {
	var errs error
	for _, id := range roomIDs {
		if id == "" {
			continue
		}
		if err := b.platform.TeardownRoom(ctx, id, reason); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tearing down %s: %w", id, err))
		}
	}
	if errs != nil {
		b.logger.Warn("room teardown incomplete", "rooms", roomIDs, "error", errs)
	}
}

func (b *Bot) setAdminStatus(ctx context.Context, req *request) (string, error) {
	// Unknown names fall through so the permission check still runs first.
	targetID := req.Args[0]
	if u, err := b.svc.FindUser(ctx, targetID); err == nil {
		targetID = u.ID
	} else if !errors.Is(err, shop.ErrUserNotFound) {
		return "", err
	}

	u, err := b.svc.SetAdminStatus(ctx, req.SenderID, targetID, req.Args[1])
	if err != nil {
		return "", err
	}
	b.svc.Record(ctx, req.SenderID, store.AuditSetAdmin, "user", u.ID, map[string]any{"admin": u.Admin})
	return fmt.Sprintf("Successfully updated %s's admin status to %t!", u.DisplayName, u.Admin), nil
}

func (b *Bot) audit(ctx context.Context, req *request) (string, error) {
	if err := b.svc.CheckAdmin(ctx, req.SenderID, "", true); err != nil {
		return "", err
	}

	limit := defaultAuditCount
	if len(req.Args) > 0 {
		n, err := strconv.Atoi(req.Args[0])
		if err != nil || n <= 0 {
			return "", &shop.Error{Kind: shop.KindInvalidResponse, Message: fmt.Sprintf("got %q, want a positive count", req.Args[0])}
		}
		limit = n
	}

	entries, err := b.svc.AuditLog(ctx, store.AuditFilter{Limit: limit})
	if err != nil {
		return "", err
	}
	b.send(ctx, req.RoomID, render.AuditLog(entries))
	return "", nil
}

func (b *Bot) setShopStatus(ctx context.Context, req *request) (string, error) {
	status, err := shop.ParseShopStatus(req.Args[0])
	if err != nil {
		return "", err
	}
	sh, err := b.svc.SetShopStatus(ctx, req.ShopID, status)
	if err != nil {
		return "", err
	}

	open := status == store.ShopOpen
	if err := b.platform.SetShopOpen(ctx, sh.ID, open); err != nil {
		b.logger.Warn("failed to update shop room access", "shop", sh.ID, "open", open, "error", err)
	}
	b.updateSign(ctx, sh)
	b.svc.Record(ctx, req.SenderID, store.AuditSetShopStatus, "shop", sh.ID, map[string]any{"status": string(status)})

	if open {
		return "You have successfully opened up shop!", nil
	}
	return "You have successfully closed down shop!", nil
}

func (b *Bot) listItems(ctx context.Context, req *request) (string, error) {
	items, err := b.svc.ListItems(ctx, req.ShopID)
	if err != nil {
		return "", err
	}
	b.send(ctx, req.RoomID, render.ItemTable(items))
	return "", nil
}

// addItem posts the listing first because its event id becomes the item id.
func (b *Bot) addItem(ctx context.Context, req *request) (string, error) {
	fields := shop.ItemFields{
		Name:        req.Args[0],
		Price:       req.Args[1],
		Quantity:    req.Args[2],
		Type:        req.Args[3],
		Image:       req.Args[4],
		Description: req.rest(5),
	}
	d, err := shop.ValidateItem(fields)
	if err != nil {
		return "", err
	}

	listingID, err := b.platform.SendMarkdown(ctx, req.ShopID,
		render.ItemDraft(d.Name, d.Description, d.Price, d.Quantity, d.Type, d.Image))
	if err != nil {
		return "", fmt.Errorf("posting listing: %w", err)
	}

	item, err := b.svc.AddItem(ctx, req.ShopID, listingID, fields)
	if err != nil {
		if rerr := b.platform.Redact(ctx, req.ShopID, listingID, "listing not saved"); rerr != nil {
			b.logger.Warn("failed to remove unsaved listing", "shop", req.ShopID, "event", listingID, "error", rerr)
		}
		return "", err
	}

	if sh, err := b.svc.GetShop(ctx, req.ShopID); err == nil {
		b.refreshSign(ctx, sh)
	}
	b.svc.Record(ctx, req.SenderID, store.AuditAddItem, "item", item.ID, map[string]any{
		"shop": req.ShopID,
		"name": item.Name,
	})
	return fmt.Sprintf("You have successfully added a new item to your shop! Item id: %s", item.ID), nil
}

func (b *Bot) deleteItem(ctx context.Context, req *request) (string, error) {
	item, err := b.svc.DeleteItem(ctx, req.Args[0], req.ShopID)
	if err != nil {
		return "", err
	}
	if err := b.platform.Redact(ctx, req.ShopID, item.ID, "item deleted"); err != nil {
		b.logger.Warn("failed to remove listing", "shop", req.ShopID, "item", item.ID, "error", err)
	}
	b.svc.Record(ctx, req.SenderID, store.AuditDeleteItem, "item", item.ID, map[string]any{
		"shop": req.ShopID,
		"name": item.Name,
	})
	return fmt.Sprintf("Successfully deleted item %s!", item.Name), nil
}

// itemSetter builds a set_item_* command. reply gets the item before and
// after the change.
func (b *Bot) itemSetter(name string, field shop.Field, reply func(old, item *store.Item) string) *command {
	return &command{
		Name:           name,
		Usage:          fmt.Sprintf("%s <item_id> <%s>", name, field),
		MinArgs:        2,
		InControlPanel: true,
		Handler: func(ctx context.Context, req *request) (string, error) {
			itemID := req.Args[0]
			old, err := b.svc.GetItem(ctx, itemID, req.ShopID)
			if err != nil {
				return "", err
			}
			item, err := b.svc.UpdateItemField(ctx, itemID, req.ShopID, field, req.rest(1))
			if err != nil {
				return "", err
			}

			if err := b.platform.EditMarkdown(ctx, req.ShopID, item.ID, render.ItemListing(item)); err != nil {
				b.logger.Warn("failed to edit listing", "shop", req.ShopID, "item", item.ID, "error", err)
			}
			b.svc.Record(ctx, req.SenderID, store.AuditUpdateItem, "item", item.ID, map[string]any{
				"shop":  req.ShopID,
				"field": string(field),
			})
			return reply(old, item), nil
		},
	}
}
