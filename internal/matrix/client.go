// ABOUTME: mautrix client that performs the bot's chat side effects on a Matrix homeserver
// ABOUTME: Sends and edits messages, creates and tears down rooms, and keeps one DM room per user

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/shopkeeper/internal/bot"
	"github.com/2389/shopkeeper/internal/config"
	"github.com/2389/shopkeeper/internal/render"
)

// networkTimeout bounds each homeserver call.
const networkTimeout = 30 * time.Second

// deviceName is shown in other clients' session lists.
const deviceName = "shopkeeper"

var _ bot.Platform = (*Client)(nil)

// Client implements bot.Platform over mautrix.
type Client struct {
	mx     *mautrix.Client
	cfg    config.MatrixConfig
	logger *slog.Logger
	crypto *cryptoStore

	dmMu sync.Mutex
	dms  map[id.UserID]id.RoomID

	// handlers run on their own goroutines; Run waits for them on shutdown
	wg sync.WaitGroup
}

// New creates a client for the configured account. Call Login before use.
func New(cfg config.MatrixConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mx, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return newClient(mx, cfg, logger), nil
}

func newClient(mx *mautrix.Client, cfg config.MatrixConfig, logger *slog.Logger) *Client {
	return &Client{
		mx:     mx,
		cfg:    cfg,
		logger: logger.With("component", "matrix"),
		dms:    make(map[id.UserID]id.RoomID),
	}
}

// Login authenticates with a password, or checks the configured access
// token and learns its device id.
func (c *Client) Login(ctx context.Context) error {
	if c.cfg.AccessToken != "" {
		resp, err := c.mx.Whoami(ctx)
		if err != nil {
			return fmt.Errorf("checking access token: %w", err)
		}
		c.mx.UserID = resp.UserID
		c.mx.DeviceID = resp.DeviceID
		c.logger.Info("using access token", "user_id", resp.UserID, "device_id", resp.DeviceID)
		return nil
	}

	resp, err := c.mx.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: c.cfg.Username,
		},
		Password:                 c.cfg.Password,
		InitialDeviceDisplayName: deviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("logging in as %s: %w", c.cfg.Username, err)
	}
	c.logger.Info("logged in", "user_id", resp.UserID, "device_id", resp.DeviceID)
	return nil
}

// EnableEncryption sets up E2EE with the crypto store in dataDir.
func (c *Client) EnableEncryption(ctx context.Context, dataDir string) error {
	cs, err := setupCrypto(ctx, c.mx, c.cfg.RecoveryKey, dataDir, c.logger)
	if err != nil {
		return err
	}
	c.crypto = cs
	return nil
}

// UserID is the bot's own Matrix user id.
func (c *Client) UserID() string {
	return c.mx.UserID.String()
}

// Close releases the crypto store.
func (c *Client) Close() error {
	return c.crypto.Close()
}

func (c *Client) SendNotice(ctx context.Context, roomID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	content := &event.MessageEventContent{MsgType: event.MsgNotice, Body: text}
	if _, err := c.mx.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content); err != nil {
		return fmt.Errorf("sending notice to %s: %w", roomID, err)
	}
	return nil
}

func (c *Client) SendMarkdown(ctx context.Context, roomID string, msg render.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	resp, err := c.mx.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, formatted(msg))
	if err != nil {
		return "", fmt.Errorf("sending message to %s: %w", roomID, err)
	}
	return resp.EventID.String(), nil
}

func (c *Client) EditMarkdown(ctx context.Context, roomID, eventID string, msg render.Message) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	content := formatted(msg)
	content.SetEdit(id.EventID(eventID))
	if _, err := c.mx.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content); err != nil {
		return fmt.Errorf("editing %s in %s: %w", eventID, roomID, err)
	}
	return nil
}

func (c *Client) Redact(ctx context.Context, roomID, eventID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	if _, err := c.mx.RedactEvent(ctx, id.RoomID(roomID), id.EventID(eventID), mautrix.ReqRedact{Reason: reason}); err != nil {
		return fmt.Errorf("redacting %s in %s: %w", eventID, roomID, err)
	}
	return nil
}

func (c *Client) CreateControlPanel(ctx context.Context, ownerID, name string) (string, error) {
	return c.createRoom(ctx, &mautrix.ReqCreateRoom{
		Name:   name,
		Topic:  "Run shop commands here.",
		Preset: "private_chat",
		Invite: []id.UserID{id.UserID(ownerID)},
	})
}

// CreateShopRoom creates an invite-only room where only the bot may post.
func (c *Client) CreateShopRoom(ctx context.Context, ownerID, name, topic string) (string, error) {
	return c.createRoom(ctx, &mautrix.ReqCreateRoom{
		Name:   name,
		Topic:  topic,
		Preset: "private_chat",
		Invite: []id.UserID{id.UserID(ownerID)},
		PowerLevelOverride: &event.PowerLevelsEventContent{
			Users:         map[id.UserID]int{c.mx.UserID: 100},
			EventsDefault: 50,
		},
	})
}

func (c *Client) createRoom(ctx context.Context, req *mautrix.ReqCreateRoom) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	resp, err := c.mx.CreateRoom(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating room %q: %w", req.Name, err)
	}
	c.logger.Info("created room", "room", resp.RoomID, "name", req.Name)
	return resp.RoomID.String(), nil
}

// SetShopOpen makes the shop room joinable by anyone (open) or invite only.
func (c *Client) SetShopOpen(ctx context.Context, roomID string, open bool) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	rule := event.JoinRuleInvite
	if open {
		rule = event.JoinRulePublic
	}
	_, err := c.mx.SendStateEvent(ctx, id.RoomID(roomID), event.StateJoinRules, "", &event.JoinRulesEventContent{JoinRule: rule})
	if err != nil {
		return fmt.Errorf("setting join rule %s on %s: %w", rule, roomID, err)
	}
	return nil
}

// TeardownRoom kicks every other member, then leaves and forgets the room.
func (c *Client) TeardownRoom(ctx context.Context, roomID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	room := id.RoomID(roomID)

	members, err := c.mx.JoinedMembers(ctx, room)
	if err != nil {
		return fmt.Errorf("listing members of %s: %w", roomID, err)
	}

	var errs error
	for userID := range members.Joined {
		if userID == c.mx.UserID {
			continue
		}
		if _, err := c.mx.KickUser(ctx, room, &mautrix.ReqKickUser{UserID: userID, Reason: reason}); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("kicking %s: %w", userID, err))
		}
	}
	if _, err := c.mx.LeaveRoom(ctx, room); err != nil {
		return multierr.Append(errs, fmt.Errorf("leaving %s: %w", roomID, err))
	}
	if _, err := c.mx.ForgetRoom(ctx, room); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("forgetting %s: %w", roomID, err))
	}

	c.forgetDM(room)
	c.logger.Info("tore down room", "room", roomID, "reason", reason)
	return errs
}

// DirectMessage sends msg in the DM room for userID, creating it on first use.
func (c *Client) DirectMessage(ctx context.Context, userID string, msg render.Message) error {
	roomID, err := c.dmRoom(ctx, id.UserID(userID))
	if err != nil {
		return err
	}
	_, err = c.SendMarkdown(ctx, roomID.String(), msg)
	return err
}

func (c *Client) dmRoom(ctx context.Context, userID id.UserID) (id.RoomID, error) {
	c.dmMu.Lock()
	defer c.dmMu.Unlock()

	if room, ok := c.dms[userID]; ok {
		return room, nil
	}

	ctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()
	resp, err := c.mx.CreateRoom(ctx, &mautrix.ReqCreateRoom{
		Preset:   "trusted_private_chat",
		IsDirect: true,
		Invite:   []id.UserID{userID},
	})
	if err != nil {
		return "", fmt.Errorf("creating direct room with %s: %w", userID, err)
	}
	c.dms[userID] = resp.RoomID
	return resp.RoomID, nil
}

func (c *Client) forgetDM(room id.RoomID) {
	c.dmMu.Lock()
	defer c.dmMu.Unlock()
	for user, r := range c.dms {
		if r == room {
			delete(c.dms, user)
		}
	}
}

// formatted builds a text message with an HTML body when one was rendered.
func formatted(msg render.Message) *event.MessageEventContent {
	content := &event.MessageEventContent{MsgType: event.MsgText, Body: msg.Plain}
	if msg.HTML != "" {
		content.Format = event.FormatHTML
		content.FormattedBody = msg.HTML
	}
	return content
}

// errNoSyncer is returned when the client was built with a custom syncer.
var errNoSyncer = errors.New("unexpected syncer type")
