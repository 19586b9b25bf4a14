// ABOUTME: Bot turns chat messages and membership changes into shop operations
// ABOUTME: Deduplicates events by id, dispatches prefixed commands, and reports results as notices

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/moby/locker"

	"github.com/2389/shopkeeper/internal/dedupe"
	"github.com/2389/shopkeeper/internal/metrics"
	"github.com/2389/shopkeeper/internal/render"
	"github.com/2389/shopkeeper/internal/shop"
)

// internalErrorReply is sent when a command fails for a reason the user
// cannot fix.
const internalErrorReply = "Error: something went wrong handling that command. Please try again later."

// dedupeCapacity bounds how many event ids are remembered at once.
const dedupeCapacity = 10000

// Options configures a Bot.
type Options struct {
	Prefix    string        // command prefix, eg. "!"
	BotUserID string        // events from this user are ignored
	LobbyRoom string        // room whose members are the shop's users
	Welcome   string        // markdown DM for new members; empty uses the built-in text
	DedupeTTL time.Duration // how long handled event ids are remembered
	Metrics   *metrics.Bot  // may be nil
	Logger    *slog.Logger  // nil uses slog.Default
}

// Bot handles incoming chat events. Handle* methods are safe for concurrent use.
type Bot struct {
	svc      *shop.Service
	platform Platform
	logger   *slog.Logger
	metrics  *metrics.Bot

	events  *dedupe.Events
	signs   *dedupe.Guard
	members *locker.Locker // per user, orders membership events

	prefix   string
	self     string
	lobby    string
	welcome  render.Message
	ttl      time.Duration
	commands map[string]*command
}

// New creates a Bot over the shop service and chat platform.
func New(svc *shop.Service, platform Platform, opts Options) (*Bot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Prefix == "" {
		return nil, errors.New("command prefix is required")
	}
	ttl := opts.DedupeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	welcome := render.Markdown(opts.Welcome)
	if strings.TrimSpace(opts.Welcome) == "" {
		var err error
		welcome, err = render.MemberWelcome(opts.Prefix)
		if err != nil {
			return nil, fmt.Errorf("rendering welcome message: %w", err)
		}
	}

	b := &Bot{
		svc:      svc,
		platform: platform,
		logger:   logger.With("component", "bot"),
		metrics:  opts.Metrics,
		events:   dedupe.NewEvents(ttl, dedupeCapacity),
		signs:    dedupe.NewGuard(),
		members:  locker.New(),
		prefix:   opts.Prefix,
		self:     opts.BotUserID,
		lobby:    opts.LobbyRoom,
		welcome:  welcome,
		ttl:      ttl,
	}
	b.registerCommands()
	return b, nil
}

// Run sweeps expired event ids until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.events.Run(ctx, b.ttl/2)
}

// HandleMessage processes one text message: commands are dispatched, and any
// message in a shop room moves the shop sign back to the bottom.
func (b *Bot) HandleMessage(ctx context.Context, m Message) {
	if m.SenderID == b.self {
		return
	}
	if b.duplicate(m.EventID) {
		return
	}
	b.metrics.IncEvent("message")

	body := strings.TrimSpace(m.Body)
	if line, ok := strings.CutPrefix(body, b.prefix); ok && line != "" {
		b.dispatch(ctx, m, line)
	}

	b.refreshSignAfter(ctx, m)
}

// duplicate reports whether the event was already handled.
func (b *Bot) duplicate(eventID string) bool {
	if eventID == "" {
		return false
	}
	if b.events.Seen(eventID) {
		b.metrics.IncDuplicate()
		b.logger.Debug("dropping duplicate event", "event", eventID)
		return true
	}
	return false
}

func (b *Bot) dispatch(ctx context.Context, m Message, line string) {
	start := time.Now()

	args, err := SplitArgs(line)
	if err != nil {
		b.notice(ctx, m.RoomID, "Error: a quoted argument was never closed. (Use quotes to include spaces)")
		b.metrics.ObserveCommand("", metrics.OutcomeRejected, time.Since(start))
		return
	}
	if len(args) == 0 {
		return
	}

	name := strings.ToLower(args[0])
	cmd, ok := b.commands[name]
	if !ok {
		b.logger.Debug("ignoring unknown command", "command", name, "room", m.RoomID)
		return
	}

	req := &request{Message: m, Args: args[1:]}
	outcome := b.run(ctx, cmd, req)
	b.metrics.ObserveCommand(cmd.Name, outcome, time.Since(start))

	b.logger.Info("handled command",
		"command", cmd.Name,
		"sender", m.SenderID,
		"room", m.RoomID,
		"outcome", outcome,
		"took", time.Since(start),
	)
}

func (b *Bot) run(ctx context.Context, cmd *command, req *request) string {
	if cmd.InControlPanel {
		// Shop commands anywhere but the sender's own control panel are ignored.
		if err := b.svc.RequireInControlPanel(ctx, req.SenderID, req.RoomID); err != nil {
			if errors.Is(err, shop.ErrNotInControlPanel) {
				return metrics.OutcomeIgnored
			}
			return b.fail(ctx, cmd, req, err)
		}
		shopID, err := b.svc.RequireOwnsShop(ctx, req.SenderID)
		if err != nil {
			return b.fail(ctx, cmd, req, err)
		}
		req.ShopID = shopID
	}

	if len(req.Args) < cmd.MinArgs {
		b.notice(ctx, req.RoomID, fmt.Sprintf("Usage: %s%s", b.prefix, cmd.Usage))
		return metrics.OutcomeRejected
	}

	reply, err := cmd.Handler(ctx, req)
	if err != nil {
		return b.fail(ctx, cmd, req, err)
	}
	if reply != "" {
		b.notice(ctx, req.RoomID, reply)
	}
	return metrics.OutcomeOK
}

// fail reports err to the sender and returns the command outcome.
func (b *Bot) fail(ctx context.Context, cmd *command, req *request, err error) string {
	if shop.IsUserFacing(err) {
		b.logger.Debug("command rejected", "command", cmd.Name, "sender", req.SenderID, "error", err)
		b.notice(ctx, req.RoomID, userMessage(cmd.Name, err))
		return metrics.OutcomeRejected
	}

	b.logger.Error("command failed", "command", cmd.Name, "sender", req.SenderID, "room", req.RoomID, "error", err)
	b.notice(ctx, req.RoomID, internalErrorReply)
	return metrics.OutcomeError
}

func (b *Bot) notice(ctx context.Context, roomID, text string) {
	if err := b.platform.SendNotice(ctx, roomID, text); err != nil {
		b.logger.Warn("failed to send notice", "room", roomID, "error", err)
	}
}

// send posts a formatted message, logging failures.
func (b *Bot) send(ctx context.Context, roomID string, msg render.Message) {
	if _, err := b.platform.SendMarkdown(ctx, roomID, msg); err != nil {
		b.logger.Warn("failed to send message", "room", roomID, "error", err)
	}
}
