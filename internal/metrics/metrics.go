// ABOUTME: Prometheus collectors for bot commands and chat events
// ABOUTME: A nil *Bot is valid and records nothing, so tests can skip metrics

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // typed error reported to the user
	OutcomeError    = "error"    // internal failure
	OutcomeIgnored  = "ignored"  // command sent outside its room
)

// Bot records what the bot handles.
type Bot struct {
	commands   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
	duplicates prometheus.Counter
	affiliates prometheus.Gauge
}

// NewBot registers the bot metrics on reg. A nil reg returns a Bot that
// records nothing.
func NewBot(reg prometheus.Registerer) *Bot {
	if reg == nil {
		return nil
	}
	b := &Bot{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopkeeper",
			Name:      "commands_total",
			Help:      "Commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopkeeper",
			Name:      "command_duration_seconds",
			Help:      "Time spent handling a command.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopkeeper",
			Name:      "events_total",
			Help:      "Chat events received, by kind.",
		}, []string{"kind"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopkeeper",
			Name:      "duplicate_events_total",
			Help:      "Events dropped because they were already handled.",
		}),
		affiliates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "shopkeeper",
			Name:      "affiliate_changes",
			Help:      "Net affiliates granted minus revoked since start.",
		}),
	}
	reg.MustRegister(b.commands, b.duration, b.events, b.duplicates, b.affiliates)
	return b
}

// ObserveCommand records one handled command.
func (b *Bot) ObserveCommand(command, outcome string, took time.Duration) {
	if b == nil {
		return
	}
	command = normalizeLabel(command)
	b.commands.WithLabelValues(command, outcome).Inc()
	b.duration.WithLabelValues(command).Observe(took.Seconds())
}

// IncEvent counts a received event of the given kind.
func (b *Bot) IncEvent(kind string) {
	if b == nil {
		return
	}
	b.events.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncDuplicate counts a redelivered event that was dropped.
func (b *Bot) IncDuplicate() {
	if b == nil {
		return
	}
	b.duplicates.Inc()
}

// AffiliateGranted moves the affiliate gauge up.
func (b *Bot) AffiliateGranted() {
	if b == nil {
		return
	}
	b.affiliates.Inc()
}

// AffiliateRevoked moves the affiliate gauge down.
func (b *Bot) AffiliateRevoked() {
	if b == nil {
		return
	}
	b.affiliates.Dec()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
