package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/DKasatik/Power-Monitor-Bot/internal/observability/metrics"
	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

// Channel delivers rendered content.
type Channel interface {
	Send(ctx context.Context, content string) error
}

// Clock provides time for cooldown tracking.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders power transitions and sends them via a channel.
type Notifier struct {
	channel      Channel
	template     *Template
	clock        Clock
	logger       *log.Logger
	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
	sendTimeout  time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same transition kind.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// WithSendTimeout bounds each channel send.
func WithSendTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.sendTimeout = timeout
		}
	}
}

// NewNotifier constructs a transition notifier.
func NewNotifier(channel Channel, template *Template, logger *log.Logger, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:     channel,
		template:    template,
		clock:       systemClock{},
		logger:      logger,
		sent:        make(map[string]sendRecord),
		sendTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify renders and sends a recorded transition. Failures are logged and
// counted, never returned: persistence has already happened.
func (n *Notifier) Notify(ctx context.Context, event power.PowerEvent) {
	if n == nil || n.channel == nil {
		return
	}
	data := buildTemplateData(event)
	content, err := n.template.Render(data)
	if err != nil {
		n.logf("render notification: %v", err)
		metrics.IncNotify(metrics.ResultError)
		return
	}
	if !n.shouldSend(data.Event, content) {
		return
	}
	if n.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.sendTimeout)
		defer cancel()
	}
	if err := n.channel.Send(ctx, content); err != nil {
		n.logf("send notification: %v", err)
		metrics.IncNotify(metrics.ResultError)
		return
	}
	metrics.IncNotify(metrics.ResultSuccess)
	n.markSent(data.Event, content)
}

func buildTemplateData(event power.PowerEvent) TemplateData {
	data := TemplateData{
		Time:     event.EventTime.Format("15:04"),
		Duration: FormatDuration(event.DurationSeconds),
		Schedule: event.ScheduleSnapshot,
	}
	if event.HasPower {
		data.Event = "restored"
		data.StatusLabel = "Power restored"
		data.DurationLine = "Power was out for " + data.Duration
		return data
	}
	data.Event = "outage"
	data.StatusLabel = "Power is out"
	data.DurationLine = "Power was on for " + data.Duration
	if event.IsPlanned {
		data.Classification = "planned"
		data.ClassificationLine = "Planned outage per schedule"
		data.ExpectedEnd = event.ExpectedEndTime
	} else {
		data.Classification = "emergency"
		data.ClassificationLine = "Emergency outage, not in the schedule"
	}
	return data
}

func (n *Notifier) shouldSend(eventType, content string) bool {
	if n == nil {
		return false
	}
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[eventType]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(eventType, content string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	n.sent[eventType] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func (n *Notifier) logf(format string, args ...any) {
	if n != nil && n.logger != nil {
		n.logger.Printf(format, args...)
	}
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
