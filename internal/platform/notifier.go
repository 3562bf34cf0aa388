package platform

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/models"
)

// Event is a single outbound notification produced by an orchestrator.
type Event struct {
	RuleID           string
	Source           string // "alertengine" | "selfheal" | "backup" | "federation" | "healthcheck" | "log_ingest" | "notifications"
	Severity         Severity
	Title            string
	Message          string
	Labels           map[string]string
	Time             time.Time
	SuppressDuration time.Duration // rule's configured suppress_duration; 0 uses defaultSuppressDuration
}

// Provider delivers an Event to one external channel.
type Provider interface {
	Name() string
	Send(Event) error
}

// defaultSuppressDuration is used when an event carries no rule-specific
// suppress_duration.
const defaultSuppressDuration = 5 * time.Minute

// rateLimiter enforces at most one send per suppress_duration per
// (channel, rule) key.
type rateLimiter struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		lastSent: make(map[string]time.Time),
	}
}

// allow admits the send only if at least suppress since the last admitted
// send for this (channel, rule) key.
func (r *rateLimiter) allow(channel, ruleID string, suppress time.Duration) bool {
	if suppress <= 0 {
		suppress = defaultSuppressDuration
	}
	key := channel + "|" + ruleID
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastSent[key]; ok && now.Sub(last) < suppress {
		return false
	}
	r.lastSent[key] = now
	return true
}

// Notifier fans events out to every registered Provider, applying rate
// limiting and a bounded retry with exponential backoff, then records the
// outcome in notification history.
type Notifier struct {
	mu        sync.RWMutex
	providers map[string]Provider
	limiter   *rateLimiter
	history   *database.NotificationHistoryRepository
}

// NewNotifier creates an empty Notifier; call Register to add channels.
func NewNotifier() *Notifier {
	return &Notifier{
		providers: make(map[string]Provider),
		limiter:   newRateLimiter(),
		history:   database.NewNotificationHistoryRepository(),
	}
}

// Register adds or replaces a named channel.
func (n *Notifier) Register(p Provider) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.providers[p.Name()] = p
}

// Dispatch sends event to the named channels (or every registered channel
// if channels is empty), each in its own goroutine, honoring the rate
// limiter and up to 3 attempts per channel, waiting 4s and then 8s between them.
func (n *Notifier) Dispatch(event Event, channels []string) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	n.mu.RLock()
	targets := make([]Provider, 0, len(n.providers))
	if len(channels) == 0 {
		for _, p := range n.providers {
			targets = append(targets, p)
		}
	} else {
		for _, name := range channels {
			if p, ok := n.providers[name]; ok {
				targets = append(targets, p)
			}
		}
	}
	n.mu.RUnlock()

	for _, p := range targets {
		go n.send(p, event)
	}
}

func (n *Notifier) send(p Provider, event Event) {
	if !n.limiter.allow(p.Name(), event.RuleID, event.SuppressDuration) {
		log.Printf("[Notifier] rate-limited: channel=%s rule=%s", p.Name(), event.RuleID)
		return
	}

	historyID := n.recordPending(p, event)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<uint(attempt)) * 2 * time.Second)
		}
		if err := p.Send(event); err != nil {
			lastErr = err
			if historyID > 0 {
				n.history.IncrementRetry(historyID)
			}
			continue
		}
		lastErr = nil
		break
	}

	status := "sent"
	errMsg := ""
	if lastErr != nil {
		status = "failed"
		errMsg = lastErr.Error()
		log.Printf("[Notifier] send failed: channel=%s rule=%s: %v", p.Name(), event.RuleID, lastErr)
	}
	if historyID > 0 {
		n.history.UpdateStatus(historyID, status, errMsg)
	}
}

func (n *Notifier) recordPending(p Provider, event Event) int {
	ruleID := event.RuleID
	record := &models.NotificationHistory{
		RuleID:      &ruleID,
		ChannelID:   p.Name(),
		ChannelName: p.Name(),
		ChannelType: p.Name(),
		AlertType:   event.Source,
		Severity:    string(event.Severity),
		Message:     event.Message,
		Status:      "pending",
		CreatedAt:   time.Now(),
	}
	if err := n.history.Create(record); err != nil {
		log.Printf("[Notifier] failed to record history: %v", err)
		return 0
	}
	return record.ID
}

// ProviderFromChannel builds a Provider from a persisted dynamic channel
// row (database.NotificationRepository), the counterpart to the
// statically configured channels main.go registers at startup.
func ProviderFromChannel(ch models.NotificationChannel) (Provider, error) {
	switch ch.Type {
	case "discord":
		var cfg models.DiscordConfig
		if err := json.Unmarshal([]byte(ch.Config), &cfg); err != nil {
			return nil, fmt.Errorf("invalid discord config for channel %s: %w", ch.Name, err)
		}
		return NewDiscordProvider(cfg.WebhookURL), nil
	case "telegram":
		var cfg models.TelegramConfig
		if err := json.Unmarshal([]byte(ch.Config), &cfg); err != nil {
			return nil, fmt.Errorf("invalid telegram config for channel %s: %w", ch.Name, err)
		}
		return NewTelegramProvider(cfg.BotToken, cfg.ChatID), nil
	default:
		return nil, fmt.Errorf("unknown channel type: %s", ch.Type)
	}
}

// DispatchDynamic sends event to every enabled DB-configured channel,
// reusing the same rate limiting, retry and history bookkeeping as
// Dispatch. event.RuleID should be a fingerprint identifying the alert
// condition so the rate limiter dedupes repeats of the same condition per
// channel.
func (n *Notifier) DispatchDynamic(event Event, channels []models.NotificationChannel) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	for _, ch := range channels {
		if !ch.IsEnabled {
			continue
		}
		p, err := ProviderFromChannel(ch)
		if err != nil {
			log.Printf("[Notifier] skipping channel %s: %v", ch.Name, err)
			continue
		}
		go n.send(p, event)
	}
}

// GenerateFingerprint derives a stable dedup key from a source, a level
// and a message, used as an Event's RuleID so the rate limiter can
// suppress repeats of the same log alert.
func GenerateFingerprint(source, level, message string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", source, level, message)))
	return fmt.Sprintf("%x", h[:8])
}

// Channels returns the names of every registered provider.
func (n *Notifier) Channels() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	names := make([]string, 0, len(n.providers))
	for name := range n.providers {
		names = append(names, name)
	}
	return names
}
