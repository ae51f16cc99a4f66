package notify

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const pushoverAPI = "https://api.pushover.net/1/messages.json"

// Priority levels for Pushover
const (
	PriorityLowest    = -2
	PriorityLow       = -1
	PriorityNormal    = 0
	PriorityHigh      = 1
	PriorityEmergency = 2
)

// alertCooldown is the minimum gap between two alerts with the same title
const alertCooldown = 10 * time.Minute

// Notifier sends push notifications
type Notifier struct {
	appToken string
	userKey  string
	enabled  bool
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// New creates a new Pushover notifier
// If appToken or userKey is empty, notifications are disabled
func New(appToken, userKey string) *Notifier {
	return &Notifier{
		appToken: appToken,
		userKey:  userKey,
		enabled:  appToken != "" && userKey != "",
		endpoint: pushoverAPI,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// IsEnabled returns whether notifications are enabled
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}

// Send sends a notification with normal priority
func (n *Notifier) Send(title, message string) error {
	return n.SendWithPriority(title, message, PriorityNormal)
}

// SendWithPriority sends a notification with specified priority
func (n *Notifier) SendWithPriority(title, message string, priority int) error {
	if !n.enabled {
		return nil
	}

	data := url.Values{}
	data.Set("token", n.appToken)
	data.Set("user", n.userKey)
	data.Set("title", title)
	data.Set("message", message)
	data.Set("priority", fmt.Sprintf("%d", priority))

	// Emergency priority requires retry and expire parameters
	if priority == PriorityEmergency {
		data.Set("retry", "60")
		data.Set("expire", "3600")
	}

	resp, err := n.client.PostForm(n.endpoint, data)
	if err != nil {
		return fmt.Errorf("pushover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushover returned status %d", resp.StatusCode)
	}

	return nil
}

// throttled reports whether an alert titled title went out within the cooldown,
// and marks it as sent otherwise
func (n *Notifier) throttled(title string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	if last, ok := n.lastSent[title]; ok && now.Sub(last) < alertCooldown {
		return true
	}
	n.lastSent[title] = now
	return false
}

// NotifyBudgetExceeded reports a solve that was aborted by the iteration cap
func (n *Notifier) NotifyBudgetExceeded(amount, score, limit int64) error {
	title := "⏱️ Solve Budget Exceeded"
	if !n.enabled || n.throttled(title) {
		return nil
	}
	message := fmt.Sprintf("Notes: %d\nScore: %s\nLimit: %d iterations",
		amount, formatScore(score), limit)
	return n.Send(title, message)
}

// NotifyCacheDown reports that the result cache stopped accepting writes
func (n *Notifier) NotifyCacheDown(cause error) error {
	title := "🗄️ Result Cache Unavailable"
	if !n.enabled || n.throttled(title) {
		return nil
	}
	return n.SendWithPriority(title, cause.Error(), PriorityHigh)
}

// formatScore renders a score the way the game shows it (0995000)
func formatScore(score int64) string {
	if score < 0 {
		return fmt.Sprintf("%d", score)
	}
	return fmt.Sprintf("%07d", score)
}
