// Package notify reports run outcomes to the operator's desktop and to
// Slack. Delivery is best-effort: a failed notification never changes the
// run's exit code.
package notify

// NotificationType classifies a run outcome
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification describes one finished run
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	TestID  string // run identifier, keyed into every telemetry filename
	Modules int    // number of modules the run executed
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(n Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier stands in for a channel the config has disabled
type NoopNotifier struct{}

func (NoopNotifier) Send(n Notification) error { return nil }
