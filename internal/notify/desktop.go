package notify

import (
	"fmt"
	"os/exec"
	"runtime"
)

// DesktopNotifier raises a desktop notification on the host that ran the
// simulation, so an operator watching a test machine sees the run identity
// without opening the telemetry directory.
type DesktopNotifier struct{}

// NewDesktopNotifier returns a desktop notifier, or a no-op when the
// channel is disabled in config.
func NewDesktopNotifier(enabled bool) Notifier {
	if !enabled {
		return NoopNotifier{}
	}
	return &DesktopNotifier{}
}

// body renders the text shown under the title: the outcome message plus
// the run identity needed to locate its telemetry.
func body(n Notification) string {
	s := n.Message
	if n.TestID != "" {
		s += fmt.Sprintf("\ntest id %s, %d modules", n.TestID, n.Modules)
	}
	return s
}

// Send raises the notification through the platform notifier command.
func (d *DesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "darwin":
		return d.sendMacOS(n)
	case "linux":
		return d.sendLinux(n)
	default:
		return nil // Unsupported
	}
}

func (d *DesktopNotifier) sendMacOS(n Notification) error {
	script := fmt.Sprintf("display notification %q with title %q subtitle %q",
		body(n), n.Title, "test id "+n.TestID)
	return exec.Command("osascript", "-e", script).Run()
}

func (d *DesktopNotifier) sendLinux(n Notification) error {
	return exec.Command("notify-send", "-i", IconForType(n.Type), n.Title, body(n)).Run()
}

// IconForType returns the freedesktop icon name for the outcome
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}
