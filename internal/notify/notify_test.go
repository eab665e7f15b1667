package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBuildMessage_CarriesRunIdentity(t *testing.T) {
	msg := buildMessage(Notification{
		Title:   "magnet run completed",
		Message: "all modules completed",
		Type:    NotifySuccess,
		TestID:  "4f2c81aa",
		Modules: 12,
	})

	if msg.Text != "magnet run completed" {
		t.Errorf("Text = %q", msg.Text)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("got %d attachments, want 1", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Title != "test id 4f2c81aa, 12 modules" {
		t.Errorf("attachment title = %q", att.Title)
	}
	if att.Color != "good" {
		t.Errorf("attachment color = %q, want good", att.Color)
	}
	if att.Footer != "magnet" {
		t.Errorf("attachment footer = %q, want magnet", att.Footer)
	}
}

func TestDesktopBody_CarriesRunIdentity(t *testing.T) {
	got := body(Notification{
		Message: "dry-run finished, no side effects performed",
		TestID:  "4f2c81aa",
		Modules: 12,
	})

	if !strings.Contains(got, "test id 4f2c81aa, 12 modules") {
		t.Errorf("body = %q, missing run identity", got)
	}
	if !strings.HasPrefix(got, "dry-run finished") {
		t.Errorf("body = %q, message not first", got)
	}
}

func TestDisabledChannelsAreNoops(t *testing.T) {
	if _, ok := NewDesktopNotifier(false).(NoopNotifier); !ok {
		t.Error("disabled desktop channel is not a no-op")
	}
	if _, ok := NewSlackNotifier("").(NoopNotifier); !ok {
		t.Error("unconfigured slack channel is not a no-op")
	}
	if _, ok := NewDesktopNotifier(true).(*DesktopNotifier); !ok {
		t.Error("enabled desktop channel is not a DesktopNotifier")
	}
}

func TestSlackNotifier_Send(t *testing.T) {
	var received SlackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		payload, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(payload, &received); err != nil {
			t.Errorf("payload not valid JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewSlackNotifier(server.URL)
	err := notifier.Send(Notification{
		Title:   "magnet run failed",
		Message: "capability clock_skew: verification failed",
		Type:    NotifyError,
		TestID:  "9d01ab",
		Modules: 3,
	})

	if err != nil {
		t.Errorf("Send failed: %v", err)
	}
	if len(received.Attachments) != 1 || received.Attachments[0].Color != "danger" {
		t.Errorf("webhook received %+v", received)
	}
}

func TestNotificationTypeColors(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "good"},
		{NotifyWarning, "warning"},
		{NotifyError, "danger"},
		{NotifyInfo, "#439FE0"},
	}

	for _, tt := range tests {
		got := SlackColor(tt.typ)
		if got != tt.want {
			t.Errorf("SlackColor(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestIconForType(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotifySuccess, "dialog-positive"},
		{NotifyWarning, "dialog-warning"},
		{NotifyError, "dialog-error"},
		{NotifyInfo, "dialog-information"},
	}

	for _, tt := range tests {
		got := IconForType(tt.typ)
		if got != tt.want {
			t.Errorf("IconForType(%v) = %s, want %s", tt.typ, got, tt.want)
		}
	}
}

func TestMultiNotifier(t *testing.T) {
	var called []string

	mock1 := &mockNotifier{name: "mock1", calls: &called}
	mock2 := &mockNotifier{name: "mock2", calls: &called}

	multi := NewMultiNotifier(mock1, mock2)
	multi.Send(Notification{Title: "Test"})

	if len(called) != 2 {
		t.Errorf("Expected 2 calls, got %d", len(called))
	}
}

type mockNotifier struct {
	name  string
	calls *[]string
}

func (m *mockNotifier) Send(n Notification) error {
	*m.calls = append(*m.calls, m.name)
	return nil
}
