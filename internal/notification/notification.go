package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/yok-tottii/ezdictate/internal/events"
	"github.com/yok-tottii/ezdictate/internal/i18n"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	// TypeInfo is an informational notification
	TypeInfo NotificationType = "info"
	// TypeError is an error notification
	TypeError NotificationType = "error"
)

// repeatWindow suppresses identical messages raised in quick succession,
// e.g. one STT error per streamed frame.
const repeatWindow = 3 * time.Second

// Notification represents a desktop notification
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
}

// Sender delivers a notification to the desktop.
type Sender func(title, message string) error

// beeepSender uses the platform notification center.
func beeepSender(title, message string) error {
	return beeep.Notify(title, message, "")
}

// NotificationManager handles sending notifications to the user
type NotificationManager struct {
	appName    string
	translator *i18n.Translator
	send       Sender
	now        func() time.Time

	mu       sync.Mutex
	lastText string
	lastAt   time.Time
}

// NewNotificationManager creates a notification manager backed by beeep.
// translator may be nil, in which case keys are used as text.
func NewNotificationManager(appName string, translator *i18n.Translator) *NotificationManager {
	beeep.AppName = appName
	return &NotificationManager{
		appName:    appName,
		translator: translator,
		send:       beeepSender,
		now:        time.Now,
	}
}

func (nm *NotificationManager) text(key string, params map[string]string) string {
	if nm.translator == nil {
		return key
	}
	return nm.translator.TranslateWithFormat(key, params)
}

// Send sends a notification to the user
func (nm *NotificationManager) Send(notification *Notification) error {
	if notification == nil {
		return fmt.Errorf("notification cannot be nil")
	}

	nm.mu.Lock()
	now := nm.now()
	key := notification.Title + "\x00" + notification.Message
	if key == nm.lastText && now.Sub(nm.lastAt) < repeatWindow {
		nm.mu.Unlock()
		return nil
	}
	nm.lastText, nm.lastAt = key, now
	nm.mu.Unlock()

	if err := nm.send(notification.Title, notification.Message); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// SendInfo sends an informational notification
func (nm *NotificationManager) SendInfo(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeInfo})
}

// SendError sends an error notification
func (nm *NotificationManager) SendError(title, message string) error {
	return nm.Send(&Notification{Title: title, Message: message, Type: TypeError})
}

// PipelineError reports a pipeline:error message
func (nm *NotificationManager) PipelineError(message string) error {
	return nm.SendError(nm.text("notification.error_title", nil), message)
}

// Ready tells the user the app is running and how to dictate
func (nm *NotificationManager) Ready(hotkey string) error {
	return nm.SendInfo(nm.appName, nm.text("notification.ready", map[string]string{"hotkey": hotkey}))
}

// HotkeyFailed reports that the configured hotkey could not be registered
func (nm *NotificationManager) HotkeyFailed(hotkey string) error {
	return nm.SendError(nm.appName, nm.text("notification.hotkey_failed", map[string]string{"hotkey": hotkey}))
}

// Watch raises a notification for every pipeline:error event until the
// channel is closed. onErr, if non-nil, receives delivery failures.
func (nm *NotificationManager) Watch(ch <-chan events.Event, onErr func(error)) {
	for ev := range ch {
		if ev.Name != events.PipelineError {
			continue
		}
		msg, ok := ev.Payload.(string)
		if !ok {
			continue
		}
		if err := nm.PipelineError(msg); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
