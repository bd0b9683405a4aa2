// Package notify renders confirmed triggers as sound, a system notification,
// a history entry and a pending acknowledgment.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/metrics"
	"github.com/rewired-gh/iskwatch/internal/models"
)

// Permission is the notification platform's consent state.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Handle is a shown notification that can be withdrawn.
type Handle interface {
	Close() error
}

// Platform shows system notifications. Permission is queried on every
// dispatch because the user can revoke it outside this process.
type Platform interface {
	Permission(ctx context.Context) Permission
	RequestPermission(ctx context.Context) Permission
	Show(ctx context.Context, title, body string) (Handle, error)
}

// Player plays the alert sound. volume is in [0, 1].
type Player interface {
	Play(volume float64) error
}

// HistoryAppender receives the permanent record of a trigger.
type HistoryAppender interface {
	Append(models.HistoryEntry)
}

// TriggeredAdder receives the acknowledgment record of a trigger.
type TriggeredAdder interface {
	Add(models.TriggeredAlert)
}

// Channel names used in outcomes and metrics.
const (
	ChannelSound        = "sound"
	ChannelNotification = "notification"
	ChannelHistory      = "history"
	ChannelTriggered    = "triggered"
)

// Result of one channel.
type Result string

const (
	ResultDelivered Result = "delivered"
	ResultSkipped   Result = "skipped"
	ResultFailed    Result = "failed"
)

// Outcome is what happened on one channel for one trigger.
type Outcome struct {
	Channel string `json:"channel"`
	Result  Result `json:"result"`
	Detail  string `json:"detail,omitempty"`
}

// Trigger is a confirmed, non-suppressed alert firing.
type Trigger struct {
	Alert   models.Alert
	Price   float64
	Message string
	At      time.Time
}

// Report collects the per-channel outcomes of one dispatch.
type Report struct {
	Entry    models.HistoryEntry `json:"entry"`
	Outcomes []Outcome           `json:"outcomes"`
}

// Outcome returns the outcome for channel, if any.
func (r Report) Outcome(channel string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Channel == channel {
			return o, true
		}
	}
	return Outcome{}, false
}

// DispatcherConfig wires a Dispatcher. Platform and Player may be nil.
type DispatcherConfig struct {
	Platform    Platform
	Player      Player
	History     HistoryAppender
	Triggered   TriggeredAdder
	AutoDismiss time.Duration
}

// Dispatcher fans one trigger out to every channel. A failing channel never
// prevents the others from running.
type Dispatcher struct {
	platform    Platform
	player      Player
	history     HistoryAppender
	triggered   TriggeredAdder
	autoDismiss time.Duration
	afterFunc   func(time.Duration, func()) *time.Timer
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		platform:    cfg.Platform,
		player:      cfg.Player,
		history:     cfg.History,
		triggered:   cfg.Triggered,
		autoDismiss: cfg.AutoDismiss,
		afterFunc:   time.AfterFunc,
	}
}

// Dispatch renders t under settings and returns the per-channel outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, t Trigger, settings models.Settings) Report {
	entry := models.HistoryEntry{
		ID:           uuid.NewString(),
		AlertID:      t.Alert.ID,
		ItemID:       t.Alert.ItemID,
		ItemName:     t.Alert.DisplayName(),
		RegionID:     t.Alert.RegionID,
		Type:         t.Alert.Type,
		Threshold:    t.Alert.Threshold,
		CurrentPrice: t.Price,
		Message:      t.Message,
		TriggeredAt:  t.At,
	}

	report := Report{Entry: entry}
	report.Outcomes = append(report.Outcomes,
		d.playSound(settings),
		d.showNotification(ctx, entry, settings),
	)

	d.history.Append(entry)
	report.Outcomes = append(report.Outcomes, Outcome{Channel: ChannelHistory, Result: ResultDelivered})
	d.triggered.Add(entry.Triggered())
	report.Outcomes = append(report.Outcomes, Outcome{Channel: ChannelTriggered, Result: ResultDelivered})

	metrics.DispatchesTotal.Inc()
	for _, o := range report.Outcomes {
		metrics.ChannelOutcomes.WithLabelValues(o.Channel, string(o.Result)).Inc()
		if o.Result == ResultFailed {
			logger.Warn("Alert %s: %s channel failed: %s", t.Alert.ID, o.Channel, o.Detail)
		}
	}
	logger.Info("Alert %s fired: %s", t.Alert.ID, t.Message)
	return report
}

func (d *Dispatcher) playSound(settings models.Settings) Outcome {
	o := Outcome{Channel: ChannelSound}
	switch {
	case !settings.SoundEnabled:
		o.Result, o.Detail = ResultSkipped, "sound disabled"
	case d.player == nil:
		o.Result, o.Detail = ResultSkipped, "no player configured"
	default:
		if err := d.player.Play(settings.SoundVolume); err != nil {
			o.Result, o.Detail = ResultFailed, err.Error()
		} else {
			o.Result = ResultDelivered
		}
	}
	return o
}

func (d *Dispatcher) showNotification(ctx context.Context, entry models.HistoryEntry, settings models.Settings) Outcome {
	o := Outcome{Channel: ChannelNotification}
	if !settings.BrowserNotificationsEnabled {
		o.Result, o.Detail = ResultSkipped, "notifications disabled"
		return o
	}
	if d.platform == nil {
		o.Result, o.Detail = ResultSkipped, "no notification platform"
		return o
	}
	if perm := d.platform.Permission(ctx); perm != PermissionGranted {
		o.Result, o.Detail = ResultSkipped, "permission "+string(perm)
		return o
	}

	h, err := d.platform.Show(ctx, "Price alert: "+entry.ItemName, entry.Message)
	if err != nil {
		o.Result, o.Detail = ResultFailed, err.Error()
		return o
	}
	if d.autoDismiss > 0 && h != nil {
		d.afterFunc(d.autoDismiss, func() {
			if err := h.Close(); err != nil {
				logger.Debug("Failed to dismiss notification for %s: %v", entry.AlertID, err)
			}
		})
	}
	o.Result = ResultDelivered
	return o
}

// Permission reports the platform's current consent state.
func (d *Dispatcher) Permission(ctx context.Context) Permission {
	if d.platform == nil {
		return PermissionDenied
	}
	return d.platform.Permission(ctx)
}

// RequestPermission asks the platform for consent and returns the answer.
func (d *Dispatcher) RequestPermission(ctx context.Context) Permission {
	if d.platform == nil {
		return PermissionDenied
	}
	return d.platform.RequestPermission(ctx)
}
