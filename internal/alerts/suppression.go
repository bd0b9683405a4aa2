package alerts

import (
	"time"

	"github.com/rewired-gh/iskwatch/internal/models"
)

// DefaultSuppressionWindow is the per-alert cooldown between notifications.
const DefaultSuppressionWindow = 5 * time.Minute

// SuppressionWindow holds back repeat notifications for an alert whose
// condition stays true across consecutive checks.
type SuppressionWindow time.Duration

// Suppressed reports whether a fired too recently to notify again at now.
func (w SuppressionWindow) Suppressed(a models.Alert, now time.Time) bool {
	if a.LastTriggered == nil {
		return false
	}
	return now.Sub(*a.LastTriggered) < time.Duration(w)
}

// Remaining returns how long a stays suppressed after now.
func (w SuppressionWindow) Remaining(a models.Alert, now time.Time) time.Duration {
	if a.LastTriggered == nil {
		return 0
	}
	left := a.LastTriggered.Add(time.Duration(w)).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
