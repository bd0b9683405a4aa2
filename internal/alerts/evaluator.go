package alerts

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/iskwatch/internal/models"
)

// Status classifies one evaluation of one alert.
type Status string

const (
	StatusTriggered   Status = "triggered"
	StatusNotMet      Status = "not_met"
	StatusSuppressed  Status = "suppressed"
	StatusNoData      Status = "no_data"
	StatusUnsupported Status = "unsupported"
	StatusInvalid     Status = "invalid"
)

// Result is the outcome of evaluating an alert against a price snapshot.
type Result struct {
	Triggered    bool    `json:"triggered"`
	CurrentPrice float64 `json:"currentPrice"`
	Message      string  `json:"message"`
	Status       Status  `json:"status"`
}

// FormatISK renders an ISK amount with thousands separators and two decimals.
func FormatISK(v float64) string {
	return humanize.FormatFloat("#,###.##", v) + " ISK"
}

// Evaluate decides whether alert a fires for snap. It never mutates a.
func Evaluate(a models.Alert, snap models.PriceSnapshot) Result {
	if err := a.Validate(); err != nil {
		return Invalid(err)
	}

	switch a.Type {
	case models.AlertPriceAbove:
		return evaluateAbove(a, pick(snap.Current, snap.BestBid))
	case models.AlertPriceBelow:
		return evaluateBelow(a, pick(snap.Current, snap.BestAsk))
	case models.AlertUndercut:
		return Unsupported(a, "undercut alerts need your own sell orders, which require an authenticated character")
	case models.AlertOrderExpiry:
		return Unsupported(a, "order expiry alerts need your own orders, which require an authenticated character")
	}
	return Invalid(fmt.Errorf("unknown alert type %q", a.Type))
}

// pick prefers a caller-supplied price over the order book side.
func pick(current, side float64) float64 {
	if current > 0 {
		return current
	}
	return side
}

// evaluateAbove watches the best bid: the price the market will pay right now.
func evaluateAbove(a models.Alert, price float64) Result {
	if price <= 0 {
		return NoData(fmt.Sprintf("%s has no buy orders in region %d", a.DisplayName(), a.RegionID))
	}
	if price > a.Threshold {
		return Result{
			Triggered:    true,
			CurrentPrice: price,
			Status:       StatusTriggered,
			Message: fmt.Sprintf("%s is above %s (current: %s)",
				a.DisplayName(), FormatISK(a.Threshold), FormatISK(price)),
		}
	}
	return Result{
		CurrentPrice: price,
		Status:       StatusNotMet,
		Message: fmt.Sprintf("%s at %s, waiting for above %s",
			a.DisplayName(), FormatISK(price), FormatISK(a.Threshold)),
	}
}

// evaluateBelow watches the best ask. An empty book never counts as cheap.
func evaluateBelow(a models.Alert, price float64) Result {
	if price <= 0 {
		return NoData(fmt.Sprintf("%s has no sell orders in region %d", a.DisplayName(), a.RegionID))
	}
	if price < a.Threshold {
		return Result{
			Triggered:    true,
			CurrentPrice: price,
			Status:       StatusTriggered,
			Message: fmt.Sprintf("%s dropped below %s (current: %s)",
				a.DisplayName(), FormatISK(a.Threshold), FormatISK(price)),
		}
	}
	return Result{
		CurrentPrice: price,
		Status:       StatusNotMet,
		Message: fmt.Sprintf("%s at %s, waiting for below %s",
			a.DisplayName(), FormatISK(price), FormatISK(a.Threshold)),
	}
}

// NoData is the result when no usable price is available.
func NoData(msg string) Result {
	return Result{Status: StatusNoData, Message: msg}
}

// Invalid is the result for an alert that cannot be evaluated as configured.
func Invalid(err error) Result {
	return Result{Status: StatusInvalid, Message: "invalid alert: " + err.Error()}
}

// Unsupported is the result for alert types that public market data cannot answer.
func Unsupported(a models.Alert, reason string) Result {
	return Result{Status: StatusUnsupported, Message: fmt.Sprintf("%s: %s", a.DisplayName(), reason)}
}
