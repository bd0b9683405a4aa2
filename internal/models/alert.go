// Package models defines the core domain entities: alerts, trigger history and settings.
package models

import (
	"errors"
	"fmt"
	"time"
)

// DefaultRegionID is The Forge, home of the Jita trade hub.
const DefaultRegionID int64 = 10000002

// AlertType identifies the market condition an alert watches for.
type AlertType string

const (
	AlertPriceAbove  AlertType = "price_above"
	AlertPriceBelow  AlertType = "price_below"
	AlertUndercut    AlertType = "undercut"
	AlertOrderExpiry AlertType = "order_expiry"
)

// AlertTypes lists every known alert type in display order.
var AlertTypes = []AlertType{AlertPriceAbove, AlertPriceBelow, AlertUndercut, AlertOrderExpiry}

// Valid reports whether t is one of the known alert types.
func (t AlertType) Valid() bool {
	switch t {
	case AlertPriceAbove, AlertPriceBelow, AlertUndercut, AlertOrderExpiry:
		return true
	}
	return false
}

// NeedsThreshold reports whether the type compares a price against Threshold.
func (t AlertType) NeedsThreshold() bool {
	return t == AlertPriceAbove || t == AlertPriceBelow
}

// Supported reports whether the type can be evaluated from public market data.
// Undercut and order expiry need the owner's own orders, which require an
// authenticated character feed.
func (t AlertType) Supported() bool {
	return t.NeedsThreshold()
}

// ParseAlertType converts a user-supplied string into an AlertType.
func ParseAlertType(s string) (AlertType, error) {
	t := AlertType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown alert type %q", s)
	}
	return t, nil
}

// Alert is a user-defined watch condition on one item in one region.
type Alert struct {
	ID         string    `json:"id"`
	ItemID     int64     `json:"itemId"`
	ItemName   string    `json:"itemName,omitempty"`
	RegionID   int64     `json:"regionId"`
	RegionName string    `json:"regionName,omitempty"`
	Type       AlertType `json:"alertType"`
	Threshold  float64   `json:"threshold"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"createdAt"`

	// Written only by the check path.
	LastChecked      *time.Time `json:"lastChecked"`
	LastTriggered    *time.Time `json:"lastTriggered"`
	LastTriggerPrice *float64   `json:"lastTriggerPrice"`
	LastError        string     `json:"lastError,omitempty"`
}

// DisplayName returns the item name, falling back to the numeric type id.
func (a *Alert) DisplayName() string {
	if a.ItemName != "" {
		return a.ItemName
	}
	return fmt.Sprintf("Type #%d", a.ItemID)
}

// Validate checks that the alert carries enough information to be evaluated.
func (a *Alert) Validate() error {
	if a.ItemID <= 0 {
		return errors.New("item ID must be a positive number")
	}
	if a.RegionID <= 0 {
		return errors.New("region ID must be a positive number")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("unknown alert type %q", a.Type)
	}
	if a.Type.NeedsThreshold() && a.Threshold <= 0 {
		return errors.New("threshold must be greater than zero")
	}
	return nil
}

// Clone returns a deep copy so callers never share pointer fields with the store.
func (a Alert) Clone() Alert {
	if a.LastChecked != nil {
		t := *a.LastChecked
		a.LastChecked = &t
	}
	if a.LastTriggered != nil {
		t := *a.LastTriggered
		a.LastTriggered = &t
	}
	if a.LastTriggerPrice != nil {
		p := *a.LastTriggerPrice
		a.LastTriggerPrice = &p
	}
	return a
}

// AlertDefinition holds the user-controlled fields of a new alert.
type AlertDefinition struct {
	ItemID     int64     `json:"itemId"`
	ItemName   string    `json:"itemName,omitempty"`
	RegionID   int64     `json:"regionId,omitempty"`
	RegionName string    `json:"regionName,omitempty"`
	Type       AlertType `json:"alertType"`
	Threshold  float64   `json:"threshold"`
	Enabled    *bool     `json:"enabled,omitempty"`
}

// AlertPatch is a partial update; nil fields are left untouched.
type AlertPatch struct {
	ItemID     *int64     `json:"itemId,omitempty"`
	ItemName   *string    `json:"itemName,omitempty"`
	RegionID   *int64     `json:"regionId,omitempty"`
	RegionName *string    `json:"regionName,omitempty"`
	Type       *AlertType `json:"alertType,omitempty"`
	Threshold  *float64   `json:"threshold,omitempty"`
	Enabled    *bool      `json:"enabled,omitempty"`
}

// Apply copies the non-nil patch fields onto a.
func (p AlertPatch) Apply(a *Alert) {
	if p.ItemID != nil {
		a.ItemID = *p.ItemID
	}
	if p.ItemName != nil {
		a.ItemName = *p.ItemName
	}
	if p.RegionID != nil {
		a.RegionID = *p.RegionID
	}
	if p.RegionName != nil {
		a.RegionName = *p.RegionName
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Threshold != nil {
		a.Threshold = *p.Threshold
	}
	if p.Enabled != nil {
		a.Enabled = *p.Enabled
	}
}
