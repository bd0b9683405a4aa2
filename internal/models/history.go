package models

import "time"

// HistoryEntry is the permanent record of one dispatched trigger.
type HistoryEntry struct {
	ID           string    `json:"id"`
	AlertID      string    `json:"alertId"`
	ItemID       int64     `json:"itemId"`
	ItemName     string    `json:"itemName"`
	RegionID     int64     `json:"regionId"`
	Type         AlertType `json:"alertType"`
	Threshold    float64   `json:"threshold"`
	CurrentPrice float64   `json:"currentPrice"`
	Message      string    `json:"message"`
	TriggeredAt  time.Time `json:"triggeredAt"`
}

// TriggeredAlert is a trigger still waiting for the user to acknowledge it.
// It shares its ID with the HistoryEntry it was projected from.
type TriggeredAlert struct {
	ID           string    `json:"id"`
	AlertID      string    `json:"alertId"`
	ItemName     string    `json:"itemName"`
	Type         AlertType `json:"alertType"`
	CurrentPrice float64   `json:"currentPrice"`
	Message      string    `json:"message"`
	TriggeredAt  time.Time `json:"triggeredAt"`
}

// Triggered projects the entry into its acknowledgment record.
func (e HistoryEntry) Triggered() TriggeredAlert {
	return TriggeredAlert{
		ID:           e.ID,
		AlertID:      e.AlertID,
		ItemName:     e.ItemName,
		Type:         e.Type,
		CurrentPrice: e.CurrentPrice,
		Message:      e.Message,
		TriggeredAt:  e.TriggeredAt,
	}
}

// PriceSnapshot is the top of the order book for one item in one region.
// A zero price means that side of the book is empty.
type PriceSnapshot struct {
	BestBid float64 `json:"bestBid"`
	BestAsk float64 `json:"bestAsk"`
	// Current overrides both sides when the caller already knows the trading price.
	Current float64 `json:"current,omitempty"`
}
