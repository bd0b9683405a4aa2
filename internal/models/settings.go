package models

import (
	"errors"
	"time"
)

const (
	DefaultCheckIntervalMs int64 = 60000
	MinCheckIntervalMs     int64 = 5000
)

// Settings holds the user's notification and polling preferences.
type Settings struct {
	BrowserNotificationsEnabled bool    `json:"browserNotificationsEnabled"`
	SoundEnabled                bool    `json:"soundEnabled"`
	SoundVolume                 float64 `json:"soundVolume"`
	CheckIntervalMs             int64   `json:"checkIntervalMs"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		BrowserNotificationsEnabled: true,
		SoundEnabled:                true,
		SoundVolume:                 0.5,
		CheckIntervalMs:             DefaultCheckIntervalMs,
	}
}

// CheckInterval returns the poll interval as a duration.
func (s Settings) CheckInterval() time.Duration {
	return time.Duration(s.CheckIntervalMs) * time.Millisecond
}

// Validate checks settings field constraints.
func (s Settings) Validate() error {
	if s.SoundVolume < 0.0 || s.SoundVolume > 1.0 {
		return errors.New("sound volume must be between 0.0 and 1.0")
	}
	if s.CheckIntervalMs < MinCheckIntervalMs {
		return errors.New("check interval must be at least 5000ms")
	}
	return nil
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	BrowserNotificationsEnabled *bool    `json:"browserNotificationsEnabled,omitempty"`
	SoundEnabled                *bool    `json:"soundEnabled,omitempty"`
	SoundVolume                 *float64 `json:"soundVolume,omitempty"`
	CheckIntervalMs             *int64   `json:"checkIntervalMs,omitempty"`
}

// Apply returns a copy of s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.BrowserNotificationsEnabled != nil {
		s.BrowserNotificationsEnabled = *p.BrowserNotificationsEnabled
	}
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.SoundVolume != nil {
		s.SoundVolume = *p.SoundVolume
	}
	if p.CheckIntervalMs != nil {
		s.CheckIntervalMs = *p.CheckIntervalMs
	}
	return s
}
