package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/iskwatch/internal/alerts"
	"github.com/rewired-gh/iskwatch/internal/monitor"
	"github.com/rewired-gh/iskwatch/internal/telegram"
)

// botCommands returns the chat commands served by the Telegram bot. Cycles
// started from chat run under ctx.
func botCommands(ctx context.Context, a *app) map[string]telegram.CommandFunc {
	return map[string]telegram.CommandFunc{
		"status": func(string) string {
			return statusText(a.monitor.Stats())
		},
		"alerts": func(string) string {
			list := a.store.List()
			if len(list) == 0 {
				return "No alerts configured"
			}
			lines := make([]string, 0, len(list))
			for _, al := range list {
				state := "on"
				if !al.Enabled {
					state = "off"
				}
				lines = append(lines, fmt.Sprintf("[%s] %s %s %s", state, al.DisplayName(), al.Type, alerts.FormatISK(al.Threshold)))
			}
			return strings.Join(lines, "\n")
		},
		"check": func(string) string {
			report, err := a.monitor.CheckAll(ctx)
			if errors.Is(err, monitor.ErrCycleInProgress) {
				return "A check is already running"
			}
			if err != nil {
				return "Check failed: " + err.Error()
			}
			return fmt.Sprintf("%d checked, %d fired, %d suppressed, %d without data",
				report.Checked, report.Fired, report.Suppressed, report.NoData)
		},
		"dismiss": func(args string) string {
			if id := strings.TrimSpace(args); id != "" {
				return fmt.Sprintf("Dismissed %d", a.triggered.DismissAlert(id))
			}
			n := a.triggered.Len()
			a.triggered.DismissAll()
			return fmt.Sprintf("Dismissed %d", n)
		},
		"pause": func(string) string {
			a.monitor.Stop()
			return "Monitor paused"
		},
		"resume": func(string) string {
			a.monitor.Start(ctx)
			return "Monitor resumed"
		},
	}
}

// statusText summarises engine state for chat replies.
func statusText(s monitor.Stats) string {
	state := "stopped"
	if s.Running {
		state = "running"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Monitor %s, checking every %s\n", state, humanize.Comma(s.IntervalMs/1000)+"s")
	fmt.Fprintf(&b, "%d alerts (%d enabled, %d disabled), %d triggered recently\n",
		s.Total, s.Enabled, s.Disabled, s.RecentlyTriggered)
	fmt.Fprintf(&b, "%d pending, %d in history", s.PendingTriggered, s.HistorySize)
	if s.LastCycleAt != nil {
		b.WriteString("\nLast check " + humanize.Time(*s.LastCycleAt))
	}
	return b.String()
}
