package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rewired-gh/iskwatch/internal/alerts"
	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/models"
	"github.com/rewired-gh/iskwatch/internal/monitor"
)

// storeError maps alert store errors onto API errors. Anything that is not a
// missing alert is a rejected definition.
func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, alerts.ErrNotFound) {
		JSONError(w, ErrAlertNotFound)
		return
	}
	JSONError(w, NewValidationError(err.Error()))
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	OK(w, s.deps.Store.List())
}

func (s *Server) createAlert(w http.ResponseWriter, r *http.Request) {
	var def models.AlertDefinition
	empty, err := decodeJSON(w, r, &def)
	if err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}
	if empty {
		JSONError(w, NewBadRequest("request body is required"))
		return
	}

	id, err := s.deps.Store.Create(def)
	if err != nil {
		storeError(w, err)
		return
	}
	Created(w, CreatedAlert{ID: id})
}

func (s *Server) clearAlerts(w http.ResponseWriter, r *http.Request) {
	s.deps.Store.ClearAll()
	NoContent(w)
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	OK(w, a)
}

func (s *Server) updateAlert(w http.ResponseWriter, r *http.Request) {
	var patch models.AlertPatch
	if _, err := decodeJSON(w, r, &patch); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}

	a, err := s.deps.Store.Update(chi.URLParam(r, "id"), patch)
	if err != nil {
		storeError(w, err)
		return
	}
	OK(w, a)
}

func (s *Server) removeAlert(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Remove(chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	NoContent(w)
}

func (s *Server) toggleAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Store.Toggle(chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	OK(w, a)
}

// checkAlert checks one alert now. An optional body carries a price snapshot
// to evaluate instead of querying the market.
func (s *Server) checkAlert(w http.ResponseWriter, r *http.Request) {
	var snap models.PriceSnapshot
	empty, err := decodeJSON(w, r, &snap)
	if err != nil {
		JSONError(w, NewBadRequest("invalid price snapshot"))
		return
	}
	var override *models.PriceSnapshot
	if !empty {
		override = &snap
	}

	res, err := s.deps.Monitor.CheckOne(r.Context(), chi.URLParam(r, "id"), override)
	if err != nil {
		storeError(w, err)
		return
	}
	OK(w, res)
}

func (s *Server) checkAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Monitor.CheckAll(r.Context())
	if errors.Is(err, monitor.ErrCycleInProgress) {
		JSONError(w, ErrCycleInProgress)
		return
	}
	if err != nil {
		logger.Error("Check cycle failed: %v", err)
		JSONError(w, ErrInternalServer)
		return
	}
	OK(w, report)
}

func (s *Server) startMonitor(w http.ResponseWriter, r *http.Request) {
	s.deps.Monitor.Start(s.baseCtx)
	OK(w, s.deps.Monitor.Stats())
}

func (s *Server) stopMonitor(w http.ResponseWriter, r *http.Request) {
	s.deps.Monitor.Stop()
	OK(w, s.deps.Monitor.Stats())
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	OK(w, s.deps.History.List())
}

func (s *Server) clearHistory(w http.ResponseWriter, r *http.Request) {
	s.deps.History.Clear()
	NoContent(w)
}

func (s *Server) listTriggered(w http.ResponseWriter, r *http.Request) {
	OK(w, s.deps.Triggered.List())
}

// dismissTriggered dismisses every pending trigger, or only those of one
// alert when ?alertId= is given.
func (s *Server) dismissTriggered(w http.ResponseWriter, r *http.Request) {
	if alertID := r.URL.Query().Get("alertId"); alertID != "" {
		OK(w, DismissResponse{Dismissed: s.deps.Triggered.DismissAlert(alertID)})
		return
	}
	n := s.deps.Triggered.Len()
	s.deps.Triggered.DismissAll()
	OK(w, DismissResponse{Dismissed: n})
}

func (s *Server) dismissOne(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Triggered.Dismiss(chi.URLParam(r, "id")) {
		JSONError(w, ErrTriggeredNotFound)
		return
	}
	NoContent(w)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	OK(w, s.deps.Store.Settings())
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if _, err := decodeJSON(w, r, &patch); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}

	next, err := s.deps.Monitor.UpdateSettings(patch)
	if err != nil {
		JSONError(w, NewValidationError(err.Error()))
		return
	}
	OK(w, next)
}

func (s *Server) getPermission(w http.ResponseWriter, r *http.Request) {
	OK(w, PermissionResponse{Permission: string(s.deps.Permissions.Permission(r.Context()))})
}

func (s *Server) requestPermission(w http.ResponseWriter, r *http.Request) {
	OK(w, PermissionResponse{Permission: string(s.deps.Permissions.RequestPermission(r.Context()))})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	OK(w, s.deps.Monitor.Stats())
}
