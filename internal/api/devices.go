package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lockwise-core/internal/access"
	"github.com/nerrad567/lockwise-core/internal/accesslog"
	"github.com/nerrad567/lockwise-core/internal/control"
	"github.com/nerrad567/lockwise-core/internal/device"
)

// controlRequest is the body of POST /devices/{id}/control.
type controlRequest struct {
	Command string `json:"command"`
}

// configRequest is the body of POST /devices/{id}/config.
type configRequest struct {
	Configs []control.ConfigItem `json:"configs"`
}

// handleListDevices returns the devices the caller owns.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListByOwner(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		s.logger.Error("listing devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleListAccessibleDevices returns the devices shared with the caller
// through an active grant.
func (s *Server) handleListAccessibleDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ids, err := s.access.SharedDeviceIDs(ctx, actorFromContext(ctx))
	if err != nil {
		s.logger.Error("listing shared devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	devices := make([]device.Device, 0, len(ids))
	for _, id := range ids {
		d, err := s.devices.GetDevice(ctx, id)
		if errors.Is(err, device.ErrDeviceNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error("loading shared device", "device_id", id, "error", err)
			writeInternalError(w, "failed to list devices")
			return
		}
		devices = append(devices, *d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns one device to its owner or an active grantee.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.requireStanding(w, r, id, access.Standing.CanOperate) {
		return
	}

	d, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleListLogs returns the device's access log, newest first. Owner only.
//
// Query parameters:
//   - limit, offset: pagination (default 50, max 1000)
//   - event_type: LOCK or UNLOCK
//   - since: RFC3339 lower bound on the device timestamp
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.requireStanding(w, r, id, access.Standing.CanManage) {
		return
	}

	filter, ok := parseLogFilter(w, r)
	if !ok {
		return
	}
	filter.DeviceID = id

	result, err := s.accessLog.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing access log", "device_id", id, "error", err)
		writeInternalError(w, "failed to list access log")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handlePing probes the device and waits for its acknowledgment.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := s.commands.Ping(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleControl sends LOCK or UNLOCK.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.commands.Control(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Command)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent", "command": req.Command})
}

// handleConfig applies configuration keys, waiting for each acknowledgment.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	err := s.commands.ApplyConfig(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), req.Configs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLockdown sends LOCKDOWN.
func (s *Server) handleLockdown(w http.ResponseWriter, r *http.Request) {
	if err := s.commands.Lockdown(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// handleReboot sends REBOOT.
func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if err := s.commands.Reboot(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// requireStanding writes 403 or 404 and returns false unless the caller's
// standing over deviceID satisfies allowed.
func (s *Server) requireStanding(w http.ResponseWriter, r *http.Request, deviceID string, allowed func(access.Standing) bool) bool {
	standing, err := s.access.Standing(r.Context(), actorFromContext(r.Context()), deviceID)
	if err != nil {
		s.writeError(w, r, err)
		return false
	}
	if !allowed(standing) {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "insufficient standing for this device")
		return false
	}
	return true
}

// writeError maps err to a response, logging anything unexpected.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if writeServiceError(w, err) {
		return
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeInternalError(w, "internal server error")
}

func parseLogFilter(w http.ResponseWriter, r *http.Request) (accesslog.Filter, bool) {
	q := r.URL.Query()
	var filter accesslog.Filter

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return filter, false
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return filter, false
		}
		filter.Offset = n
	}
	if v := q.Get("event_type"); v != "" {
		et := accesslog.EventType(v)
		if et != accesslog.EventLock && et != accesslog.EventUnlock {
			writeBadRequest(w, "event_type must be LOCK or UNLOCK")
			return filter, false
		}
		filter.EventType = et
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be RFC3339")
			return filter, false
		}
		filter.Since = t
	}
	return filter, true
}
