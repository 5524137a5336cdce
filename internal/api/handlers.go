package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/gajzzs/usbwarden/internal/registry"
	"github.com/gajzzs/usbwarden/internal/system"
)

const (
	maxBodyBytes     = 4096
	defaultLogCount  = 100
	maxLogCount      = 5000
	notConfiguredMsg = "not available on this host"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type StorageResponse struct {
	Enabled bool `json:"enabled"`
}

type StatusResponse struct {
	DeviceCount       int              `json:"deviceCount"`
	DeniedCount       int              `json:"deniedCount"`
	USBStorageEnabled *bool            `json:"usbStorageEnabled,omitempty"`
	Host              *system.HostInfo `json:"host,omitempty"`
	RemovableVolumes  []system.Volume  `json:"removableVolumes,omitempty"`
}

type deviceRequest struct {
	DeviceID string `json:"deviceId"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.devices.List())
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec := s.devices.Get(id)
	if rec.IsZero() {
		writeError(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleAllow(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, true)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, false)
}

// handleDecision accepts the device id as the raw request body or as
// {"deviceId": "..."}. An unknown id yields {"success": false}.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request, allow bool) {
	id, err := readDeviceID(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var ok bool
	if allow {
		ok = s.devices.Allow(id)
	} else {
		ok = s.devices.Deny(id)
	}

	s.logger.Info().
		Str("request_id", requestID(r.Context())).
		Str("device_id", id).
		Bool("allow", allow).
		Bool("success", ok).
		Msg("Device decision")

	writeJSON(w, SuccessResponse{Success: ok})
}

func readDeviceID(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return "", errBadRequest("failed to read request body")
	}
	if len(body) > maxBodyBytes {
		return "", errBadRequest("request body too large")
	}

	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, "{") {
		var req deviceRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return "", errBadRequest("invalid JSON body")
		}
		raw = strings.TrimSpace(req.DeviceID)
	}
	if raw == "" {
		return "", errBadRequest("device id is required")
	}
	return raw, nil
}

func (s *Server) handleStorageStatus(w http.ResponseWriter, _ *http.Request) {
	if s.storage == nil {
		writeError(w, notConfiguredMsg, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, StorageResponse{Enabled: s.storage.IsUSBStorageEnabled()})
}

func (s *Server) handleStorageEnable(w http.ResponseWriter, _ *http.Request) {
	if s.storage == nil {
		writeError(w, notConfiguredMsg, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, SuccessResponse{Success: s.storage.EnableUSBStorage()})
}

func (s *Server) handleStorageDisable(w http.ResponseWriter, _ *http.Request) {
	if s.storage == nil {
		writeError(w, notConfiguredMsg, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, SuccessResponse{Success: s.storage.DisableUSBStorage()})
}

func (s *Server) handleHardware(w http.ResponseWriter, _ *http.Request) {
	if s.storage == nil {
		writeError(w, notConfiguredMsg, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.storage.AllUSBDevices())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		DeviceCount: s.devices.Count(),
		DeniedCount: len(s.devices.Denied()),
	}

	if s.storage != nil {
		enabled := s.storage.IsUSBStorageEnabled()
		resp.USBStorageEnabled = &enabled
	}
	if s.host != nil {
		info := s.host.HostInfo()
		resp.Host = &info
		if vols, err := s.host.RemovableVolumes(); err == nil {
			resp.RemovableVolumes = vols
		} else {
			s.logger.Warn().Err(err).Msg("Failed to list removable volumes")
		}
	}

	writeJSON(w, resp)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeError(w, notConfiguredMsg, http.StatusServiceUnavailable)
		return
	}

	count := defaultLogCount
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = min(n, maxLogCount)
	}

	lines, err := s.logs.Recent(count)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read log file")
		writeError(w, "failed to read logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, lines)
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequest(msg) }

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message, Status: statusCode}); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

var _ DeviceStore = (*registry.Registry)(nil)
