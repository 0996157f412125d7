package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tableask/tableask/internal/store"
)

type targetRequest struct {
	Mode string `json:"mode"`
	Path string `json:"path"`
}

func handleSetTarget(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session service is not configured", false, nil)
		return
	}

	var request targetRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid target request body", false, map[string]any{"details": err.Error()})
		return
	}

	var target store.Target
	switch strings.ToLower(strings.TrimSpace(request.Mode)) {
	case string(store.TargetPersistent):
		if strings.TrimSpace(request.Path) == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "PATH_REQUIRED", "path is required for a persistent target", false, nil)
			return
		}
		target = store.Target{Mode: store.TargetPersistent, Path: strings.TrimSpace(request.Path)}
	case string(store.TargetEphemeral):
		target = store.Target{Mode: store.TargetEphemeral}
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MODE", "mode must be \"persistent\" or \"ephemeral\"", false, nil)
		return
	}

	view, err := deps.Service.SetTarget(r.Context(), target)
	if err != nil {
		writeFaultError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
