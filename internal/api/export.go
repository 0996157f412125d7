package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tableask/tableask/internal/storage"
	"github.com/tableask/tableask/internal/tabular"
)

// handleExport serializes the last execution result. With dest=object
// the file lands in the configured bucket instead of the response.
func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session service is not configured", false, nil)
		return
	}

	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}

	result, ok := deps.Service.Result()
	if !ok {
		writeError(r.Context(), w, http.StatusConflict, "NO_RESULT", "no execution result to export", false, nil)
		return
	}

	var buf bytes.Buffer
	var contentType string
	var err error
	switch format {
	case "csv":
		contentType = "text/csv"
		err = tabular.WriteCSV(&buf, result)
	case "json":
		contentType = "application/json"
		err = tabular.WriteJSON(&buf, result)
	case "parquet":
		contentType = "application/vnd.apache.parquet"
		err = tabular.WriteParquet(&buf, result)
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv, json, or parquet", false, nil)
		return
	}
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "could not serialize result", false, map[string]any{"details": err.Error()})
		return
	}

	if strings.EqualFold(r.URL.Query().Get("dest"), "object") {
		if deps.ObjectStore == nil {
			writeError(r.Context(), w, http.StatusNotImplemented, "OBJECT_STORE_NOT_CONFIGURED", "object store is not configured", false, nil)
			return
		}
		key, err := storage.BuildExportPath(deps.Service.Relation(), format, time.Now())
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "could not build export path", false, map[string]any{"details": err.Error()})
			return
		}
		info, err := deps.ObjectStore.Put(r.Context(), key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.PutOptions{ContentType: contentType})
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "EXPORT_UPLOAD_FAILED", "could not store export object", true, map[string]any{"key": key, "details": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": info.Key, "size": info.Size})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", deps.Service.Relation()+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
