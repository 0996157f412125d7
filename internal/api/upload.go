package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"
)

const maxUploadBytes = 64 << 20

type uploadRequest struct {
	ObjectKey string `json:"object_key"`
}

// handleUploadFile accepts either a multipart form with a "file" part
// or a JSON body naming an object in the configured bucket.
func handleUploadFile(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session service is not configured", false, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var fileName string
	var data []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart request body", false, map[string]any{"details": err.Error()})
			return
		}
		part, header, err := r.FormFile("file")
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "multipart part \"file\" is required", false, nil)
			return
		}
		defer part.Close()
		data, err = io.ReadAll(part)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "FILE_UNREADABLE", "could not read uploaded file", false, map[string]any{"details": err.Error()})
			return
		}
		fileName = path.Base(header.Filename)
	} else {
		var request uploadRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&request); err != nil {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid upload request body", false, map[string]any{"details": err.Error()})
			return
		}
		if strings.TrimSpace(request.ObjectKey) == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "OBJECT_KEY_REQUIRED", "object_key is required", false, nil)
			return
		}
		if deps.ObjectStore == nil {
			writeError(r.Context(), w, http.StatusNotImplemented, "OBJECT_STORE_NOT_CONFIGURED", "object store is not configured", false, nil)
			return
		}
		reader, err := deps.ObjectStore.Get(r.Context(), request.ObjectKey)
		if err != nil {
			writeError(r.Context(), w, http.StatusNotFound, "OBJECT_NOT_FOUND", "could not fetch object", false, map[string]any{"key": request.ObjectKey, "details": err.Error()})
			return
		}
		defer reader.Close()
		data, err = io.ReadAll(reader)
		if err != nil {
			writeError(r.Context(), w, http.StatusBadGateway, "OBJECT_UNREADABLE", "could not read object body", true, map[string]any{"key": request.ObjectKey})
			return
		}
		fileName = path.Base(request.ObjectKey)
	}

	view, err := deps.Service.Upload(r.Context(), fileName, data)
	if err != nil {
		writeFaultError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
