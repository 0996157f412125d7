package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tableask/tableask/internal/tabular"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Statement string `json:"statement"`
	Ambiguous bool   `json:"ambiguous"`
}

type queryRequest struct {
	SQL string `json:"sql"`
}

type resultResponse struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session service is not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	statement, ambiguous, err := deps.Service.Ask(r.Context(), request.Question)
	if err != nil {
		writeFaultError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{Statement: statement, Ambiguous: ambiguous})
}

func handleExecute(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session service is not configured", false, nil)
		return
	}

	result, err := deps.Service.Execute(r.Context())
	if err != nil {
		writeFaultError(r.Context(), w, err)
		return
	}
	writeResult(w, result)
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Service == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSION_NOT_CONFIGURED", "session service is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	result, err := deps.Service.Query(r.Context(), request.SQL)
	if err != nil {
		writeFaultError(r.Context(), w, err)
		return
	}
	writeResult(w, result)
}

func writeResult(w http.ResponseWriter, result tabular.Table) {
	rows := result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, resultResponse{
		Columns:  result.Columns,
		Rows:     rows,
		RowCount: result.NumRows(),
	})
}
