// Package httpapi serves the chart gallery over HTTP: the static gallery
// directory, the generate and delete actions posted by the index page, and
// JSON listings of charts and pipeline runs.
package httpapi

import (
	"time"

	"chartgallery/internal/domain"
)

// Error messages returned in Response.Error.
const (
	ErrMsgMissingParameters = "missing parameters"
	ErrMsgInvalidBody       = "invalid request body"
	ErrMsgInvalidParameters = "invalid parameters"
	ErrMsgInternal          = "internal error"
)

// GenerateRequest is the body of POST /generate. Years and Days are pointers
// so an absent or null field can be told apart from zero.
type GenerateRequest struct {
	Symbols []string `json:"symbols"`
	Years   *float64 `json:"years"`
	Days    *int     `json:"days"`
}

// DeleteRequest is the body of POST /delete.
type DeleteRequest struct {
	Filename string `json:"filename"`
}

// Response is the reply to every action endpoint.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is the reply of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// RunJSON is the JSON representation of one recorded pipeline run.
type RunJSON struct {
	ID         string  `json:"id"`
	BatchID    string  `json:"batchId"`
	Symbol     string  `json:"symbol"`
	Years      float64 `json:"years"`
	Days       int     `json:"days"`
	Status     string  `json:"status"`
	Stage      string  `json:"stage,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Artifact   string  `json:"artifact,omitempty"`
	StartedAt  int64   `json:"startedAt"` // unix milliseconds
	DurationMs int64   `json:"durationMs"`
}

// RunsResponse is the reply of GET /api/runs.
type RunsResponse struct {
	Runs []RunJSON `json:"runs"`
}

func runToJSON(r domain.Run) RunJSON {
	return RunJSON{
		ID:         r.ID,
		BatchID:    r.BatchID,
		Symbol:     r.Symbol,
		Years:      r.Years,
		Days:       r.Days,
		Status:     string(r.Status),
		Stage:      r.Stage,
		Reason:     r.Reason,
		Artifact:   r.Artifact,
		StartedAt:  r.StartedAt.UnixMilli(),
		DurationMs: r.Duration.Milliseconds(),
	}
}

// RunFromJSON converts a listed run back into the domain type.
func RunFromJSON(j RunJSON) domain.Run {
	return domain.Run{
		ID:        j.ID,
		BatchID:   j.BatchID,
		Symbol:    j.Symbol,
		Years:     j.Years,
		Days:      j.Days,
		Status:    domain.RunStatus(j.Status),
		Stage:     j.Stage,
		Reason:    j.Reason,
		Artifact:  j.Artifact,
		StartedAt: time.UnixMilli(j.StartedAt),
		Duration:  time.Duration(j.DurationMs) * time.Millisecond,
	}
}
