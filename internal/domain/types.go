// Package domain holds the value types shared by the data providers, the
// forecast pipeline and the gallery: price bars, series points, forecast rows
// and pipeline run records.
package domain

import (
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is one daily OHLCV bar as returned by a data provider.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// PricePoint is one (date, value) pair of the series fed to a forecaster.
type PricePoint struct {
	Date  time.Time
	Value float64
}

// ForecastPoint is one row of forecaster output. Lower and Upper bound the
// uncertainty interval around Predicted.
type ForecastPoint struct {
	Date      time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// ---------------------------------------------------------------------------
// Pipeline runs
// ---------------------------------------------------------------------------

// RunStatus is the outcome of one symbol in a generate batch.
type RunStatus string

const (
	RunStatusOK     RunStatus = "ok"
	RunStatusFailed RunStatus = "failed"
)

// Run records the outcome of running the forecast pipeline for one symbol.
type Run struct {
	ID        string
	BatchID   string
	Symbol    string
	Years     float64
	Days      int
	Status    RunStatus
	Stage     string // failing stage, empty on success
	Reason    string // error text, empty on success
	Artifact  string // artifact filename, empty on failure
	StartedAt time.Time
	Duration  time.Duration
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrNoData is returned when a provider has nothing for a symbol/range.
	ErrNoData = errors.New("no data")

	// ErrInvalidRequest marks missing or malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is returned when a manifest or artifact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRender marks a chart renderer failure.
	ErrRender = errors.New("render failed")

	// ErrForecast marks a forecaster failure or malformed forecaster output.
	ErrForecast = errors.New("forecast failed")
)
