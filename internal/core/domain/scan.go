package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Scan Types
// =============================================================================

// ScanStatus represents the lifecycle state of a background scan.
type ScanStatus string

const (
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// IsValid checks if the scan status is valid.
func (s ScanStatus) IsValid() bool {
	switch s {
	case ScanStatusRunning, ScanStatusCompleted, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is a final state.
func (s ScanStatus) IsTerminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// =============================================================================
// Scan
// =============================================================================

// Scan summarizes one pass of the pattern scanner over the active
// watchlist symbols.
type Scan struct {
	ID              string     `json:"id"`
	Status          ScanStatus `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	SymbolsScanned  int        `json:"symbols_scanned"`
	DetectionsFound int        `json:"detections_found"`
	Error           string     `json:"error,omitempty"`
}

// NewScan creates a scan in the running state.
func NewScan() *Scan {
	return &Scan{
		ID:        "scan_" + uuid.New().String()[:8],
		Status:    ScanStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Complete marks the scan finished with the given totals.
func (s *Scan) Complete(symbols, detections int) {
	now := time.Now().UTC()
	s.Status = ScanStatusCompleted
	s.FinishedAt = &now
	s.SymbolsScanned = symbols
	s.DetectionsFound = detections
}

// Fail marks the scan failed with the given reason.
func (s *Scan) Fail(reason string) {
	now := time.Now().UTC()
	s.Status = ScanStatusFailed
	s.FinishedAt = &now
	s.Error = reason
}

// =============================================================================
// Detection
// =============================================================================

// Detection is a single pattern occurrence found by a scan.
type Detection struct {
	ID         string    `json:"id"`
	ScanID     string    `json:"scan_id"`
	Symbol     string    `json:"symbol"`
	Detector   string    `json:"detector"`
	Pattern    string    `json:"pattern"`
	BarTime    time.Time `json:"bar_time"`
	Price      float64   `json:"price"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewDetection creates a detection record for a scan.
func NewDetection(scanID, symbol, detector, pattern string, barTime time.Time, price float64) *Detection {
	return &Detection{
		ID:         "det_" + uuid.New().String()[:8],
		ScanID:     scanID,
		Symbol:     symbol,
		Detector:   detector,
		Pattern:    pattern,
		BarTime:    barTime,
		Price:      price,
		DetectedAt: time.Now().UTC(),
	}
}
