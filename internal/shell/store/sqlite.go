package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chartkit/chartwatch/internal/core/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", "failed to ping database", ErrConnectionFailed)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Watchlist Operations
// =============================================================================

// watchlistRow represents a watchlist row in the database.
type watchlistRow struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	Slug      string  `db:"slug"`
	Symbols   *string `db:"symbols"`
	Active    bool    `db:"active"`
	CreatedAt string  `db:"created_at"`
	UpdatedAt string  `db:"updated_at"`
}

func (s *SQLiteStore) CreateWatchlist(ctx context.Context, watchlist *domain.Watchlist) error {
	return createWatchlist(ctx, s.db, watchlist)
}

func (s *SQLiteStore) GetWatchlist(ctx context.Context, id string) (*domain.Watchlist, error) {
	return getWatchlist(ctx, s.db, id)
}

func (s *SQLiteStore) GetWatchlistBySlug(ctx context.Context, slug string) (*domain.Watchlist, error) {
	return getWatchlistBySlug(ctx, s.db, slug)
}

func (s *SQLiteStore) UpdateWatchlist(ctx context.Context, watchlist *domain.Watchlist) error {
	return updateWatchlist(ctx, s.db, watchlist)
}

func (s *SQLiteStore) DeleteWatchlist(ctx context.Context, id string) error {
	return deleteWatchlist(ctx, s.db, id)
}

func (s *SQLiteStore) ListWatchlists(ctx context.Context, opts ListOptions) ([]domain.Watchlist, error) {
	return listWatchlists(ctx, s.db, opts)
}

func (s *SQLiteStore) ListActiveWatchlists(ctx context.Context) ([]domain.Watchlist, error) {
	return listActiveWatchlists(ctx, s.db)
}

// =============================================================================
// Scan Operations
// =============================================================================

// scanRow represents a scan row in the database.
type scanRow struct {
	ID              string  `db:"id"`
	Status          string  `db:"status"`
	StartedAt       string  `db:"started_at"`
	FinishedAt      *string `db:"finished_at"`
	SymbolsScanned  int     `db:"symbols_scanned"`
	DetectionsFound int     `db:"detections_found"`
	ErrorMessage    string  `db:"error_message"`
}

func (s *SQLiteStore) CreateScan(ctx context.Context, scan *domain.Scan) error {
	return createScan(ctx, s.db, scan)
}

func (s *SQLiteStore) GetScan(ctx context.Context, id string) (*domain.Scan, error) {
	return getScan(ctx, s.db, id)
}

func (s *SQLiteStore) UpdateScan(ctx context.Context, scan *domain.Scan) error {
	return updateScan(ctx, s.db, scan)
}

func (s *SQLiteStore) ListScans(ctx context.Context, opts ListOptions) ([]domain.Scan, error) {
	return listScans(ctx, s.db, opts)
}

// =============================================================================
// Detection Operations
// =============================================================================

// detectionRow represents a detection row in the database.
type detectionRow struct {
	ID         string  `db:"id"`
	ScanID     string  `db:"scan_id"`
	Symbol     string  `db:"symbol"`
	Detector   string  `db:"detector"`
	Pattern    string  `db:"pattern"`
	BarTime    string  `db:"bar_time"`
	Price      float64 `db:"price"`
	DetectedAt string  `db:"detected_at"`
}

func (s *SQLiteStore) CreateDetections(ctx context.Context, detections []domain.Detection) error {
	return createDetections(ctx, s.db, detections)
}

func (s *SQLiteStore) ListDetectionsByScan(ctx context.Context, scanID string, opts ListOptions) ([]domain.Detection, error) {
	return listDetectionsByScan(ctx, s.db, scanID, opts)
}

func (s *SQLiteStore) ListDetectionsBySymbol(ctx context.Context, symbol string, opts ListOptions) ([]domain.Detection, error) {
	return listDetectionsBySymbol(ctx, s.db, symbol, opts)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreateWatchlist(ctx context.Context, watchlist *domain.Watchlist) error {
	return createWatchlist(ctx, s.tx, watchlist)
}

func (s *txSQLiteStore) GetWatchlist(ctx context.Context, id string) (*domain.Watchlist, error) {
	return getWatchlist(ctx, s.tx, id)
}

func (s *txSQLiteStore) GetWatchlistBySlug(ctx context.Context, slug string) (*domain.Watchlist, error) {
	return getWatchlistBySlug(ctx, s.tx, slug)
}

func (s *txSQLiteStore) UpdateWatchlist(ctx context.Context, watchlist *domain.Watchlist) error {
	return updateWatchlist(ctx, s.tx, watchlist)
}

func (s *txSQLiteStore) DeleteWatchlist(ctx context.Context, id string) error {
	return deleteWatchlist(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListWatchlists(ctx context.Context, opts ListOptions) ([]domain.Watchlist, error) {
	return listWatchlists(ctx, s.tx, opts)
}

func (s *txSQLiteStore) ListActiveWatchlists(ctx context.Context) ([]domain.Watchlist, error) {
	return listActiveWatchlists(ctx, s.tx)
}

func (s *txSQLiteStore) CreateScan(ctx context.Context, scan *domain.Scan) error {
	return createScan(ctx, s.tx, scan)
}

func (s *txSQLiteStore) GetScan(ctx context.Context, id string) (*domain.Scan, error) {
	return getScan(ctx, s.tx, id)
}

func (s *txSQLiteStore) UpdateScan(ctx context.Context, scan *domain.Scan) error {
	return updateScan(ctx, s.tx, scan)
}

func (s *txSQLiteStore) ListScans(ctx context.Context, opts ListOptions) ([]domain.Scan, error) {
	return listScans(ctx, s.tx, opts)
}

func (s *txSQLiteStore) CreateDetections(ctx context.Context, detections []domain.Detection) error {
	return createDetections(ctx, s.tx, detections)
}

func (s *txSQLiteStore) ListDetectionsByScan(ctx context.Context, scanID string, opts ListOptions) ([]domain.Detection, error) {
	return listDetectionsByScan(ctx, s.tx, scanID, opts)
}

func (s *txSQLiteStore) ListDetectionsBySymbol(ctx context.Context, symbol string, opts ListOptions) ([]domain.Detection, error) {
	return listDetectionsBySymbol(ctx, s.tx, symbol, opts)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Ping(ctx context.Context) error {
	// No-op for tx store
	return nil
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func createWatchlist(ctx context.Context, exec executor, watchlist *domain.Watchlist) error {
	symbolsJSON, err := json.Marshal(watchlist.Symbols)
	if err != nil {
		return NewStoreError("CreateWatchlist", "watchlist", watchlist.ID, "failed to serialize symbols", ErrInvalidData)
	}

	query := `
		INSERT INTO watchlists (
			id, name, slug, symbols, active, created_at, updated_at
		) VALUES (
			:id, :name, :slug, :symbols, :active, :created_at, :updated_at
		)`

	row := map[string]any{
		"id":         watchlist.ID,
		"name":       watchlist.Name,
		"slug":       watchlist.Slug,
		"symbols":    string(symbolsJSON),
		"active":     watchlist.Active,
		"created_at": watchlist.CreatedAt.Format(time.RFC3339),
		"updated_at": watchlist.UpdatedAt.Format(time.RFC3339),
	}

	_, err = exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: watchlists.id") {
			return NewStoreError("CreateWatchlist", "watchlist", watchlist.ID, "watchlist with this ID already exists", ErrDuplicateID)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed: watchlists.slug") {
			return NewStoreError("CreateWatchlist", "watchlist", watchlist.ID, "watchlist with this slug already exists", ErrDuplicateSlug)
		}
		return NewStoreError("CreateWatchlist", "watchlist", watchlist.ID, err.Error(), err)
	}

	return nil
}

func getWatchlist(ctx context.Context, exec executor, id string) (*domain.Watchlist, error) {
	query := `SELECT * FROM watchlists WHERE id = ?`

	var row watchlistRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetWatchlist", "watchlist", id, "watchlist not found", ErrNotFound)
		}
		return nil, NewStoreError("GetWatchlist", "watchlist", id, err.Error(), err)
	}

	return rowToWatchlist(&row)
}

func getWatchlistBySlug(ctx context.Context, exec executor, slug string) (*domain.Watchlist, error) {
	query := `SELECT * FROM watchlists WHERE slug = ?`

	var row watchlistRow
	err := exec.GetContext(ctx, &row, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetWatchlistBySlug", "watchlist", slug, "watchlist not found", ErrNotFound)
		}
		return nil, NewStoreError("GetWatchlistBySlug", "watchlist", slug, err.Error(), err)
	}

	return rowToWatchlist(&row)
}

func updateWatchlist(ctx context.Context, exec executor, watchlist *domain.Watchlist) error {
	symbolsJSON, err := json.Marshal(watchlist.Symbols)
	if err != nil {
		return NewStoreError("UpdateWatchlist", "watchlist", watchlist.ID, "failed to serialize symbols", ErrInvalidData)
	}

	query := `
		UPDATE watchlists SET
			name = :name,
			slug = :slug,
			symbols = :symbols,
			active = :active,
			updated_at = :updated_at
		WHERE id = :id`

	row := map[string]any{
		"id":         watchlist.ID,
		"name":       watchlist.Name,
		"slug":       watchlist.Slug,
		"symbols":    string(symbolsJSON),
		"active":     watchlist.Active,
		"updated_at": watchlist.UpdatedAt.Format(time.RFC3339),
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: watchlists.slug") {
			return NewStoreError("UpdateWatchlist", "watchlist", watchlist.ID, "watchlist with this slug already exists", ErrDuplicateSlug)
		}
		return NewStoreError("UpdateWatchlist", "watchlist", watchlist.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateWatchlist", "watchlist", watchlist.ID, "watchlist not found", ErrNotFound)
	}

	return nil
}

func deleteWatchlist(ctx context.Context, exec executor, id string) error {
	query := `DELETE FROM watchlists WHERE id = ?`

	result, err := exec.ExecContext(ctx, query, id)
	if err != nil {
		return NewStoreError("DeleteWatchlist", "watchlist", id, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("DeleteWatchlist", "watchlist", id, "watchlist not found", ErrNotFound)
	}

	return nil
}

func listWatchlists(ctx context.Context, exec executor, opts ListOptions) ([]domain.Watchlist, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM watchlists ORDER BY created_at DESC LIMIT ? OFFSET ?`

	var rows []watchlistRow
	err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListWatchlists", "watchlist", "", err.Error(), err)
	}

	watchlists := make([]domain.Watchlist, 0, len(rows))
	for _, row := range rows {
		watchlist, err := rowToWatchlist(&row)
		if err != nil {
			return nil, err
		}
		watchlists = append(watchlists, *watchlist)
	}

	return watchlists, nil
}

func listActiveWatchlists(ctx context.Context, exec executor) ([]domain.Watchlist, error) {
	query := `SELECT * FROM watchlists WHERE active = 1 ORDER BY created_at ASC`

	var rows []watchlistRow
	err := exec.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, NewStoreError("ListActiveWatchlists", "watchlist", "", err.Error(), err)
	}

	watchlists := make([]domain.Watchlist, 0, len(rows))
	for _, row := range rows {
		watchlist, err := rowToWatchlist(&row)
		if err != nil {
			return nil, err
		}
		watchlists = append(watchlists, *watchlist)
	}

	return watchlists, nil
}

func createScan(ctx context.Context, exec executor, scan *domain.Scan) error {
	var finishedAt *string
	if scan.FinishedAt != nil {
		s := scan.FinishedAt.Format(time.RFC3339)
		finishedAt = &s
	}

	query := `
		INSERT INTO scans (
			id, status, started_at, finished_at,
			symbols_scanned, detections_found, error_message
		) VALUES (
			:id, :status, :started_at, :finished_at,
			:symbols_scanned, :detections_found, :error_message
		)`

	row := map[string]any{
		"id":               scan.ID,
		"status":           string(scan.Status),
		"started_at":       scan.StartedAt.Format(time.RFC3339),
		"finished_at":      finishedAt,
		"symbols_scanned":  scan.SymbolsScanned,
		"detections_found": scan.DetectionsFound,
		"error_message":    scan.Error,
	}

	_, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: scans.id") {
			return NewStoreError("CreateScan", "scan", scan.ID, "scan with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateScan", "scan", scan.ID, err.Error(), err)
	}

	return nil
}

func getScan(ctx context.Context, exec executor, id string) (*domain.Scan, error) {
	query := `SELECT * FROM scans WHERE id = ?`

	var row scanRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetScan", "scan", id, "scan not found", ErrNotFound)
		}
		return nil, NewStoreError("GetScan", "scan", id, err.Error(), err)
	}

	return rowToScan(&row)
}

func updateScan(ctx context.Context, exec executor, scan *domain.Scan) error {
	var finishedAt *string
	if scan.FinishedAt != nil {
		s := scan.FinishedAt.Format(time.RFC3339)
		finishedAt = &s
	}

	query := `
		UPDATE scans SET
			status = :status,
			finished_at = :finished_at,
			symbols_scanned = :symbols_scanned,
			detections_found = :detections_found,
			error_message = :error_message
		WHERE id = :id`

	row := map[string]any{
		"id":               scan.ID,
		"status":           string(scan.Status),
		"finished_at":      finishedAt,
		"symbols_scanned":  scan.SymbolsScanned,
		"detections_found": scan.DetectionsFound,
		"error_message":    scan.Error,
	}

	result, err := exec.NamedExecContext(ctx, query, row)
	if err != nil {
		return NewStoreError("UpdateScan", "scan", scan.ID, err.Error(), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return NewStoreError("UpdateScan", "scan", scan.ID, "scan not found", ErrNotFound)
	}

	return nil
}

func listScans(ctx context.Context, exec executor, opts ListOptions) ([]domain.Scan, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM scans ORDER BY started_at DESC LIMIT ? OFFSET ?`

	var rows []scanRow
	err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListScans", "scan", "", err.Error(), err)
	}

	scans := make([]domain.Scan, 0, len(rows))
	for _, row := range rows {
		scan, err := rowToScan(&row)
		if err != nil {
			return nil, err
		}
		scans = append(scans, *scan)
	}

	return scans, nil
}

func createDetections(ctx context.Context, exec executor, detections []domain.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	query := `
		INSERT INTO detections (
			id, scan_id, symbol, detector, pattern, bar_time, price, detected_at
		) VALUES (
			:id, :scan_id, :symbol, :detector, :pattern, :bar_time, :price, :detected_at
		)`

	for _, d := range detections {
		row := map[string]any{
			"id":          d.ID,
			"scan_id":     d.ScanID,
			"symbol":      d.Symbol,
			"detector":    d.Detector,
			"pattern":     d.Pattern,
			"bar_time":    d.BarTime.Format(time.RFC3339),
			"price":       d.Price,
			"detected_at": d.DetectedAt.Format(time.RFC3339),
		}

		_, err := exec.NamedExecContext(ctx, query, row)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed: detections.id") {
				return NewStoreError("CreateDetections", "detection", d.ID, "detection with this ID already exists", ErrDuplicateID)
			}
			if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
				return NewStoreError("CreateDetections", "detection", d.ID, "scan not found", ErrForeignKey)
			}
			return NewStoreError("CreateDetections", "detection", d.ID, err.Error(), err)
		}
	}

	return nil
}

func listDetectionsByScan(ctx context.Context, exec executor, scanID string, opts ListOptions) ([]domain.Detection, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM detections WHERE scan_id = ? ORDER BY symbol ASC, bar_time ASC LIMIT ? OFFSET ?`

	var rows []detectionRow
	err := exec.SelectContext(ctx, &rows, query, scanID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListDetectionsByScan", "detection", "", err.Error(), err)
	}

	detections := make([]domain.Detection, 0, len(rows))
	for _, row := range rows {
		detections = append(detections, *rowToDetection(&row))
	}

	return detections, nil
}

func listDetectionsBySymbol(ctx context.Context, exec executor, symbol string, opts ListOptions) ([]domain.Detection, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM detections WHERE symbol = ? ORDER BY detected_at DESC, bar_time DESC LIMIT ? OFFSET ?`

	var rows []detectionRow
	err := exec.SelectContext(ctx, &rows, query, symbol, opts.Limit, opts.Offset)
	if err != nil {
		return nil, NewStoreError("ListDetectionsBySymbol", "detection", "", err.Error(), err)
	}

	detections := make([]domain.Detection, 0, len(rows))
	for _, row := range rows {
		detections = append(detections, *rowToDetection(&row))
	}

	return detections, nil
}

// =============================================================================
// Row Conversion Functions
// =============================================================================

// rowToWatchlist converts a database row to a domain.Watchlist.
func rowToWatchlist(row *watchlistRow) (*domain.Watchlist, error) {
	createdAt, _ := time.Parse(time.RFC3339, row.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, row.UpdatedAt)

	var symbols []string
	if row.Symbols != nil && *row.Symbols != "" && *row.Symbols != "null" {
		if err := json.Unmarshal([]byte(*row.Symbols), &symbols); err != nil {
			return nil, NewStoreError("rowToWatchlist", "watchlist", row.ID, "failed to parse symbols", ErrInvalidData)
		}
	}

	return &domain.Watchlist{
		ID:        row.ID,
		Name:      row.Name,
		Slug:      row.Slug,
		Symbols:   symbols,
		Active:    row.Active,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// rowToScan converts a database row to a domain.Scan.
func rowToScan(row *scanRow) (*domain.Scan, error) {
	startedAt, _ := time.Parse(time.RFC3339, row.StartedAt)

	var finishedAt *time.Time
	if row.FinishedAt != nil && *row.FinishedAt != "" {
		t, _ := time.Parse(time.RFC3339, *row.FinishedAt)
		finishedAt = &t
	}

	return &domain.Scan{
		ID:              row.ID,
		Status:          domain.ScanStatus(row.Status),
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		SymbolsScanned:  row.SymbolsScanned,
		DetectionsFound: row.DetectionsFound,
		Error:           row.ErrorMessage,
	}, nil
}

// rowToDetection converts a database row to a domain.Detection.
func rowToDetection(row *detectionRow) *domain.Detection {
	barTime, _ := time.Parse(time.RFC3339, row.BarTime)
	detectedAt, _ := time.Parse(time.RFC3339, row.DetectedAt)

	return &domain.Detection{
		ID:         row.ID,
		ScanID:     row.ScanID,
		Symbol:     row.Symbol,
		Detector:   row.Detector,
		Pattern:    row.Pattern,
		BarTime:    barTime,
		Price:      row.Price,
		DetectedAt: detectedAt,
	}
}
