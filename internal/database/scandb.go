package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/stats"
)

// FileName is the database file name inside the database directory.
const FileName = "ytscan.db"

// ErrNotFound is returned when a database file is required but missing.
var ErrNotFound = errors.New("database not found")

// ScanDB stores scan reports and fetched page metadata in SQLite.
type ScanDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the scan command.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the database in dbDir. Without CreateIfNotExists a missing
// database yields ErrNotFound.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return sdb, nil
}

// Path returns the database file path.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// Close closes the database.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scan reports store complete scan results as JSON
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		type TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		stats_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_target ON scan_reports(target);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);

	-- Pages record the last fetch of every URL
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		target TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		content_hash TEXT,
		size INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pages_target ON pages(target);
	`
	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// StatsSummary is the numeric snapshot of a scan used for comparisons.
// Counts are parsed from the display strings of the report.
type StatsSummary struct {
	Videos        int     `json:"videos"`
	Views         float64 `json:"views"`
	Likes         float64 `json:"likes"`
	Comments      float64 `json:"comments"`
	Subscribers   float64 `json:"subscribers"`
	VideoCount    int     `json:"video_count"`
	HasSubscriber bool    `json:"has_subscribers"`
}

// Summarize computes the stats summary of report.
func Summarize(report *model.ScanReport) StatsSummary {
	var s StatsSummary

	switch {
	case report.Stats != nil:
		s.Videos = report.Stats.TotalVideos
		s.Views = report.Stats.TotalViews
		s.Likes = report.Stats.TotalLikes
		s.Comments = report.Stats.TotalComments
	case report.Video != nil:
		total := stats.Aggregate([]model.VideoRecord{*report.Video})
		s.Videos = total.TotalVideos
		s.Views = total.TotalViews
		s.Likes = total.TotalLikes
		s.Comments = total.TotalComments
	}

	channel := report.Channel
	if channel == nil {
		channel = report.Owner
	}
	if channel != nil {
		s.VideoCount = model.Value(channel.VideoCount)
		if n, ok := stats.ParseCount(model.Value(channel.Subscribers), stats.DefaultUnits); ok {
			s.Subscribers = n
			s.HasSubscriber = true
		}
	}
	return s
}

// SaveScanReport stores report and returns its ID.
func (sdb *ScanDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(Summarize(report))
	if err != nil {
		return 0, fmt.Errorf("failed to serialize stats summary: %w", err)
	}

	query := `
	INSERT INTO scan_reports (target, type, timestamp, success, report_json, stats_summary)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := sdb.db.ExecContext(ctx, query,
		report.Target,
		string(report.Type),
		formatTimestamp(report.DateScanned),
		report.Success,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}
	return result.LastInsertId()
}

// GetLatestScanReport returns the most recent report for target, or nil
// when target was never scanned.
func (sdb *ScanDB) GetLatestScanReport(ctx context.Context, target string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`
	return sdb.queryReport(ctx, query, target)
}

// GetScanReportByID returns the report with the given ID, or nil.
func (sdb *ScanDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	return sdb.queryReport(ctx, `SELECT report_json FROM scan_reports WHERE id = ?`, id)
}

func (sdb *ScanDB) queryReport(ctx context.Context, query string, args ...any) (*model.ScanReport, error) {
	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, args...).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// GetScanHistory returns every report for target, newest first. Rows that
// fail to parse are skipped.
func (sdb *ScanDB) GetScanHistory(ctx context.Context, target string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`
	rows, err := sdb.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// ScanReportMetadata is a history entry without the full report.
type ScanReportMetadata struct {
	ID        int64
	Target    string
	Type      model.ScanType
	Timestamp time.Time
	Success   bool
	Summary   StatsSummary
}

// GetScanHistoryWithMetadata returns the history of target as metadata,
// newest first.
func (sdb *ScanDB) GetScanHistoryWithMetadata(ctx context.Context, target string) ([]ScanReportMetadata, error) {
	query := `
	SELECT id, target, type, timestamp, success, stats_summary
	FROM scan_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`
	rows, err := sdb.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanReportMetadata
	for rows.Next() {
		var (
			meta        ScanReportMetadata
			scanType    string
			timestamp   string
			summaryJSON sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Target, &scanType, &timestamp, &meta.Success, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Type = model.ScanType(scanType)
		meta.Timestamp = parseTimestamp(timestamp)
		if summaryJSON.Valid && summaryJSON.String != "" {
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary) //nolint:errcheck // a bad summary leaves zero values
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// ListTargets returns every scanned target in lexical order.
func (sdb *ScanDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT DISTINCT target FROM scan_reports ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// PageRecord is the stored metadata of a fetched page. The body itself is
// not kept, only its SHA3-256 hash.
type PageRecord struct {
	ID          int64
	URL         string
	Target      string
	FetchedAt   time.Time
	StatusCode  int
	ContentType string
	Title       string
	ContentHash string
	Size        int
}

// UpsertPage records a fetch of page for target. A later fetch of the same
// URL replaces the earlier row. It reports whether the content hash
// differs from the stored one; a first fetch counts as changed.
func (sdb *ScanDB) UpsertPage(ctx context.Context, target string, page *model.Page) (bool, error) {
	previous, err := sdb.GetPage(ctx, page.URL)
	if err != nil {
		return false, err
	}

	query := `
	INSERT INTO pages (url, target, fetched_at, status_code, content_type, title, content_hash, size)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		target = excluded.target,
		fetched_at = excluded.fetched_at,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		content_hash = excluded.content_hash,
		size = excluded.size
	`
	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err = sdb.db.ExecContext(ctx, query,
		page.URL,
		target,
		formatTimestamp(fetchedAt),
		page.StatusCode,
		page.ContentType,
		page.Title,
		page.Hash,
		len(page.Raw),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert page: %w", err)
	}
	return previous == nil || previous.ContentHash != page.Hash, nil
}

// GetPage returns the stored record for url, or nil.
func (sdb *ScanDB) GetPage(ctx context.Context, url string) (*PageRecord, error) {
	query := `
	SELECT id, url, target, fetched_at, status_code, content_type, title, content_hash, size
	FROM pages
	WHERE url = ?
	`
	var (
		record    PageRecord
		fetchedAt string
	)
	err := sdb.db.QueryRowContext(ctx, query, url).Scan(
		&record.ID,
		&record.URL,
		&record.Target,
		&fetchedAt,
		&record.StatusCode,
		&record.ContentType,
		&record.Title,
		&record.ContentHash,
		&record.Size,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	record.FetchedAt = parseTimestamp(fetchedAt)
	return &record, nil
}

// formatTimestamp stores times in UTC with a fixed width so that text
// ordering matches time ordering.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// timestampFormats are the layouts parseTimestamp accepts, most specific first.
var timestampFormats = []string{
	"2006-01-02T15:04:05.000000000Z",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a stored timestamp, returning the zero time when no
// layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
