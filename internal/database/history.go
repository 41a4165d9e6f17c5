package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/siteicons/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "siteicons.db"

// storedTimeLayout is fixed width so stored timestamps sort as text.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a requested discovery does not exist.
var ErrNotFound = errors.New("discovery not found")

// HistoryDB provides SQLite-based storage for discovery reports.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS discoveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		date_scanned TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		fast INTEGER NOT NULL,
		icon_count INTEGER NOT NULL,
		best_icon TEXT,
		fingerprint TEXT NOT NULL,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_discoveries_site ON discoveries(site);
	CREATE INDEX IF NOT EXISTS idx_discoveries_date ON discoveries(date_scanned);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Fingerprint returns the hex SHA3-256 of the icon list. Two discoveries
// with the same icons in the same order share a fingerprint.
func Fingerprint(icons []model.Icon) string {
	lines := make([]string, len(icons))
	for i, icon := range icons {
		lines[i] = icon.String()
	}
	sum := sha3.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// SaveDiscovery stores report and returns its ID.
func (h *HistoryDB) SaveDiscovery(ctx context.Context, report *model.DiscoveryReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	var best string
	if icon, ok := report.Best(); ok {
		best = icon.String()
	}

	query := `
	INSERT INTO discoveries (site, date_scanned, duration_ms, fast, icon_count, best_icon, fingerprint, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := h.db.ExecContext(ctx, query,
		report.Site,
		report.DateScanned.UTC().Format(storedTimeLayout),
		report.Duration.Milliseconds(),
		report.Fast,
		len(report.Icons),
		best,
		Fingerprint(report.Icons),
		report.Error,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save discovery: %w", err)
	}

	return result.LastInsertId()
}

// ListSites returns every site with stored discoveries.
func (h *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT site FROM discoveries ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// DiscoveryRecord summarises one stored discovery without its icons.
type DiscoveryRecord struct {
	ID          int64
	Site        string
	DateScanned time.Time
	Duration    time.Duration
	Fast        bool
	IconCount   int
	BestIcon    string
	Fingerprint string
	Error       string

	// Changed is set when the icons differ from the previous discovery of
	// the same site. It is never set on the oldest discovery.
	Changed bool
}

// GetHistory returns the discoveries of site, newest first.
func (h *HistoryDB) GetHistory(ctx context.Context, site string) ([]DiscoveryRecord, error) {
	query := `
	SELECT id, site, date_scanned, duration_ms, fast, icon_count, best_icon, fingerprint, error
	FROM discoveries
	WHERE site = ?
	ORDER BY date_scanned DESC, id DESC
	`

	rows, err := h.db.QueryContext(ctx, query, site)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []DiscoveryRecord
	for rows.Next() {
		var rec DiscoveryRecord
		var timestamp string
		var durationMS int64
		var best, errText sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Site, &timestamp, &durationMS, &rec.Fast,
			&rec.IconCount, &best, &rec.Fingerprint, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan discovery: %w", err)
		}

		rec.DateScanned = parseTimestamp(timestamp)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.BestIcon = best.String
		rec.Error = errText.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range len(records) - 1 {
		records[i].Changed = records[i].Fingerprint != records[i+1].Fingerprint
	}
	return records, nil
}

// GetDiscovery returns the stored report with the given ID.
func (h *HistoryDB) GetDiscovery(ctx context.Context, id int64) (*model.DiscoveryReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM discoveries WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discovery: %w", err)
	}

	var report model.DiscoveryReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with each known format, returning the zero time if
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
