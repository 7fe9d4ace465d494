package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gapradar/gapradar/pkg/source"
)

// Snapshot records point-in-time engagement counts for a record, so sample
// growth can be inspected over time.
type Snapshot struct {
	ID        int64     `db:"id"`
	RecordID  string    `db:"record_id"`
	Views     int       `db:"views"`
	Comments  int       `db:"comments"`
	CheckedAt time.Time `db:"checked_at"`
}

// Opportunity is the scored demand picture for one niche.
type Opportunity struct {
	ID             int64                         `db:"id" json:"id"`
	Niche          string                        `db:"niche" json:"niche"`
	AppScore       int                           `db:"app_score" json:"app_score"`
	ContentScore   int                           `db:"content_score" json:"content_score"`
	AdScore        int                           `db:"ad_score" json:"ad_score"`
	Overall        int                           `db:"overall" json:"overall"`
	AppSamples     int                           `db:"app_samples" json:"app_samples"`
	ContentSamples int                           `db:"content_samples" json:"content_samples"`
	AdSamples      int                           `db:"ad_samples" json:"ad_samples"`
	BreakdownJSON  string                        `db:"breakdown" json:"-"`
	Breakdown      map[string]map[string]float64 `db:"-" json:"breakdown,omitempty"`
	FirstSeen      time.Time                     `db:"first_seen" json:"first_seen"`
	LastUpdated    time.Time                     `db:"last_updated" json:"last_updated"`
	Alerted        bool                          `db:"alerted" json:"alerted"`
}

// ListOpts controls record listing.
type ListOpts struct {
	Niche  string
	Source source.SourceType
	Kind   source.Kind
	Since  time.Time
	Limit  int
}

// OpportunityListOpts controls opportunity listing.
type OpportunityListOpts struct {
	MinScore  int
	Limit     int
	Unalerted bool
}

// Store is the persistence interface.
type Store interface {
	UpsertRecord(ctx context.Context, r *source.Record) error
	UpsertRecords(ctx context.Context, records []source.Record) error
	GetRecord(ctx context.Context, id string) (*source.Record, error)
	ListRecords(ctx context.Context, opts ListOpts) ([]source.Record, error)
	CountRecordsBySource(ctx context.Context) (map[source.SourceType]int, error)

	AddSnapshot(ctx context.Context, recordID string, views, comments int) error
	GetSnapshots(ctx context.Context, recordID string, since time.Time) ([]Snapshot, error)

	UpsertOpportunity(ctx context.Context, o *Opportunity) error
	GetOpportunity(ctx context.Context, niche string) (*Opportunity, error)
	ListOpportunities(ctx context.Context, opts OpportunityListOpts) ([]Opportunity, error)
	MarkAlerted(ctx context.Context, id int64) error

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertRecord(ctx context.Context, r *source.Record) error {
	extraJSON, _ := json.Marshal(r.Extra)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (id, source, niche, kind, external_id, title, text, url, author,
			rating, views, duration, installs, score, comments, advertiser, days_active,
			impressions, published_at, collected_at, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rating = excluded.rating,
			views = excluded.views,
			duration = excluded.duration,
			installs = excluded.installs,
			score = excluded.score,
			comments = excluded.comments,
			days_active = excluded.days_active,
			impressions = excluded.impressions,
			collected_at = excluded.collected_at,
			extra = excluded.extra
	`, r.ID, r.Source, r.Niche, r.Kind, r.ExternalID, r.Title, r.Text, r.URL, r.Author,
		r.Rating, r.Views, r.Duration, r.Installs, r.Score, r.Comments, r.Advertiser,
		r.DaysActive, r.Impressions, r.PublishedAt, r.CollectedAt, string(extraJSON))
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertRecords(ctx context.Context, records []source.Record) error {
	for i := range records {
		if err := s.UpsertRecord(ctx, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*source.Record, error) {
	var r source.Record
	err := s.db.GetContext(ctx, &r, `SELECT * FROM records WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	decodeExtra(&r)
	return &r, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, opts ListOpts) ([]source.Record, error) {
	query := `SELECT * FROM records WHERE 1=1`
	var args []any

	if opts.Niche != "" {
		query += ` AND niche = ?`
		args = append(args, opts.Niche)
	}
	if opts.Source != "" {
		query += ` AND source = ?`
		args = append(args, opts.Source)
	}
	if opts.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, opts.Kind)
	}
	if !opts.Since.IsZero() {
		query += ` AND collected_at >= ?`
		args = append(args, opts.Since)
	}

	query += ` ORDER BY collected_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var records []source.Record
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	for i := range records {
		decodeExtra(&records[i])
	}
	return records, nil
}

func (s *SQLiteStore) CountRecordsBySource(ctx context.Context) (map[source.SourceType]int, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT source, COUNT(*) FROM records GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[source.SourceType]int)
	for rows.Next() {
		var src string
		var count int
		if err := rows.Scan(&src, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[source.SourceType(src)] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) AddSnapshot(ctx context.Context, recordID string, views, comments int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sample_snapshots (record_id, views, comments, checked_at)
		VALUES (?, ?, ?, ?)
	`, recordID, views, comments, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add snapshot %s: %w", recordID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSnapshots(ctx context.Context, recordID string, since time.Time) ([]Snapshot, error) {
	var snaps []Snapshot
	err := s.db.SelectContext(ctx, &snaps, `
		SELECT * FROM sample_snapshots
		WHERE record_id = ? AND checked_at >= ?
		ORDER BY checked_at ASC
	`, recordID, since)
	if err != nil {
		return nil, fmt.Errorf("get snapshots %s: %w", recordID, err)
	}
	return snaps, nil
}

func (s *SQLiteStore) UpsertOpportunity(ctx context.Context, o *Opportunity) error {
	breakdownJSON, _ := json.Marshal(o.Breakdown)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opportunities (niche, app_score, content_score, ad_score, overall,
			app_samples, content_samples, ad_samples, breakdown, first_seen, last_updated, alerted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(niche) DO UPDATE SET
			app_score = excluded.app_score,
			content_score = excluded.content_score,
			ad_score = excluded.ad_score,
			overall = excluded.overall,
			app_samples = excluded.app_samples,
			content_samples = excluded.content_samples,
			ad_samples = excluded.ad_samples,
			breakdown = excluded.breakdown,
			last_updated = excluded.last_updated
	`, o.Niche, o.AppScore, o.ContentScore, o.AdScore, o.Overall,
		o.AppSamples, o.ContentSamples, o.AdSamples, string(breakdownJSON),
		o.FirstSeen, o.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert opportunity %s: %w", o.Niche, err)
	}

	// Read back the row ID and preserved first_seen for the caller.
	row := s.db.QueryRowxContext(ctx,
		`SELECT id, first_seen, alerted FROM opportunities WHERE niche = ?`, o.Niche)
	return row.Scan(&o.ID, &o.FirstSeen, &o.Alerted)
}

func (s *SQLiteStore) GetOpportunity(ctx context.Context, niche string) (*Opportunity, error) {
	var o Opportunity
	err := s.db.GetContext(ctx, &o, `SELECT * FROM opportunities WHERE niche = ?`, niche)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity %s: %w", niche, err)
	}
	decodeBreakdown(&o)
	return &o, nil
}

func (s *SQLiteStore) ListOpportunities(ctx context.Context, opts OpportunityListOpts) ([]Opportunity, error) {
	query := `SELECT * FROM opportunities WHERE overall >= ?`
	args := []any{opts.MinScore}

	if opts.Unalerted {
		query += ` AND alerted = 0`
	}
	query += ` ORDER BY overall DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	var opportunities []Opportunity
	if err := s.db.SelectContext(ctx, &opportunities, query, args...); err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	for i := range opportunities {
		decodeBreakdown(&opportunities[i])
	}
	return opportunities, nil
}

func (s *SQLiteStore) MarkAlerted(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE opportunities SET alerted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark alerted %d: %w", id, err)
	}
	return nil
}

func decodeExtra(r *source.Record) {
	if r.ExtraJSON != "" {
		_ = json.Unmarshal([]byte(r.ExtraJSON), &r.Extra)
	}
}

func decodeBreakdown(o *Opportunity) {
	if o.BreakdownJSON != "" {
		_ = json.Unmarshal([]byte(o.BreakdownJSON), &o.Breakdown)
	}
}
