package store

import (
	"database/sql"
	"time"

	"github.com/kgodwin/civtrace/internal/types"
)

// SaveDocument upserts a resolved monthly report by (kind, period). The
// URL column remembers which naming convention worked so future runs can
// go straight to it.
func (s *Store) SaveDocument(d *types.Document) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (kind, period, url, title, doc_date, date_source, summary, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, period) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			doc_date = excluded.doc_date,
			date_source = excluded.date_source,
			summary = excluded.summary,
			fetched_at = excluded.fetched_at
	`, d.Kind, d.Period, d.URL, d.Title, nullTime(d.DocDate), d.DateSource, d.Summary, d.FetchedAt)
	return err
}

// GetDocument returns the stored report for (kind, period), or nil.
func (s *Store) GetDocument(kind, period string) (*types.Document, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, period, url, title, doc_date, date_source, summary, fetched_at
		FROM documents WHERE kind = ? AND period = ?
	`, kind, period)

	var d types.Document
	var title, dateSource, summary sql.NullString
	var docDate sql.NullTime
	err := row.Scan(&d.ID, &d.Kind, &d.Period, &d.URL, &title, &docDate, &dateSource, &summary, &d.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Title = title.String
	d.DateSource = dateSource.String
	d.Summary = summary.String
	if docDate.Valid {
		t := docDate.Time
		d.DocDate = &t
	}
	return &d, nil
}

// RecordFailure journals a per-item scrape or fetch failure so partial
// batches stay diagnosable after the run.
func (s *Store) RecordFailure(source, sourceID, reason string) error {
	_, err := s.db.Exec(`
		INSERT INTO scrape_failures (source, source_id, reason, occurred_at)
		VALUES (?, ?, ?, ?)
	`, source, sourceID, reason, time.Now())
	return err
}
