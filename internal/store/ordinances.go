package store

import (
	"database/sql"
	"time"

	"github.com/kgodwin/civtrace/internal/types"
)

// GetOrdinanceByNumber returns the ordinance with the given business key,
// or nil if absent.
func (s *Store) GetOrdinanceByNumber(number string) (*types.Ordinance, error) {
	row := s.db.QueryRow(`
		SELECT id, number, title, status, adopted_date, source_url, summary, provisional
		FROM ordinances WHERE number = ?
	`, number)

	o, err := scanOrdinance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// GetOrdinanceByID returns an ordinance by its internal id, or nil.
func (s *Store) GetOrdinanceByID(id int64) (*types.Ordinance, error) {
	row := s.db.QueryRow(`
		SELECT id, number, title, status, adopted_date, source_url, summary, provisional
		FROM ordinances WHERE id = ?
	`, id)

	o, err := scanOrdinance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// CreateProvisionalOrdinance creates an ordinance row from an agenda
// reference before the ordinance library has confirmed it.
func (s *Store) CreateProvisionalOrdinance(number, title string) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO ordinances (number, title, status, provisional)
		VALUES (?, ?, ?, 1)
	`, number, title, types.OrdIntroduced)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SaveAuthoritativeOrdinance upserts an ordinance from the codified
// library. Number is the merge key: an earlier provisional row is
// corrected in place (title, source URL, provisional flag), never
// duplicated. Status and adopted_date are left to the linker.
func (s *Store) SaveAuthoritativeOrdinance(number, title, sourceURL string) error {
	_, err := s.db.Exec(`
		INSERT INTO ordinances (number, title, status, source_url, provisional)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(number) DO UPDATE SET
			title = excluded.title,
			source_url = excluded.source_url,
			provisional = 0
	`, number, title, types.OrdIntroduced, sourceURL)
	return err
}

// SaveOrdinanceSummary attaches summarizer output to an ordinance.
func (s *Store) SaveOrdinanceSummary(id int64, summary string) error {
	_, err := s.db.Exec(`UPDATE ordinances SET summary = ? WHERE id = ?`, summary, id)
	return err
}

// LinkOrdinanceMeeting records one action for an ordinance at a meeting.
// The link table is append-only per (ordinance, meeting, action) triple;
// re-linking an already-recorded action is a no-op. Returns whether a row
// was actually inserted.
func (s *Store) LinkOrdinanceMeeting(ordinanceID int64, meetingID string, action types.Action) (bool, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO ordinance_meeting_links (ordinance_id, meeting_id, action)
		VALUES (?, ?, ?)
	`, ordinanceID, meetingID, action)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DatedLink is a recorded link joined with its meeting's date, the input
// to lifecycle status recomputation.
type DatedLink struct {
	Action      types.Action
	MeetingID   string
	MeetingDate time.Time
}

// OrdinanceLinks returns all recorded actions for an ordinance ordered by
// meeting date.
func (s *Store) OrdinanceLinks(ordinanceID int64) ([]DatedLink, error) {
	rows, err := s.db.Query(`
		SELECT l.action, l.meeting_id, m.date
		FROM ordinance_meeting_links l
		JOIN meetings m ON l.meeting_id = m.id
		WHERE l.ordinance_id = ?
		ORDER BY m.date
	`, ordinanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []DatedLink
	for rows.Next() {
		var l DatedLink
		if err := rows.Scan(&l.Action, &l.MeetingID, &l.MeetingDate); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// CountOrdinanceLinks returns the number of link rows for an ordinance.
func (s *Store) CountOrdinanceLinks(ordinanceID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM ordinance_meeting_links WHERE ordinance_id = ?
	`, ordinanceID).Scan(&n)
	return n, err
}

// UpdateOrdinanceStatus writes a recomputed status and adoption date.
func (s *Store) UpdateOrdinanceStatus(id int64, status types.OrdinanceStatus, adoptedDate *time.Time) error {
	_, err := s.db.Exec(`
		UPDATE ordinances SET status = ?, adopted_date = ? WHERE id = ?
	`, status, nullTime(adoptedDate), id)
	return err
}

// ListOrdinances returns all ordinances ordered by number.
func (s *Store) ListOrdinances() ([]types.Ordinance, error) {
	rows, err := s.db.Query(`
		SELECT id, number, title, status, adopted_date, source_url, summary, provisional
		FROM ordinances ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ords []types.Ordinance
	for rows.Next() {
		o, err := scanOrdinance(rows)
		if err != nil {
			return nil, err
		}
		ords = append(ords, *o)
	}
	return ords, rows.Err()
}

func scanOrdinance(row rowScanner) (*types.Ordinance, error) {
	var o types.Ordinance
	var title, sourceURL, summary sql.NullString
	var adopted sql.NullTime
	err := row.Scan(&o.ID, &o.Number, &title, &o.Status, &adopted, &sourceURL, &summary, &o.Provisional)
	if err != nil {
		return nil, err
	}
	o.Title = title.String
	o.SourceURL = sourceURL.String
	o.Summary = summary.String
	if adopted.Valid {
		t := adopted.Time
		o.AdoptedDate = &t
	}
	return &o, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
