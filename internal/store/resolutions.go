package store

import (
	"database/sql"

	"github.com/kgodwin/civtrace/internal/types"
)

// SaveResolution upserts a resolution by its number. Re-extraction
// updates status, dates, and meeting pointer on the existing row; it
// never duplicates.
func (s *Store) SaveResolution(r *types.Resolution) error {
	_, err := s.db.Exec(`
		INSERT INTO resolutions (number, title, status, introduced_date, adopted_date, meeting_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET
			title = excluded.title,
			status = excluded.status,
			introduced_date = excluded.introduced_date,
			adopted_date = excluded.adopted_date,
			meeting_id = excluded.meeting_id
	`, r.Number, r.Title, r.Status, nullTime(r.IntroducedDate), nullTime(r.AdoptedDate), r.MeetingID)
	return err
}

// GetResolutionByNumber returns the resolution with the given business
// key, or nil if absent.
func (s *Store) GetResolutionByNumber(number string) (*types.Resolution, error) {
	row := s.db.QueryRow(`
		SELECT id, number, title, status, introduced_date, adopted_date, meeting_id, summary
		FROM resolutions WHERE number = ?
	`, number)

	r, err := scanResolution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// ListResolutions returns all resolutions ordered by number.
func (s *Store) ListResolutions() ([]types.Resolution, error) {
	rows, err := s.db.Query(`
		SELECT id, number, title, status, introduced_date, adopted_date, meeting_id, summary
		FROM resolutions ORDER BY number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Resolution
	for rows.Next() {
		r, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// CountResolutions returns the number of resolution rows.
func (s *Store) CountResolutions() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM resolutions`).Scan(&n)
	return n, err
}

func scanResolution(row rowScanner) (*types.Resolution, error) {
	var r types.Resolution
	var title, meetingID, summary sql.NullString
	var introduced, adopted sql.NullTime
	err := row.Scan(&r.ID, &r.Number, &title, &r.Status, &introduced, &adopted, &meetingID, &summary)
	if err != nil {
		return nil, err
	}
	r.Title = title.String
	r.MeetingID = meetingID.String
	r.Summary = summary.String
	if introduced.Valid {
		t := introduced.Time
		r.IntroducedDate = &t
	}
	if adopted.Valid {
		t := adopted.Time
		r.AdoptedDate = &t
	}
	return &r, nil
}
