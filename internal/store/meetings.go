package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kgodwin/civtrace/internal/types"
)

// SaveMeeting inserts or updates a meeting by its external-id-derived key.
func (s *Store) SaveMeeting(m *types.Meeting) error {
	_, err := s.db.Exec(`
		INSERT INTO meetings (id, event_id, date, title, type, location, status,
			agenda_url, packet_url, minutes_url, details, summary, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			title = excluded.title,
			type = excluded.type,
			location = excluded.location,
			status = excluded.status,
			agenda_url = excluded.agenda_url,
			packet_url = excluded.packet_url,
			minutes_url = excluded.minutes_url,
			details = excluded.details,
			scraped_at = excluded.scraped_at
	`, m.ID, m.EventID, m.Date, m.Title, m.Type, m.Location, m.Status,
		m.AgendaURL, m.PacketURL, m.MinutesURL, m.Details, m.Summary, m.ScrapedAt)

	return err
}

// ReplaceAgendaItems swaps out a meeting's agenda wholesale in one
// transaction. Items are owned by their meeting; delete-then-insert keeps
// repeated scrapes from accumulating duplicates when the source reorders
// or renumbers lines.
func (s *Store) ReplaceAgendaItems(meetingID string, items []types.AgendaItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM agenda_items WHERE meeting_id = ?`, meetingID); err != nil {
		return fmt.Errorf("clearing agenda for %s: %w", meetingID, err)
	}

	for _, it := range items {
		_, err := tx.Exec(`
			INSERT INTO agenda_items (meeting_id, order_num, title, item_type, reference_number, outcome)
			VALUES (?, ?, ?, ?, ?, ?)
		`, meetingID, it.OrderNum, it.Title, it.Type, it.ReferenceNumber, it.Outcome)
		if err != nil {
			return fmt.Errorf("inserting agenda item %d for %s: %w", it.OrderNum, meetingID, err)
		}
	}

	return tx.Commit()
}

// GetMeeting returns a meeting by id, or nil if absent.
func (s *Store) GetMeeting(id string) (*types.Meeting, error) {
	row := s.db.QueryRow(`
		SELECT id, event_id, date, title, type, location, status,
			agenda_url, packet_url, minutes_url, details, summary, scraped_at
		FROM meetings WHERE id = ?
	`, id)

	m, err := scanMeeting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListMeetings returns all meetings ordered by date.
func (s *Store) ListMeetings() ([]types.Meeting, error) {
	rows, err := s.db.Query(`
		SELECT id, event_id, date, title, type, location, status,
			agenda_url, packet_url, minutes_url, details, summary, scraped_at
		FROM meetings ORDER BY date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []types.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, *m)
	}
	return meetings, rows.Err()
}

// AgendaItems returns a meeting's agenda in official order.
func (s *Store) AgendaItems(meetingID string) ([]types.AgendaItem, error) {
	rows, err := s.db.Query(`
		SELECT meeting_id, order_num, title, item_type, reference_number, outcome
		FROM agenda_items WHERE meeting_id = ? ORDER BY order_num
	`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.AgendaItem
	for rows.Next() {
		var it types.AgendaItem
		var ref, outcome sql.NullString
		if err := rows.Scan(&it.MeetingID, &it.OrderNum, &it.Title, &it.Type, &ref, &outcome); err != nil {
			return nil, err
		}
		it.ReferenceNumber = ref.String
		it.Outcome = outcome.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// ItemWithMeeting joins an agenda item with the meeting context the
// linker and extractor need: the meeting's date and whether minutes are
// published yet.
type ItemWithMeeting struct {
	Item        types.AgendaItem
	MeetingDate time.Time
	MinutesURL  string
}

// ItemsByType returns all agenda items of one classification that carry a
// reference number, joined with their meeting's date and minutes URL.
// Pass meetingID to scope to one meeting, or "" for all.
func (s *Store) ItemsByType(t types.ItemType, meetingID string) ([]ItemWithMeeting, error) {
	q := `
		SELECT ai.meeting_id, ai.order_num, ai.title, ai.item_type, ai.reference_number, ai.outcome,
			m.date, m.minutes_url
		FROM agenda_items ai
		JOIN meetings m ON ai.meeting_id = m.id
		WHERE ai.item_type = ? AND ai.reference_number != ''
	`
	args := []any{t}
	if meetingID != "" {
		q += ` AND ai.meeting_id = ?`
		args = append(args, meetingID)
	}
	q += ` ORDER BY m.date, ai.order_num`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemWithMeeting
	for rows.Next() {
		var iw ItemWithMeeting
		var ref, outcome, minutes sql.NullString
		err := rows.Scan(&iw.Item.MeetingID, &iw.Item.OrderNum, &iw.Item.Title, &iw.Item.Type,
			&ref, &outcome, &iw.MeetingDate, &minutes)
		if err != nil {
			return nil, err
		}
		iw.Item.ReferenceNumber = ref.String
		iw.Item.Outcome = outcome.String
		iw.MinutesURL = minutes.String
		out = append(out, iw)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*types.Meeting, error) {
	var m types.Meeting
	var typ, loc, agenda, packet, minutes, details, summary sql.NullString
	err := row.Scan(&m.ID, &m.EventID, &m.Date, &m.Title, &typ, &loc, &m.Status,
		&agenda, &packet, &minutes, &details, &summary, &m.ScrapedAt)
	if err != nil {
		return nil, err
	}
	m.Type = typ.String
	m.Location = loc.String
	m.AgendaURL = agenda.String
	m.PacketURL = packet.String
	m.MinutesURL = minutes.String
	m.Details = details.String
	m.Summary = summary.String
	return &m, nil
}
