package store

import (
	"database/sql"
	"time"
)

// Frame is one recorded payload.
type Frame struct {
	ID        int64
	SessionID string
	Seq       int64
	Payload   string
	SentAt    time.Time
}

// FrameRepository provides access to recorded frames.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append inserts a frame and sets its ID.
func (r *FrameRepository) Append(f *Frame) error {
	result, err := r.db.Exec(
		`INSERT INTO frames (session_id, seq, payload, sent_at) VALUES (?, ?, ?, ?)`,
		f.SessionID, f.Seq, f.Payload, f.SentAt,
	)
	if err != nil {
		return err
	}
	f.ID, err = result.LastInsertId()
	return err
}

// List returns a session's frames in sequence order.
func (r *FrameRepository) List(sessionID string) ([]Frame, error) {
	var frames []Frame
	err := r.Each(sessionID, func(f Frame) error {
		frames = append(frames, f)
		return nil
	})
	return frames, err
}

// Each calls fn for every frame of a session in sequence order, stopping at
// the first error.
func (r *FrameRepository) Each(sessionID string, fn func(Frame) error) error {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, payload, sent_at
		 FROM frames
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f Frame
		if err := rows.Scan(&f.ID, &f.SessionID, &f.Seq, &f.Payload, &f.SentAt); err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of frames recorded for a session.
func (r *FrameRepository) Count(sessionID string) (int64, error) {
	var n int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM frames WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
