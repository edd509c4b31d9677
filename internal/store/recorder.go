package store

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Recorder stores every payload it is sent as a frame of one session.
// It does not own the Store.
type Recorder struct {
	store   *Store
	session Session

	mu     sync.Mutex
	seq    int64
	closed bool
}

// NewRecorder starts a session for the given tracker kind. config is kept
// verbatim alongside the session.
func NewRecorder(s *Store, tracker, config string) (*Recorder, error) {
	sess := Session{Tracker: tracker, Config: config}
	if err := s.Sessions().Create(&sess); err != nil {
		return nil, errors.Wrap(err, "create session")
	}
	return &Recorder{store: s, session: sess}, nil
}

// SessionID returns the ID of the session being recorded.
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// Send appends payload as the next frame.
func (r *Recorder) Send(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("recorder closed")
	}

	f := Frame{
		SessionID: r.session.ID,
		Seq:       r.seq,
		Payload:   string(payload),
		SentAt:    time.Now(),
	}
	if err := r.store.Frames().Append(&f); err != nil {
		return errors.Wrapf(err, "record frame %d", r.seq)
	}
	r.seq++
	return nil
}

// Close ends the session. Later sends fail.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.store.Sessions().End(r.session.ID, r.seq, time.Now())
}
