package imagepkg

import (
	"context"
	"sync"
	"time"
)

// Session is one attendee's composition in progress. Preview and Export
// read the same state, so an export always matches the last preview.
type Session struct {
	Token string

	mu         sync.Mutex
	campaignID string
	frame      *FrameAsset
	source     *SourceImage
	transform  Transform
	text       *TextOverlay
	sourceGen  uint64
}

func NewSession(token string) *Session {
	return &Session{Token: token, transform: DefaultTransform()}
}

// SetSource runs load outside the session lock and installs its result
// unless another SetSource started meanwhile, in which case the result is
// dropped and ErrSuperseded returned. On error the current photo is kept.
func (s *Session) SetSource(ctx context.Context, load func(context.Context) (*SourceImage, error)) error {
	s.mu.Lock()
	s.sourceGen++
	gen := s.sourceGen
	s.mu.Unlock()

	img, err := load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.sourceGen {
		return ErrSuperseded
	}
	s.source = img
	// a new photo starts from the centered default
	s.transform = DefaultTransform()
	return nil
}

// Update applies fn to the session's campaign, frame, transform and text
// under a single lock, so concurrent partial edits never overwrite each
// other. Source is read-only here; photos change through SetSource. Callers
// clamp user input before storing it.
func (s *Session) Update(fn func(st *Snapshot)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.snapshotLocked()
	fn(&st)
	s.campaignID = st.CampaignID
	s.frame = st.Frame
	s.transform = st.Transform
	s.text = st.Text
	return s.snapshotLocked()
}

// Snapshot is a consistent copy of the session's render inputs.
type Snapshot struct {
	CampaignID string
	Source     *SourceImage
	Frame      *FrameAsset
	Transform  Transform
	Text       *TextOverlay
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		CampaignID: s.campaignID,
		Source:     s.source,
		Frame:      s.frame,
		Transform:  s.transform,
	}
	if s.text != nil {
		t := *s.text
		snap.Text = &t
	}
	return snap
}

// Preview renders at PreviewTarget and returns PNG bytes.
func (s *Session) Preview() ([]byte, error) {
	snap := s.Snapshot()
	img, err := Render(PreviewTarget, snap.Source, snap.Frame, snap.Transform, snap.Text)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// Export renders at PreviewTarget scaled by k with the preview's transform.
func (s *Session) Export(k int) ([]byte, Snapshot, error) {
	snap := s.Snapshot()
	data, err := ExportAtResolution(k, snap.Source, snap.Frame, snap.Transform, snap.Text)
	return data, snap, err
}

type sessionEntry struct {
	session  *Session
	lastUsed time.Time
}

// SessionStore keeps sessions by token and drops those idle longer than ttl.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Get returns the session for token, creating it when missing.
func (st *SessionStore) Get(token string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	st.evictLocked(now)

	e, ok := st.sessions[token]
	if !ok {
		e = &sessionEntry{session: NewSession(token)}
		st.sessions[token] = e
	}
	e.lastUsed = now
	return e.session
}

func (st *SessionStore) Delete(token string) {
	st.mu.Lock()
	delete(st.sessions, token)
	st.mu.Unlock()
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *SessionStore) evictLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for token, e := range st.sessions {
		if now.Sub(e.lastUsed) > st.ttl {
			delete(st.sessions, token)
		}
	}
}
