package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/graphview"
	"diarygraph/backend/internal/layout"
	apperrors "diarygraph/backend/pkg/errors"
	"diarygraph/backend/pkg/logger"
)

// Session is one open graph view. All access to the controller goes
// through Do so input never interleaves with a frame tick.
type Session struct {
	ID     string
	UserID string

	mu       sync.Mutex
	ctrl     *graphview.Controller
	cancel   context.CancelFunc
	lastUsed time.Time
	now      func() time.Time
}

// Do runs fn with the session lock held
func (s *Session) Do(fn func(ctrl *graphview.Controller)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	fn(s.ctrl)
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// OpenRequest configures a new session
type OpenRequest struct {
	Mode          string             `json:"mode"`
	Width         float64            `json:"width"`
	Height        float64            `json:"height"`
	ForceDetailed bool               `json:"force_detailed"`
	Filters       *diary.FilterState `json:"filters"`
}

// Manager owns the open sessions and their frame loops
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	source       diary.Source
	opts         graphview.Options
	tickInterval time.Duration
	ttl          time.Duration
	baseCtx      context.Context
	stop         context.CancelFunc
	now          func() time.Time
	logger       *zap.Logger
}

// NewManager creates a session manager. A zero tickInterval disables the
// background frame loop so callers tick explicitly.
func NewManager(source diary.Source, opts graphview.Options, tickInterval, ttl time.Duration) *Manager {
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		sessions:     make(map[string]*Session),
		source:       source,
		opts:         opts,
		tickInterval: tickInterval,
		ttl:          ttl,
		baseCtx:      ctx,
		stop:         stop,
		now:          time.Now,
		logger:       logger.Named("sessions"),
	}
}

// Open fetches userID's entries and starts a graph view over them
func (m *Manager) Open(ctx context.Context, userID string, req OpenRequest) (*Session, error) {
	entries, err := m.source.Entries(ctx, userID)
	if err != nil {
		return nil, err
	}

	opts := m.opts
	if req.Mode != "" {
		mode, err := layout.ParseDimension(req.Mode)
		if err != nil {
			return nil, apperrors.NewBaseError(apperrors.ErrorTypeNavigation, err.Error(), nil)
		}
		opts.DefaultMode = mode
	}
	if req.Width > 0 && req.Height > 0 {
		opts.Width, opts.Height = req.Width, req.Height
	}

	id := uuid.NewString()
	log := m.logger.With(zap.String("session_id", id), zap.String("user_id", userID))
	history := func(filters diary.FilterState) {
		log.Info("History requested for selection",
			zap.Strings("tags", filters.Tags),
			zap.Strings("moods", filters.Moods),
			zap.String("start", filters.DateRange.Start),
			zap.String("end", filters.DateRange.End),
		)
	}

	ctrl := graphview.NewController(entries, diary.DefaultFilter, history, opts)
	if req.Filters != nil {
		ctrl.SetFilters(*req.Filters)
	}
	if req.ForceDetailed {
		ctrl.SetForceDetailed(true)
	}

	session := &Session{
		ID:       id,
		UserID:   userID,
		ctrl:     ctrl,
		lastUsed: m.now(),
		now:      m.now,
	}

	runCtx, cancel := context.WithCancel(m.baseCtx)
	session.cancel = cancel
	if m.tickInterval > 0 {
		go graphview.NewRunner(ctrl, &session.mu, m.tickInterval).Run(runCtx)
	}

	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()

	log.Info("Graph session opened", zap.Int("entries", len(entries)))
	return session, nil
}

// Get returns an open session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperrors.NewSessionNotFound(id)
	}
	return s, nil
}

// Close stops the session's frame loop and forgets it
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return apperrors.NewSessionNotFound(id)
	}
	s.cancel()
	m.logger.Info("Graph session closed", zap.String("session_id", id))
	return nil
}

// Len returns the number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		_ = m.Close(id)
	}
	if len(idle) > 0 {
		m.logger.Info("Idle sessions swept", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// RunSweeper sweeps every interval until ctx is done
func (m *Manager) RunSweeper(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Shutdown closes every session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	n := len(m.sessions)
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	m.stop()
	m.logger.Info("Session manager stopped", zap.Int("closed", n))
}
