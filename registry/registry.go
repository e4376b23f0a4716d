// Package registry implements the driver registry (spec component C7):
// a board-id -> driver constructor dispatch table, and the set of
// currently active sessions that constructor produces. A session is
// identified by board-id plus the transport identity in Params, not by
// preset — a single session answers calls for every preset its board
// descriptor supports, matching the driver contract's own per-preset
// addressing on top of one shared session.
package registry

import (
	"sync"

	"github.com/c360/boardkit/board"
	"github.com/c360/boardkit/classify"
	"github.com/c360/boardkit/status"
	"github.com/google/uuid"
)

// Factory constructs a board.Driver for one board-id from its Params and
// shared dependencies. No I/O happens until the returned driver's
// PrepareSession is called.
type Factory func(p Params, deps board.Dependencies) (board.Driver, error)

// Registry owns the board-id -> Factory dispatch table and the map of
// currently active sessions. The zero value is not usable; construct
// with New.
type Registry struct {
	mu sync.RWMutex

	factories  map[board.ID]Factory
	sessions   map[string]board.Driver
	sessionIDs map[string]uuid.UUID
}

// New constructs an empty registry. Use RegisterFactory (or
// RegisterDefaultFactories) to populate the dispatch table before
// accepting sessions.
func New() *Registry {
	return &Registry{
		factories:  make(map[board.ID]Factory),
		sessions:   make(map[string]board.Driver),
		sessionIDs: make(map[string]uuid.UUID),
	}
}

// RegisterFactory adds or replaces the constructor used for boardID.
func (r *Registry) RegisterFactory(boardID board.ID, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[boardID] = f
}

// session looks up the active session for p, returning BOARD_NOT_CREATED_ERROR
// if prepareSession was never called for this identity.
func (r *Registry) session(p Params) (board.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.sessions[p.key()]
	if !ok {
		return nil, board.WithStatus(status.BoardNotCreatedError, classify.ErrNotStarted)
	}
	return d, nil
}

// PrepareSession constructs (if needed) and prepares the session
// identified by p. Calling it again for the same identity is a no-op,
// matching the underlying driver's own idempotent PrepareSession.
func (r *Registry) PrepareSession(p Params, deps board.Dependencies) error {
	r.mu.Lock()
	d, exists := r.sessions[p.key()]
	if !exists {
		factory, ok := r.factories[p.BoardID]
		if !ok {
			r.mu.Unlock()
			return board.WithStatus(status.BoardNotCreatedError,
				classify.WrapInvalid(classify.ErrMissingConfig, "registry", "PrepareSession", "no factory registered for this board id"))
		}
		var err error
		d, err = factory(p, deps)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		sessionID := uuid.New()
		r.sessions[p.key()] = d
		r.sessionIDs[p.key()] = sessionID
		deps.GetLogger().Info("session created", "board_id", p.BoardID, "session_id", sessionID)
	}
	r.mu.Unlock()
	return d.PrepareSession()
}

// SessionID returns the correlation id assigned to the active session
// identified by p, for tagging logs and metrics across calls. It
// returns BOARD_NOT_CREATED_ERROR if no session is active for p.
func (r *Registry) SessionID(p Params) (uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.sessionIDs[p.key()]
	if !ok {
		return uuid.UUID{}, board.WithStatus(status.BoardNotCreatedError, classify.ErrNotStarted)
	}
	return id, nil
}

// StartStream proxies to the active session's StartStream.
func (r *Registry) StartStream(p Params, bufferSize int, streamerURI string) error {
	d, err := r.session(p)
	if err != nil {
		return err
	}
	return d.StartStream(bufferSize, streamerURI)
}

// StopStream proxies to the active session's StopStream.
func (r *Registry) StopStream(p Params) error {
	d, err := r.session(p)
	if err != nil {
		return err
	}
	return d.StopStream()
}

// ReleaseSession tears down the active session and removes it from the
// registry, so a later PrepareSession for the same identity constructs a
// fresh driver instance.
func (r *Registry) ReleaseSession(p Params) error {
	r.mu.Lock()
	d, ok := r.sessions[p.key()]
	if ok {
		delete(r.sessions, p.key())
		delete(r.sessionIDs, p.key())
	}
	r.mu.Unlock()
	if !ok {
		return board.WithStatus(status.BoardNotCreatedError, classify.ErrNotStarted)
	}
	return d.ReleaseSession()
}

// ConfigBoard proxies to the active session's ConfigBoard.
func (r *Registry) ConfigBoard(p Params, command string) (string, error) {
	d, err := r.session(p)
	if err != nil {
		return "", err
	}
	return d.ConfigBoard(command)
}

// InsertMarker proxies to the active session's InsertMarker.
func (r *Registry) InsertMarker(p Params, value float64, preset board.Preset) error {
	d, err := r.session(p)
	if err != nil {
		return err
	}
	return d.InsertMarker(value, preset)
}

// AddStreamer proxies to the active session's AddStreamer.
func (r *Registry) AddStreamer(p Params, uri string, preset board.Preset) error {
	d, err := r.session(p)
	if err != nil {
		return err
	}
	return d.AddStreamer(uri, preset)
}

// DeleteStreamer proxies to the active session's DeleteStreamer.
func (r *Registry) DeleteStreamer(p Params, uri string, preset board.Preset) error {
	d, err := r.session(p)
	if err != nil {
		return err
	}
	return d.DeleteStreamer(uri, preset)
}

// GetBoardDataCount proxies to the active session's GetBoardDataCount.
func (r *Registry) GetBoardDataCount(p Params, preset board.Preset) (int, error) {
	d, err := r.session(p)
	if err != nil {
		return 0, err
	}
	return d.GetBoardDataCount(preset)
}

// GetBoardData proxies to the active session's GetBoardData.
func (r *Registry) GetBoardData(p Params, numSamples int, preset board.Preset) ([][]float64, error) {
	d, err := r.session(p)
	if err != nil {
		return nil, err
	}
	return d.GetBoardData(numSamples, preset)
}

// GetCurrentBoardData proxies to the active session's GetCurrentBoardData.
func (r *Registry) GetCurrentBoardData(p Params, numSamples int, preset board.Preset) ([][]float64, error) {
	d, err := r.session(p)
	if err != nil {
		return nil, err
	}
	return d.GetCurrentBoardData(numSamples, preset)
}

// ActiveSessionCount reports how many distinct sessions are currently
// prepared, for diagnostics and tests.
func (r *Registry) ActiveSessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
