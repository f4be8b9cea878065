package analyzer

import (
	"context"
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/sketchlint/sketchlint/internal/hardware"
	"github.com/sketchlint/sketchlint/internal/memory"
	"github.com/sketchlint/sketchlint/internal/source"
)

// Session tracks open documents and enforces the ordering contract: a pass's
// results are applied only if the version it analyzed is at least the most
// recently applied one, so a late-arriving older pass can never overwrite a
// newer one. Equal versions re-apply; that is how a board switch refreshes a
// document that has not been edited.
type Session struct {
	analyzer *Analyzer
	store    *hardware.Store
	log      *zap.SugaredLogger

	mu   sync.Mutex
	docs map[string]*document
}

type document struct {
	snapshot       source.Snapshot
	appliedVersion int
	appliedHash    uint64
	last           *Result
	lastGoodMemory *memory.Estimate
}

func NewSession(a *Analyzer, store *hardware.Store, log *zap.SugaredLogger) *Session {
	return &Session{
		analyzer: a,
		store:    store,
		log:      log,
		docs:     make(map[string]*document),
	}
}

// Open registers a document and runs its first pass.
func (s *Session) Open(ctx context.Context, snap source.Snapshot) (*Result, error) {
	s.mu.Lock()
	s.docs[snap.URI] = &document{snapshot: snap, appliedVersion: -1}
	s.mu.Unlock()
	return s.Change(ctx, snap)
}

// Change re-analyzes a document after an edit. Byte-identical content under
// the same board is served from the previous result without a new pass.
func (s *Session) Change(ctx context.Context, snap source.Snapshot) (*Result, error) {
	s.mu.Lock()
	doc, ok := s.docs[snap.URI]
	if !ok {
		doc = &document{appliedVersion: -1}
		s.docs[snap.URI] = doc
	}
	doc.snapshot = snap
	hash := s.contentHash(snap.Text)
	if doc.last != nil && hash == doc.appliedHash {
		cached := *doc.last
		cached.Version = snap.Version
		doc.appliedVersion = snap.Version
		doc.last = &cached
		s.mu.Unlock()
		s.log.Debugw("content unchanged, pass skipped", "uri", snap.URI, "version", snap.Version)
		return &cached, nil
	}
	s.mu.Unlock()

	result, err := s.analyzer.Analyze(ctx, snap)
	if err != nil {
		return nil, err
	}
	return s.apply(snap.URI, hash, result), nil
}

// apply installs a finished pass unless a newer version has landed since it
// started. A discarded pass returns the currently applied result instead.
func (s *Session) apply(uri string, hash uint64, result *Result) *Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		// Closed while the pass was in flight.
		return result
	}
	if result.Version < doc.appliedVersion {
		s.log.Debugw("stale pass discarded",
			"uri", uri, "version", result.Version, "applied", doc.appliedVersion)
		if doc.last != nil {
			return doc.last
		}
		return result
	}

	doc.appliedVersion = result.Version
	doc.appliedHash = hash
	doc.last = result
	if result.Memory.RAM.Total > 0 {
		est := result.Memory
		doc.lastGoodMemory = &est
	}
	return result
}

// Close forgets a document. Per-pass state is never merged across opens.
func (s *Session) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

// Result returns the last applied pass for a document, if any.
func (s *Session) Result(uri string) (*Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok || doc.last == nil {
		return nil, false
	}
	return doc.last, true
}

// LastGoodMemory returns the most recent estimate with a non-empty RAM
// total, for display while a pass over broken text settles.
func (s *Session) LastGoodMemory(uri string) (*memory.Estimate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok || doc.lastGoodMemory == nil {
		return nil, false
	}
	return doc.lastGoodMemory, true
}

// SetBoard switches the active board and synchronously re-analyzes every
// open document under the new descriptor. An empty id clears the board.
func (s *Session) SetBoard(ctx context.Context, boardID string) (map[string]*Result, error) {
	if boardID == "" {
		s.store.ClearBoard()
	} else if err := s.store.LoadBoard(boardID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	snapshots := make([]source.Snapshot, 0, len(s.docs))
	for _, doc := range s.docs {
		snapshots = append(snapshots, doc.snapshot)
	}
	s.mu.Unlock()

	results := make(map[string]*Result, len(snapshots))
	for _, snap := range snapshots {
		result, err := s.analyzer.Analyze(ctx, snap)
		if err != nil {
			return nil, err
		}
		results[snap.URI] = s.apply(snap.URI, s.contentHash(snap.Text), result)
	}
	return results, nil
}

// contentHash keys the pass-dedupe cache on text plus active board, since a
// board switch changes the analysis of identical text.
func (s *Session) contentHash(text string) uint64 {
	board := ""
	if b := s.store.CurrentBoard(); b != nil {
		board = b.ID
	}
	h := xxh3.HashString(board)
	return h ^ xxh3.HashString(text)
}
