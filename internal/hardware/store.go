package hardware

import (
	"embed"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

//go:embed data/boards/*.json data/protocols.json data/libraries.json
var dataFS embed.FS

// ErrUnknownBoard is returned by LoadBoard for an id with no descriptor.
var ErrUnknownBoard = errors.New("unknown board id")

// Store owns every loaded descriptor. It is the single source of board facts
// for the analyzer: components hold a *Store reference, never copies. After
// Initialize and between LoadBoard calls everything here is read-only, so
// concurrent validators may query it freely.
type Store struct {
	log *zap.SugaredLogger

	mu        sync.RWMutex
	boards    map[string]*Board
	protocols map[string]*Protocol
	libraries map[string]*Library
	current   *Board
}

// NewStore creates an empty store. Call Initialize before use.
func NewStore(log *zap.SugaredLogger) *Store {
	return &Store{
		log:       log,
		boards:    make(map[string]*Board),
		protocols: make(map[string]*Protocol),
		libraries: make(map[string]*Library),
	}
}

// Initialize loads the bundled descriptors. Load failures are logged and
// skipped; the store stays usable (possibly empty) so the analyzer can still
// run board-agnostic checks. It never returns a fatal error by design.
func (s *Store) Initialize() error {
	validator, err := NewDescriptorValidator()
	if err != nil {
		// Schema trouble disables contract checking, not loading.
		s.log.Errorw("descriptor schema unavailable, loading unvalidated", "error", err)
		validator = nil
	}

	entries, err := dataFS.ReadDir("data/boards")
	if err != nil {
		s.log.Errorw("bundled board descriptors missing", "error", err)
	} else {
		for _, e := range entries {
			raw, err := dataFS.ReadFile("data/boards/" + e.Name())
			if err != nil {
				s.log.Warnw("skipping unreadable board descriptor", "file", e.Name(), "error", err)
				continue
			}
			s.addBoard(e.Name(), raw, validator)
		}
	}

	if raw, err := dataFS.ReadFile("data/protocols.json"); err != nil {
		s.log.Errorw("bundled protocol descriptors missing", "error", err)
	} else if err := s.addProtocols(raw); err != nil {
		s.log.Warnw("skipping protocol descriptors", "error", err)
	}

	if raw, err := dataFS.ReadFile("data/libraries.json"); err != nil {
		s.log.Errorw("bundled library descriptors missing", "error", err)
	} else if err := s.addLibraries(raw); err != nil {
		s.log.Warnw("skipping library descriptors", "error", err)
	}

	s.log.Infow("hardware descriptors loaded",
		"boards", len(s.boards), "protocols", len(s.protocols), "libraries", len(s.libraries))
	return nil
}

// LoadDir loads additional board descriptors from an external directory,
// overriding bundled boards with the same id. Missing or malformed files
// degrade to the bundled set.
func (s *Store) LoadDir(dir string) {
	validator, _ := NewDescriptorValidator()

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Warnw("descriptor directory unavailable", "dir", dir, "error", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			s.log.Warnw("skipping unreadable descriptor", "file", e.Name(), "error", err)
			continue
		}
		s.addBoard(e.Name(), raw, validator)
	}
}

func (s *Store) addBoard(name string, raw []byte, validator *DescriptorValidator) {
	if validator != nil {
		if err := validator.ValidateBoard(raw); err != nil {
			s.log.Warnw("board descriptor failed schema validation", "file", name, "error", err)
			return
		}
	}
	var b Board
	if err := json.Unmarshal(raw, &b); err != nil {
		s.log.Warnw("board descriptor is not valid JSON", "file", name, "error", err)
		return
	}
	if b.ID == "" {
		s.log.Warnw("board descriptor missing id", "file", name)
		return
	}
	s.mu.Lock()
	s.boards[b.ID] = &b
	s.mu.Unlock()
}

func (s *Store) addProtocols(raw []byte) error {
	var protos []Protocol
	if err := json.Unmarshal(raw, &protos); err != nil {
		return errors.Wrap(err, "parsing protocol descriptors")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range protos {
		s.protocols[protos[i].ID] = &protos[i]
	}
	return nil
}

func (s *Store) addLibraries(raw []byte) error {
	var libs []Library
	if err := json.Unmarshal(raw, &libs); err != nil {
		return errors.Wrap(err, "parsing library descriptors")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range libs {
		s.libraries[libs[i].ID] = &libs[i]
	}
	return nil
}

// LoadBoard switches the active board descriptor.
func (s *Store) LoadBoard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return errors.Wrapf(ErrUnknownBoard, "%q", id)
	}
	s.current = b
	return nil
}

// ClearBoard drops the active board; board-gated checks go quiet.
func (s *Store) ClearBoard() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// CurrentBoard returns the active board descriptor, or nil when none is
// loaded. Callers treat nil as "skip board-specific checks."
func (s *Store) CurrentBoard() *Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Board looks up a board descriptor by id.
func (s *Store) Board(id string) (*Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	return b, ok
}

// Protocol looks up a protocol descriptor by id.
func (s *Store) Protocol(id string) (*Protocol, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.protocols[id]
	return p, ok
}

// Library looks up a library descriptor by id.
func (s *Store) Library(id string) (*Library, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.libraries[id]
	return l, ok
}

// Boards returns all loaded boards sorted by id.
func (s *Store) Boards() []*Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Libraries returns all loaded library descriptors sorted by id.
func (s *Store) Libraries() []*Library {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Library, 0, len(s.libraries))
	for _, l := range s.libraries {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsPinValid reports whether pin can serve the given usage kind on the active
// board. With no board loaded it returns false, never an error: callers skip
// board-specific checks in that case.
func (s *Store) IsPinValid(pin int, kind string) bool {
	b := s.CurrentBoard()
	if b == nil {
		return false
	}
	switch kind {
	case "analog-input":
		return b.IsAnalog(pin)
	case "pwm":
		return b.IsPWM(pin)
	case "interrupt":
		return b.IsInterrupt(pin)
	default:
		return b.HasPin(pin)
	}
}

// IsPinCapable reports whether pin carries the named capability on the
// active board. False when no board is loaded.
func (s *Store) IsPinCapable(pin int, capability string) bool {
	return s.IsPinValid(pin, capability)
}
