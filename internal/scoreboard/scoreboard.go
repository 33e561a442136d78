// ABOUTME: Live scoreboard state owned by the host and the accessor the sync engine uses
// ABOUTME: Boards hold integer entries; only explicitly set entries are reported

package scoreboard

import (
	"errors"
	"sort"
)

// ErrNoBoard is returned when writing to a board that does not exist.
var ErrNoBoard = errors.New("board does not exist")

// Entry is one explicitly set counter on a board.
type Entry struct {
	Key   string
	Value int
}

// Accessor is the host-owned view of live scoreboard state. Implementations are
// not safe for concurrent use; call them from the owning goroutine only.
type Accessor interface {
	// Boards lists board names.
	Boards() []string
	// HasBoard reports whether a board exists.
	HasBoard(board string) bool
	// Entries lists the entries with an explicitly set value on board.
	Entries(board string) []Entry
	// Score reads one entry; ok is false when the board or entry is unset.
	Score(board, key string) (value int, ok bool)
	// SetScore writes one entry. Returns ErrNoBoard if the board is missing.
	SetScore(board, key string, value int) error
}

// Scoreboard is an in-memory Accessor. Boards are created by the host, never
// by the sync engine.
type Scoreboard struct {
	boards map[string]map[string]int
}

// New creates a Scoreboard with the given boards.
func New(boards ...string) *Scoreboard {
	s := &Scoreboard{boards: make(map[string]map[string]int)}
	for _, b := range boards {
		s.AddBoard(b)
	}
	return s
}

// AddBoard creates a board if it does not exist.
func (s *Scoreboard) AddBoard(name string) {
	if _, ok := s.boards[name]; !ok {
		s.boards[name] = make(map[string]int)
	}
}

// RemoveBoard deletes a board and its entries.
func (s *Scoreboard) RemoveBoard(name string) {
	delete(s.boards, name)
}

// ResetScore clears an entry so it is no longer reported as set.
func (s *Scoreboard) ResetScore(board, key string) {
	if entries, ok := s.boards[board]; ok {
		delete(entries, key)
	}
}

func (s *Scoreboard) Boards() []string {
	names := make([]string, 0, len(s.boards))
	for name := range s.boards {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scoreboard) HasBoard(board string) bool {
	_, ok := s.boards[board]
	return ok
}

func (s *Scoreboard) Entries(board string) []Entry {
	entries, ok := s.boards[board]
	if !ok {
		return nil
	}
	out := make([]Entry, 0, len(entries))
	for key, value := range entries {
		out = append(out, Entry{Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *Scoreboard) Score(board, key string) (int, bool) {
	entries, ok := s.boards[board]
	if !ok {
		return 0, false
	}
	v, ok := entries[key]
	return v, ok
}

func (s *Scoreboard) SetScore(board, key string, value int) error {
	entries, ok := s.boards[board]
	if !ok {
		return ErrNoBoard
	}
	entries[key] = value
	return nil
}
