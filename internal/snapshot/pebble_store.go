package snapshot

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/oakline-markets/matching-engine/internal/engine"
)

// Store is the durable backing store for per-symbol snapshots, keyed
// "book:<symbol>". Grounded on uhyunpark-hyperlicked's PebbleStore
// (pkg/storage/pebble_store.go): one pebble.DB, namespaced byte-string
// keys, pebble.Sync on every write since a lost snapshot write defeats the
// entire point of exporting one.
type Store struct {
	db *pebble.DB
}

func OpenStore(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("snapshot: open pebble store at %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func bookKey(symbol string) []byte {
	return append([]byte("book:"), symbol...)
}

// SaveSnapshot persists state under its symbol's key, overwriting any
// previous snapshot for that symbol.
func (s *Store) SaveSnapshot(state engine.BookState, createdAtMicros int64) error {
	var buf bytes.Buffer
	if err := Encode(&buf, []engine.BookState{state}, createdAtMicros); err != nil {
		return err
	}
	if err := s.db.Set(bookKey(state.Symbol), buf.Bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("snapshot: write %q: %w", state.Symbol, err)
	}
	return nil
}

// LoadSnapshot retrieves the most recently saved snapshot for symbol, if
// any.
func (s *Store) LoadSnapshot(symbol string) (engine.BookState, bool, error) {
	val, closer, err := s.db.Get(bookKey(symbol))
	if err == pebble.ErrNotFound {
		return engine.BookState{}, false, nil
	}
	if err != nil {
		return engine.BookState{}, false, fmt.Errorf("snapshot: read %q: %w", symbol, err)
	}
	defer closer.Close()

	_, books, err := Decode(bytes.NewReader(val))
	if err != nil {
		return engine.BookState{}, false, err
	}
	if len(books) != 1 {
		return engine.BookState{}, false, fmt.Errorf("snapshot: expected exactly one book for %q, got %d", symbol, len(books))
	}
	return books[0], true, nil
}

// LoadAll retrieves every previously saved snapshot, for full-engine
// restart recovery.
func (s *Store) LoadAll() ([]engine.BookState, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("book:"),
		UpperBound: []byte("book;"), // ';' immediately follows ':' in ASCII
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []engine.BookState
	for iter.First(); iter.Valid(); iter.Next() {
		_, books, err := Decode(bytes.NewReader(iter.Value()))
		if err != nil {
			return nil, err
		}
		out = append(out, books...)
	}
	return out, iter.Error()
}
