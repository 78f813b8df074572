// Package snapshot implements the export/import wire format for
// engine.BookState (spec §4.7, §6 "Snapshot format") and its durable
// backing store. No example repo in the retrieved corpus hand-rolls a
// binary framing format of its own — every custom wire format in the pack
// is JSON over HTTP or a driver-owned wire protocol (mysql, kafka) — so this
// is the one place this module falls back to the standard library
// (encoding/gob over a length-prefixed frame) rather than a third-party
// serializer; see DESIGN.md.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/oakline-markets/matching-engine/internal/engine"
)

const magic uint32 = 0x4f4d4553 // "OMES"
const version uint32 = 1

// Header precedes every encoded snapshot.
type Header struct {
	Magic     uint32
	Version   uint32
	CreatedAt int64 // microseconds since epoch
	NumBooks  uint32
}

// Encode writes a length-prefixed, gob-encoded frame for each book in
// books, preceded by a fixed-size Header, to w.
func Encode(w io.Writer, books []engine.BookState, createdAtMicros int64) error {
	hdr := Header{Magic: magic, Version: version, CreatedAt: createdAtMicros, NumBooks: uint32(len(books))}
	if err := binary.Write(w, binary.BigEndian, hdr); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}

	for _, b := range books {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(b); err != nil {
			return fmt.Errorf("snapshot: encode book %q: %w", b.Symbol, err)
		}
		frameLen := uint32(buf.Len())
		if err := binary.Write(w, binary.BigEndian, frameLen); err != nil {
			return fmt.Errorf("snapshot: write frame length for %q: %w", b.Symbol, err)
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("snapshot: write frame for %q: %w", b.Symbol, err)
		}
	}
	return nil
}

// Decode reads a Header and the BookState frames that follow it, rejecting
// anything whose magic or version does not match what Encode writes.
func Decode(r io.Reader) (Header, []engine.BookState, error) {
	var hdr Header
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return Header{}, nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	if hdr.Magic != magic {
		return Header{}, nil, fmt.Errorf("snapshot: bad magic %x", hdr.Magic)
	}
	if hdr.Version != version {
		return Header{}, nil, fmt.Errorf("snapshot: unsupported version %d", hdr.Version)
	}

	books := make([]engine.BookState, 0, hdr.NumBooks)
	for i := uint32(0); i < hdr.NumBooks; i++ {
		var frameLen uint32
		if err := binary.Read(r, binary.BigEndian, &frameLen); err != nil {
			return Header{}, nil, fmt.Errorf("snapshot: read frame length %d: %w", i, err)
		}
		frame := make([]byte, frameLen)
		if _, err := io.ReadFull(r, frame); err != nil {
			return Header{}, nil, fmt.Errorf("snapshot: read frame %d: %w", i, err)
		}
		var b engine.BookState
		if err := gob.NewDecoder(bytes.NewReader(frame)).Decode(&b); err != nil {
			return Header{}, nil, fmt.Errorf("snapshot: decode frame %d: %w", i, err)
		}
		books = append(books, b)
	}
	return hdr, books, nil
}
