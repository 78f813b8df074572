package snapshot

import (
	"bytes"
	"testing"

	"github.com/oakline-markets/matching-engine/internal/engine"
)

func sampleBooks() []engine.BookState {
	return []engine.BookState{
		{
			Symbol:              "AAPL",
			LastTradePriceTicks: 150_000_000,
			CumulativeTrades:    3,
			CumulativeVolume:    30,
			Orders: []engine.OrderSnapshot{
				{ID: "o1", Owner: "alice", Symbol: "AAPL", Side: engine.SideBuy, Type: engine.TypeLimit,
					LimitPriceTicks: 150_000_000, OriginalQty: 10, RemainingQty: 10, Status: engine.StatusPending},
			},
		},
		{Symbol: "MSFT"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	books := sampleBooks()

	if err := Encode(&buf, books, 1_700_000_000_000_000); err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}

	hdr, decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if hdr.Magic != magic || hdr.Version != version {
		t.Errorf("unexpected header: %+v", hdr)
	}
	if hdr.NumBooks != uint32(len(books)) {
		t.Errorf("NumBooks = %d, want %d", hdr.NumBooks, len(books))
	}
	if len(decoded) != 2 || decoded[0].Symbol != "AAPL" || decoded[1].Symbol != "MSFT" {
		t.Fatalf("unexpected decoded books: %+v", decoded)
	}
	if len(decoded[0].Orders) != 1 || decoded[0].Orders[0].ID != "o1" {
		t.Errorf("unexpected decoded orders: %+v", decoded[0].Orders)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleBooks(), 0); err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}

	corrupted := buf.Bytes()
	corrupted[0] ^= 0xff // flip a bit in the magic field

	if _, _, err := Decode(bytes.NewReader(corrupted)); err == nil {
		t.Fatal("expected an error decoding a corrupted magic number")
	}
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sampleBooks(), 0); err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-5]
	if _, _, err := Decode(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected an error decoding truncated input")
	}
}

func TestEncodeEmptyBookList(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil, 0); err != nil {
		t.Fatalf("Encode: unexpected error: %v", err)
	}
	hdr, books, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: unexpected error: %v", err)
	}
	if hdr.NumBooks != 0 || len(books) != 0 {
		t.Errorf("expected zero books, got hdr=%+v books=%v", hdr, books)
	}
}
