package callback

import (
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		title string
	}{
		{name: "simple title", title: "Python"},
		{name: "title with parenthetical", title: "Mercury (planet)"},
		{name: "title with quotes", title: `"Heroes" (TV series)`},
		{name: "unicode title", title: "Госуда́рство"},
		{name: "empty title", title: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(Selection{Title: tt.title})
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(token) > MaxTokenSize {
				t.Errorf("token length %d exceeds ceiling %d", len(token), MaxTokenSize)
			}

			sel, err := Decode(token)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if sel.Title != tt.title {
				t.Errorf("round trip gave %q, want %q", sel.Title, tt.title)
			}
		})
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	// JSON framing is {"t":"..."}, 8 bytes of overhead around the title.
	long := strings.Repeat("a", MaxTokenSize)

	_, err := Encode(Selection{Title: long})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("Encode() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestEncodeBoundary(t *testing.T) {
	const overhead = len(`{"t":""}`)

	// Largest title that fits exactly.
	fits := strings.Repeat("a", MaxTokenSize-overhead)
	token, err := Encode(Selection{Title: fits})
	if err != nil {
		t.Fatalf("Encode() at boundary error = %v", err)
	}
	if len(token) != MaxTokenSize {
		t.Errorf("boundary token length = %d, want %d", len(token), MaxTokenSize)
	}

	// One byte over.
	if _, err := Encode(Selection{Title: fits + "a"}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Encode() one byte over boundary error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("not json at all"); err == nil {
		t.Error("Decode() accepted garbage token")
	}
}
