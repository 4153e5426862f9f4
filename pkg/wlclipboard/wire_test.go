package wlclipboard

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeStringRoundTrip(t *testing.T) {
	tests := []string{"", "a", "text/plain", "this is exactly twelve"}
	for _, s := range tests {
		encoded := encodeString(s)
		decoded, rest, err := decodeString(encoded)
		if err != nil {
			t.Fatalf("decodeString(%q): %v", s, err)
		}
		if decoded != s {
			t.Fatalf("decodeString(encodeString(%q)) = %q", s, decoded)
		}
		if len(rest) != 0 {
			t.Fatalf("decodeString left %d trailing bytes for %q", len(rest), s)
		}
	}
}

func TestEncodeStringPadsToFourBytes(t *testing.T) {
	encoded := encodeString("ab") // length field (3, incl nul) + padded data
	if len(encoded)%4 != 0 {
		t.Fatalf("encoded length %d is not 4-byte aligned", len(encoded))
	}
}

func TestDecodeStringLeavesSubsequentFields(t *testing.T) {
	buf := concat(encodeString("hello"), encodeUint32(42))
	_, rest, err := decodeString(buf)
	if err != nil {
		t.Fatalf("decodeString: %v", err)
	}
	if len(rest) != 4 || le.Uint32(rest) != 42 {
		t.Fatalf("rest = %v, want encoded uint32(42)", rest)
	}
}

func TestDecodeStringRejectsShortData(t *testing.T) {
	if _, _, err := decodeString([]byte{1, 2}); err == nil {
		t.Fatal("expected error decoding a too-short length field")
	}
	if _, _, err := decodeString(encodeUint32(100)); err == nil {
		t.Fatal("expected error when declared length exceeds available data")
	}
}

func TestConcat(t *testing.T) {
	got := concat([]byte{1, 2}, []byte{}, []byte{3})
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("concat = %v, want [1 2 3]", got)
	}
}
