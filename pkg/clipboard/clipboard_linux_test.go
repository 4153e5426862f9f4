//go:build linux

package clipboard

import "testing"

func TestExpandFormatsText(t *testing.T) {
	formats := expandFormats("text/plain", []byte("hello"))
	for _, mime := range []string{"text/plain", "text/plain;charset=utf-8", "UTF8_STRING", "STRING", "TEXT"} {
		if string(formats[mime]) != "hello" {
			t.Fatalf("formats[%q] = %q, want %q", mime, formats[mime], "hello")
		}
	}
}

func TestExpandFormatsImageOnlyOwnMime(t *testing.T) {
	formats := expandFormats("image/png", []byte{1, 2, 3})
	if len(formats) != 1 {
		t.Fatalf("len(formats) = %d, want 1", len(formats))
	}
	if string(formats["image/png"]) != "\x01\x02\x03" {
		t.Fatalf("formats[image/png] = %v", formats["image/png"])
	}
}
