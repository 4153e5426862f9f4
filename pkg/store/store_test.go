package store

import (
	"path/filepath"
	"testing"

	"wayclipd/pkg/protocol"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndFindByHash(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertEntry("hash1", protocol.ContentText, "text/plain", "hello", []byte("hello"))
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	found, ok, err := s.FindByHash("hash1")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if !ok || found != id {
		t.Fatalf("FindByHash = (%d, %v), want (%d, true)", found, ok, id)
	}

	_, ok, err = s.FindByHash("nonexistent")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if ok {
		t.Fatal("FindByHash should not find an unknown hash")
	}
}

func TestTouchByHashIncrementsUseCount(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertEntry("hash1", protocol.ContentText, "text/plain", "hello", []byte("hello")); err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	if err := s.TouchByHash("hash1"); err != nil {
		t.Fatalf("TouchByHash: %v", err)
	}

	var useCount int
	if err := s.db.QueryRow("SELECT use_count FROM entries WHERE content_hash = ?", "hash1").Scan(&useCount); err != nil {
		t.Fatalf("query use_count: %v", err)
	}
	if useCount != 2 {
		t.Fatalf("use_count = %d, want 2", useCount)
	}
}

func TestGetContentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id, err := s.InsertEntry("hash1", protocol.ContentImage, "image/png", "copied image", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	mime, data, found, err := s.GetContent(id)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if !found {
		t.Fatal("expected entry to be found")
	}
	if mime != "image/png" || string(data) != "\x01\x02\x03" {
		t.Fatalf("GetContent = (%q, %v)", mime, data)
	}

	_, _, found, err = s.GetContent(id + 999)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if found {
		t.Fatal("expected no entry for unknown id")
	}
}

func TestDeleteEntry(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertEntry("hash1", protocol.ContentText, "text/plain", "hello", []byte("hello"))

	deleted, err := s.DeleteEntry(id)
	if err != nil || !deleted {
		t.Fatalf("DeleteEntry = (%v, %v), want (true, nil)", deleted, err)
	}

	deleted, err = s.DeleteEntry(id)
	if err != nil || deleted {
		t.Fatalf("DeleteEntry on already-deleted id = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestClearUnpinnedKeepsPinned(t *testing.T) {
	s := openTestStore(t)
	keep, _ := s.InsertEntry("keep", protocol.ContentText, "text/plain", "keep", []byte("keep"))
	s.InsertEntry("drop", protocol.ContentText, "text/plain", "drop", []byte("drop"))

	if _, err := s.SetPinned(keep, true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	if err := s.ClearUnpinned(); err != nil {
		t.Fatalf("ClearUnpinned: %v", err)
	}

	count, err := s.CountEntries()
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	if count != 1 {
		t.Fatalf("CountEntries after clear = %d, want 1", count)
	}

	_, data, found, err := s.GetContent(keep)
	if err != nil || !found || string(data) != "keep" {
		t.Fatalf("pinned entry should survive clear: found=%v err=%v data=%q", found, err, data)
	}
}

func TestGetHistoryPaginatesAndOrdersByRecency(t *testing.T) {
	s := openTestStore(t)
	for i, hash := range []string{"a", "b", "c"} {
		if _, err := s.InsertEntry(hash, protocol.ContentText, "text/plain", hash, []byte{byte(i)}); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	entries, total, err := s.GetHistory(2, 0, "")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Preview != "c" {
		t.Fatalf("most recent entry should be first, got %q", entries[0].Preview)
	}
}

func TestGetHistorySearchSubstringFallback(t *testing.T) {
	s := openTestStore(t)
	s.InsertEntry("a", protocol.ContentText, "text/plain", "hello world", []byte("x"))
	s.InsertEntry("b", protocol.ContentText, "text/plain", "goodbye", []byte("y"))
	s.ftsActive = false // force the LIKE-based path regardless of fts5 availability

	entries, total, err := s.GetHistory(10, 0, "world")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if total != 1 || len(entries) != 1 || entries[0].Preview != "hello world" {
		t.Fatalf("unexpected search result: total=%d entries=%v", total, entries)
	}
}

func TestSweepTrimsExcessToMaxEntries(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.InsertEntry(string(rune('a'+i)), protocol.ContentText, "text/plain", "p", []byte("x")); err != nil {
			t.Fatalf("InsertEntry: %v", err)
		}
	}

	if err := s.Sweep(3, 0); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	count, err := s.CountEntries()
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	if count != 3 {
		t.Fatalf("count after sweep = %d, want 3", count)
	}
}

func TestSweepAgesOutByCreatedAtNotLastUsedAt(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertEntry("old", protocol.ContentText, "text/plain", "old", []byte("x"))
	if err != nil {
		t.Fatalf("InsertEntry: %v", err)
	}

	const day = int64(86400)
	longAgo := now() - 200*day
	if _, err := s.db.Exec("UPDATE entries SET created_at = ? WHERE id = ?", longAgo, id); err != nil {
		t.Fatalf("backdate created_at: %v", err)
	}

	// Touching bumps last_used_at to the present, simulating a re-publish
	// of an entry captured long ago.
	if err := s.TouchEntry(id); err != nil {
		t.Fatalf("TouchEntry: %v", err)
	}

	if err := s.Sweep(100, 30); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	count, err := s.CountEntries()
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	if count != 0 {
		t.Fatalf("entry with an old created_at should age out despite a recent last_used_at, count = %d", count)
	}
}

func TestSweepNeverDeletesPinned(t *testing.T) {
	s := openTestStore(t)
	id, _ := s.InsertEntry("pinned", protocol.ContentText, "text/plain", "p", []byte("x"))
	if _, err := s.SetPinned(id, true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	if err := s.Sweep(0, 0); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	count, err := s.CountEntries()
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	if count != 1 {
		t.Fatalf("pinned entry should survive a zero-capacity sweep, count = %d", count)
	}
}
