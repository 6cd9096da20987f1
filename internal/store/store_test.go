package store

import "testing"

func TestLeaderStorePutGet(t *testing.T) {
	s := NewLeaderStore()
	s.Put(7, []byte("alpha"))

	v, ok := s.Get(7)
	if !ok {
		t.Fatal("Get returned not found for existing key")
	}
	if string(v) != "alpha" {
		t.Fatalf("Get = %q, want %q", v, "alpha")
	}
}

func TestLeaderStoreGetMissing(t *testing.T) {
	s := NewLeaderStore()
	if _, ok := s.Get(1); ok {
		t.Fatal("Get returned found for missing key")
	}
}

func TestLeaderStoreRangeDrainRemovesMatched(t *testing.T) {
	s := NewLeaderStore()
	s.Put(10, []byte("a"))
	s.Put(20, []byte("b"))
	s.Put(30, []byte("c"))

	drained := s.RangeDrain(10, 20)
	if len(drained) != 2 {
		t.Fatalf("drained %d entries, want 2", len(drained))
	}
	if string(drained[10]) != "a" || string(drained[20]) != "b" {
		t.Fatalf("drained = %v, want keys 10 and 20", drained)
	}

	if _, ok := s.Get(10); ok {
		t.Fatal("key 10 should have been removed by RangeDrain")
	}
	if _, ok := s.Get(20); ok {
		t.Fatal("key 20 should have been removed by RangeDrain")
	}
	if v, ok := s.Get(30); !ok || string(v) != "c" {
		t.Fatal("key 30 outside the range should be untouched")
	}
}

func TestLeaderStoreDumpIsNonDestructive(t *testing.T) {
	s := NewLeaderStore()
	s.Put(1, []byte("x"))
	s.Put(2, []byte("y"))

	dump := s.Dump()
	if len(dump) != 2 {
		t.Fatalf("dump has %d entries, want 2", len(dump))
	}
	if s.Len() != 2 {
		t.Fatalf("Len after Dump = %d, want 2 (dump must not remove entries)", s.Len())
	}
}

func TestLeaderStoreBulkInsertOverwrites(t *testing.T) {
	s := NewLeaderStore()
	s.Put(1, []byte("old"))
	s.BulkInsert(map[uint64][]byte{1: []byte("new"), 2: []byte("z")})

	v, _ := s.Get(1)
	if string(v) != "new" {
		t.Fatalf("Get(1) = %q after bulk insert, want %q", v, "new")
	}
	if v, ok := s.Get(2); !ok || string(v) != "z" {
		t.Fatal("bulk-inserted key 2 missing")
	}
}

func TestBackupStoreRangeDrain(t *testing.T) {
	s := NewBackupStore()
	s.Put(5, []byte("a"))
	s.Put(15, []byte("b"))

	drained := s.RangeDrain(0, 10)
	if len(drained) != 1 || string(drained[5]) != "a" {
		t.Fatalf("drained = %v, want only key 5", drained)
	}
	if s.Len() != 1 {
		t.Fatalf("Len after drain = %d, want 1", s.Len())
	}
}

func TestBackupStoreBulkInsert(t *testing.T) {
	s := NewBackupStore()
	s.BulkInsert(map[uint64][]byte{1: []byte("a"), 2: []byte("b")})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}
