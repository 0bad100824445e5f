package store

import (
	"errors"
	"testing"
)

func TestAccessorsBeforeInitialize(t *testing.T) {
	Clear()

	if _, _, err := Read("k"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Read: %v, want ErrNotInitialized", err)
	}
	if err := Write("k", []byte("v")); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Write: %v, want ErrNotInitialized", err)
	}
	if _, err := Has("k"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Has: %v, want ErrNotInitialized", err)
	}
	if _, err := Subscribe("k", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Subscribe: %v, want ErrNotInitialized", err)
	}
	if _, err := Snapshot(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Snapshot: %v, want ErrNotInitialized", err)
	}
}

func TestInitializeAndClear(t *testing.T) {
	Initialize(New("state"))
	defer Clear()

	if err := Write("user", []byte("ada")); err != nil {
		t.Fatal(err)
	}
	value, ok, err := Read("user")
	if err != nil || !ok || string(value) != "ada" {
		t.Fatalf("Read = (%q, %v, %v)", value, ok, err)
	}

	Clear()
	if _, _, err := Read("user"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Read after Clear: %v, want ErrNotInitialized", err)
	}
}

func TestClearDestroysReplacedStore(t *testing.T) {
	s := New("state")
	Initialize(s)
	Clear()

	if _, _, err := s.Read("k"); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("old store survives Clear: %v, want ErrStoreClosed", err)
	}
}

func TestInitializeReplacesWithoutDestroying(t *testing.T) {
	old := New("state")
	old.Write("k", []byte("v"))
	Initialize(old)
	Initialize(New("state"))
	defer Clear()

	// The replaced store is still usable by whoever holds it.
	if _, _, err := old.Read("k"); err != nil {
		t.Fatalf("replaced store destroyed by Initialize: %v", err)
	}
	old.Destroy()
}
