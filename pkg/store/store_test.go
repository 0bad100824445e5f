package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/glint-ui/glint/pkg/glint"
)

func TestReadAbsent(t *testing.T) {
	s := New("state")
	value, ok, err := s.Read("missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok || value != nil {
		t.Fatalf("Read of absent key = (%v, %v), want (nil, false)", value, ok)
	}
}

func TestWriteThenRead(t *testing.T) {
	s := New("state")
	if err := s.Write("k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	value, ok, err := s.Read("k")
	if err != nil || !ok {
		t.Fatalf("Read = (%v, %v, %v)", value, ok, err)
	}
	if string(value) != "v" {
		t.Fatalf("value = %q, want v", value)
	}
	if !s.Has("k") || s.Len() != 1 {
		t.Fatalf("Has/Len inconsistent after write")
	}
}

func TestWriteCopiesValue(t *testing.T) {
	s := New("state")
	buf := []byte("abc")
	s.Write("k", buf)
	buf[0] = 'X'

	value, _, _ := s.Read("k")
	if string(value) != "abc" {
		t.Fatalf("caller mutation leaked into store: %q", value)
	}
}

func TestWriteNilDeletes(t *testing.T) {
	s := New("state")
	s.Write("k", []byte("v"))
	s.Write("k", nil)

	if s.Has("k") {
		t.Fatal("key present after nil write")
	}
	if _, ok, _ := s.Read("k"); ok {
		t.Fatal("deleted key reads as present")
	}
}

func TestDeleteMatchesNilWrite(t *testing.T) {
	s := New("state")
	s.Write("k", []byte("v"))

	fired := 0
	unsub := s.Subscribe("k", func() { fired++ })
	defer unsub()

	if err := s.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("delete fired %d notifications, want 1", fired)
	}
	if s.Has("k") {
		t.Fatal("key present after Delete")
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	s := New("state")
	before := s.Snapshot()
	if err := s.Delete("never-written"); err != nil {
		t.Fatal(err)
	}
	// Still a write for versioning purposes.
	if s.Snapshot() == before {
		t.Fatal("version did not advance")
	}
	if s.Len() != 0 {
		t.Fatal("phantom entry created by deleting an absent key")
	}
}

func TestIdenticalWriteStillNotifies(t *testing.T) {
	s := New("state")
	s.Write("k", []byte("same"))

	fired := 0
	unsub := s.Subscribe("k", func() { fired++ })
	defer unsub()

	before := s.Snapshot()
	s.Write("k", []byte("same"))
	if fired != 1 {
		t.Fatalf("identical write fired %d notifications, want 1", fired)
	}
	if s.Snapshot() == before {
		t.Fatal("identical write did not advance the version")
	}
}

func TestSubscribeBeforeFirstWrite(t *testing.T) {
	s := New("state")
	fired := 0
	unsub := s.Subscribe("k", func() { fired++ })
	defer unsub()

	s.Write("k", []byte("v"))
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestSubscriberSetSurvivesDelete(t *testing.T) {
	s := New("state")
	fired := 0
	unsub := s.Subscribe("k", func() { fired++ })
	defer unsub()

	s.Write("k", []byte("v"))
	s.Delete("k")
	s.Write("k", []byte("back"))
	if fired != 3 {
		t.Fatalf("fired = %d, want 3", fired)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	s := New("state")
	fired := 0
	unsubA := s.Subscribe("k", func() { fired++ })
	unsubB := s.Subscribe("k", func() { fired++ })

	unsubA()
	unsubA() // second call must not disturb the remaining registration

	s.Write("k", []byte("v"))
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	unsubB()
}

func TestNotificationOrderFollowsRegistration(t *testing.T) {
	s := New("state")
	var order []string
	u1 := s.Subscribe("k", func() { order = append(order, "first") })
	u2 := s.Subscribe("k", func() { order = append(order, "second") })
	defer u1()
	defer u2()

	s.Write("k", []byte("v"))
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v", order)
	}
}

func TestLateSubscriberMissesQueuedWrite(t *testing.T) {
	d := glint.NewDeferred()
	s := New("state", WithScheduler(d.Schedule))

	early := 0
	ue := s.Subscribe("k", func() { early++ })
	defer ue()

	s.Write("k", []byte("v"))

	// Registered after the write but before delivery: must not fire for it.
	late := 0
	ul := s.Subscribe("k", func() { late++ })
	defer ul()

	d.Flush()
	if early != 1 {
		t.Fatalf("early = %d, want 1", early)
	}
	if late != 0 {
		t.Fatalf("late subscriber fired for a write preceding its registration")
	}
}

func TestUnsubscribedBeforeDeliverySkipped(t *testing.T) {
	d := glint.NewDeferred()
	s := New("state", WithScheduler(d.Schedule))

	fired := 0
	unsub := s.Subscribe("k", func() { fired++ })

	s.Write("k", []byte("v"))
	unsub()
	d.Flush()

	if fired != 0 {
		t.Fatalf("removed subscriber fired %d times", fired)
	}
}

func TestCoalescedWritesDeliverOnce(t *testing.T) {
	d := glint.NewDeferred()
	s := New("state", WithScheduler(d.Schedule))

	fired := 0
	unsub := s.Subscribe("k", func() { fired++ })
	defer unsub()

	s.Write("k", []byte("1"))
	s.Write("k", []byte("2"))
	s.Write("k", []byte("3"))
	if got := d.Pending(); got != 1 {
		t.Fatalf("Pending = %d, want 1 coalesced thunk", got)
	}

	d.Flush()
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	value, _, _ := s.Read("k")
	if string(value) != "3" {
		t.Fatalf("delivered-state value = %q, want the latest write", value)
	}
}

func TestTrackedReadRecordsDep(t *testing.T) {
	s := New("custom")
	s.Write("k", []byte("v"))

	deps := glint.WithFrame(func() {
		s.Read("k")
		s.Read("absent")
	})
	if len(deps) != 2 {
		t.Fatalf("got %d deps, want 2", len(deps))
	}
	if deps[0].Key != (glint.Key{Scope: "custom", ID: "k"}) {
		t.Fatalf("deps[0] = %+v", deps[0].Key)
	}
	if deps[1].Key.ID != "absent" {
		t.Fatal("absent-key read was not recorded")
	}
}

func TestDestroy(t *testing.T) {
	s := New("state")
	s.Write("k", []byte("v"))
	unsub := s.Subscribe("k", func() { t.Fatal("subscriber fired after Destroy") })

	s.Destroy()

	if _, _, err := s.Read("k"); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("Read after Destroy: %v, want ErrStoreClosed", err)
	}
	if err := s.Write("k", []byte("v")); !errors.Is(err, ErrStoreClosed) {
		t.Fatalf("Write after Destroy: %v, want ErrStoreClosed", err)
	}
	unsub() // residual unsubscribe is a no-op

	if u := s.Subscribe("k", func() {}); u == nil {
		t.Fatal("Subscribe after Destroy returned nil unsubscribe")
	}
}

func TestConcurrentWritesAndReads(t *testing.T) {
	s := New("state")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				s.Write(key, []byte{byte(j)})
				s.Read(key)
			}
		}(i)
	}
	wg.Wait()
	if s.Len() != 8 {
		t.Fatalf("Len = %d, want 8", s.Len())
	}
}
