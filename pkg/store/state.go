package store

import "sync"

// The process-wide state store. The embedding runtime owns the lifecycle:
// Initialize before the first accessor call, Clear on teardown. Accessor
// functions have no natural place to receive a store argument, so the
// singleton is explicit and guarded rather than default-constructed;
// tests run isolated instances by pairing Initialize with Clear.
var (
	globalMu sync.RWMutex
	global   *Store
)

// Initialize establishes s as the process-wide state store consumed by
// the package-level accessors. It replaces any previous store without
// destroying it.
func Initialize(s *Store) {
	globalMu.Lock()
	global = s
	globalMu.Unlock()
}

// Clear releases the process-wide store and destroys it. Accessors called
// afterwards fail with ErrNotInitialized.
func Clear() {
	globalMu.Lock()
	s := global
	global = nil
	globalMu.Unlock()

	if s != nil {
		s.Destroy()
	}
}

func active() (*Store, error) {
	globalMu.RLock()
	s := global
	globalMu.RUnlock()
	if s == nil {
		return nil, ErrNotInitialized
	}
	return s, nil
}

// Read reads key from the process-wide store. Tracked like Store.Read.
func Read(key string) ([]byte, bool, error) {
	s, err := active()
	if err != nil {
		return nil, false, err
	}
	return s.Read(key)
}

// Write writes key to the process-wide store. nil deletes.
func Write(key string, value []byte) error {
	s, err := active()
	if err != nil {
		return err
	}
	return s.Write(key, value)
}

// Delete removes key from the process-wide store.
func Delete(key string) error {
	return Write(key, nil)
}

// Has reports whether key holds a value in the process-wide store.
func Has(key string) (bool, error) {
	s, err := active()
	if err != nil {
		return false, err
	}
	return s.Has(key), nil
}

// Subscribe registers fn on the process-wide store.
func Subscribe(key string, fn func()) (func(), error) {
	s, err := active()
	if err != nil {
		return nil, err
	}
	return s.Subscribe(key, fn), nil
}

// Snapshot returns the process-wide store's global version.
func Snapshot() (uint64, error) {
	s, err := active()
	if err != nil {
		return 0, err
	}
	return s.Snapshot(), nil
}
