package services

import "sync"

// keyMutex provides a mutual-exclusion scope per string key. The transfer
// service locks the requester's IP across balance check and commit, so two
// concurrent transfers from one client can never both read the same stale
// balance. Different keys proceed fully in parallel.
//
// Entries are reference-counted and removed when the last holder unlocks,
// keeping the map bounded by the number of in-flight requests.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*keyLock)}
}

// Lock acquires the mutex for key and returns the matching unlock function.
func (k *keyMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
