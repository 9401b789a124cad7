package authclient

import "sync"

// IdentityObserver is called on every session transition. A nil identity
// means the session is anonymous.
type IdentityObserver func(identity *Identity)

type observerEntry struct {
	id uint64
	fn IdentityObserver
}

// identityFeed is an ordered observer list. Emission is synchronous so each
// observer sees transitions in the order they were published.
type identityFeed struct {
	mu        sync.Mutex
	nextID    uint64
	observers []observerEntry
}

func (f *identityFeed) add(fn IdentityObserver) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.observers = append(f.observers, observerEntry{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *identityFeed) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.observers {
		if o.id == id {
			f.observers = append(f.observers[:i], f.observers[i+1:]...)
			return
		}
	}
}

func (f *identityFeed) snapshot() []observerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]observerEntry, len(f.observers))
	copy(out, f.observers)
	return out
}

func (f *identityFeed) publish(identity *Identity) {
	for _, o := range f.snapshot() {
		o.fn(identity.Clone())
	}
}

func (f *identityFeed) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.observers)
}
