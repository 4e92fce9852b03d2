// Package store provides an observable, mutex-guarded state cell.
//
// Reducers in the chat and runlog packages are pure functions; a Store
// applies them and notifies subscribers such as the CLI renderer or a TUI
// program. Subscribers run after every change, in registration order,
// outside the state lock, and receive the state as of that change.
// Deliveries for concurrent updates are serialized in update order, so the
// last state a subscriber sees is the store's final state.
package store

import "sync"

// Store holds a value of type S.
type Store[S any] struct {
	// deliver is held across an update and its notifications. Lock order
	// is deliver, then mu.
	deliver sync.Mutex

	mu     sync.Mutex
	state  S
	subs   []subscriber[S]
	nextID int
}

type subscriber[S any] struct {
	id int
	fn func(S)
}

// New creates a store holding initial.
func New[S any](initial S) *Store[S] {
	return &Store[S]{state: initial}
}

// Get returns the current state.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the current state and stores the result, then
// notifies subscribers before returning. fn runs under the lock and must
// not call back into the store. Subscribers may call Get and Subscribe but
// must not call Update or Set, and must not wait on another goroutine that
// does. Returns the new state.
func (s *Store[S]) Update(fn func(S) S) S {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	next := fn(s.state)
	s.state = next
	subs := s.snapshotSubs()
	s.mu.Unlock()

	notify(subs, next)
	return next
}

// Set replaces the state.
func (s *Store[S]) Set(state S) {
	s.Update(func(S) S { return state })
}

// Subscribe registers fn to run after every change.
// The returned cancel function removes it and is safe to call more than once.
func (s *Store[S]) Subscribe(fn func(S)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber[S]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store[S]) snapshotSubs() []subscriber[S] {
	if len(s.subs) == 0 {
		return nil
	}
	out := make([]subscriber[S], len(s.subs))
	copy(out, s.subs)
	return out
}

func notify[S any](subs []subscriber[S], state S) {
	for _, sub := range subs {
		sub.fn(state)
	}
}
