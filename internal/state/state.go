// Package state holds the published state of a manager: one value behind a mutex,
// change notification to subscribers, and a generation counter for fencing fetches.
package state

import "sync"

// Store publishes snapshots of S. Slices and pointers inside S must be replaced,
// never mutated in place, so that a delivered snapshot stays valid.
type Store[S any] struct {
	mu   sync.Mutex
	cur  S
	gen  uint64
	subs map[int]func(S)
	next int

	// held while delivering so subscribers see snapshots in commit order
	deliver sync.Mutex
}

func New[S any](initial S) *Store[S] {
	return &Store[S]{cur: initial, subs: make(map[int]func(S))}
}

// Get returns the current snapshot.
func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Update mutates the state and notifies subscribers with the result.
// Subscribers must not call Update or Commit from the callback.
func (s *Store[S]) Update(fn func(*S)) {
	s.mu.Lock()
	fn(&s.cur)
	s.publish()
}

// UpdateIf is Update for a change that fn may decline. Subscribers are notified
// only when fn returns true, and the result reports whether it did.
func (s *Store[S]) UpdateIf(fn func(*S) bool) bool {
	s.mu.Lock()
	if !fn(&s.cur) {
		s.mu.Unlock()
		return false
	}
	s.publish()
	return true
}

// Begin starts a new generation. Results tagged with an older generation are
// rejected by Commit.
func (s *Store[S]) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// Commit applies fn only if no newer generation was started after gen.
func (s *Store[S]) Commit(gen uint64, fn func(*S)) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	fn(&s.cur)
	s.publish()
	return true
}

// Subscribe registers fn for every future change and returns its cancel func.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// publish is entered with mu held and releases it.
func (s *Store[S]) publish() {
	snap := s.cur
	fns := make([]func(S), 0, len(s.subs))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.deliver.Lock()
	s.mu.Unlock()
	defer s.deliver.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Busy counts overlapping operations so a loading flag stays set until the last
// one finishes. It must only be touched inside Update callbacks.
type Busy struct {
	n int
}

// Enter records one more operation and returns the loading flag.
func (b *Busy) Enter() bool {
	b.n++
	return true
}

// Leave records a finished operation and reports whether others are still running.
func (b *Busy) Leave() bool {
	if b.n > 0 {
		b.n--
	}
	return b.n > 0
}

// Fence hands out generations for one kind of fetch independently of a Store's own
// counter, for managers that publish several lists from one State.
type Fence struct {
	mu  sync.Mutex
	gen uint64
}

func (f *Fence) Begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	return f.gen
}

// Current reports whether gen is still the latest generation handed out. Check it
// inside Store.UpdateIf so that no newer result can land between check and write.
func (f *Fence) Current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gen == f.gen
}
