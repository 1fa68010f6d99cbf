package school

import "sync"

type subscription struct {
	id int
	fn func(State)
}

// Store owns one reducer instance. Dispatches are reduced one at a time in
// arrival order, so the last dispatch on a slice wins.
//
// Subscribers are called in dispatch order, outside the state lock: they may
// read State() but must not Dispatch synchronously.
type Store struct {
	mu     sync.Mutex // guards state, subs, nextID & closed
	pubMu  sync.Mutex // serializes notifications
	state  State
	subs   []subscription
	nextID int
	closed bool
}

func NewStore() *Store {
	return &Store{state: InitialState()}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = Reduce(s.state, a)
	st := s.state
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)

	// take the publish lock before releasing the state lock to keep notifications in dispatch order
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	for _, sub := range subs {
		sub.fn(st)
	}
}

// Subscribe registers fn to be called with every new state. The returned func cancels it.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Close disposes the store: subscribers are dropped and later dispatches are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = nil
}
