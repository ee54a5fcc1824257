package dashboard

import "sync"

// Store is an observable value. Subscribers see the current value on
// subscription and every value written afterwards, in write order.
type Store[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   map[int]func(T)

	// emit serializes notifications so subscribers never observe writes out
	// of order. Subscribers must not write to the store they observe.
	emit sync.Mutex
}

func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{value: initial, subs: make(map[int]func(T))}
}

func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with fn(current). fn runs under the store lock.
func (s *Store[T]) Update(fn func(T) T) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	s.value = fn(s.value)
	v := s.value
	subs := s.subscribers()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(v)
	}
}

// Subscribe calls fn with the current value and then on every change until
// the returned function is called.
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.emit.Lock()
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	v := s.value
	s.mu.Unlock()
	fn(v)
	s.emit.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store[T]) subscribers() []func(T) {
	out := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
