package types

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/mitchellh/hashstructure"
)

// Set is an insertion-ordered set; items are deduplicated by structural hash
// so non-comparable types can be stored as well.
type Set[T any] struct {
	mu      sync.RWMutex
	hash    map[uint64]int
	storage []T
}

func NewSet[T any](items ...T) *Set[T] {
	set := &Set[T]{}
	set.Insert(items...)
	return set
}

func hashItem[T any](item T) uint64 {
	hash, err := hashstructure.Hash(item, nil)
	if err != nil {
		panic(fmt.Errorf("failed to hash set item %v: %s", item, err))
	}
	return hash
}

func (s *Set[T]) Insert(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hash == nil {
		s.hash = make(map[uint64]int)
	}
	for _, item := range items {
		key := hashItem(item)
		if _, found := s.hash[key]; found {
			continue
		}
		s.hash[key] = len(s.storage)
		s.storage = append(s.storage, item)
	}
}

func (s *Set[T]) Exists(item T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, found := s.hash[hashItem(item)]
	return found
}

// Array returns items in insertion order
func (s *Set[T]) Array() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.storage))
	copy(out, s.storage)
	return out
}

func (s *Set[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.storage)
}

// Difference returns items present in s but missing from other
func (s *Set[T]) Difference(other *Set[T]) *Set[T] {
	diff := NewSet[T]()
	for _, item := range s.Array() {
		if !other.Exists(item) {
			diff.Insert(item)
		}
	}
	return diff
}

// ProperSubsetOf reports whether other misses at least one item of s
func (s *Set[T]) ProperSubsetOf(other *Set[T]) bool {
	return s.Difference(other).Len() > 0
}

func (s *Set[T]) String() string {
	return fmt.Sprintf("%v", s.Array())
}

func (s *Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Array())
}

func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}

	s.Insert(items...)
	return nil
}
