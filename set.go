// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hashtable

// Set is an unordered collection of distinct values backed by a Map with
// empty values. Options are those of the underlying Map, e.g.
// WithHash[K, struct{}](h).
//
// A Set is NOT goroutine-safe.
type Set[K comparable] struct {
	m *Map[K, struct{}]
}

// NewSet constructs a new Set with the specified initial capacity. See New.
func NewSet[K comparable](capacity int, options ...option[K, struct{}]) *Set[K] {
	return &Set[K]{m: New[K, struct{}](capacity, options...)}
}

// Insert adds key to the set, returning false if it was already present.
func (s *Set[K]) Insert(key K) bool {
	return s.m.Insert(key, struct{}{})
}

// Contains reports whether key is in the set.
func (s *Set[K]) Contains(key K) bool {
	return s.m.Contains(key)
}

// Erase removes key from the set, returning false if it was not present.
func (s *Set[K]) Erase(key K) bool {
	return s.m.Erase(key)
}

// Clear removes every key while retaining capacity.
func (s *Set[K]) Clear() {
	s.m.Clear()
}

// Reserve resizes the set to capacity home slots. See Map.Reserve.
func (s *Set[K]) Reserve(capacity int) {
	s.m.Reserve(capacity)
}

// Rehash discards tombstones. See Map.Rehash.
func (s *Set[K]) Rehash() {
	s.m.Rehash()
}

// All calls yield for each key in the set until yield returns false.
func (s *Set[K]) All(yield func(key K) bool) {
	s.m.All(func(k K, _ struct{}) bool {
		return yield(k)
	})
}

// Len returns the number of keys in the set.
func (s *Set[K]) Len() int {
	return s.m.Len()
}

// Capacity returns the number of home slots in the set.
func (s *Set[K]) Capacity() int {
	return s.m.Capacity()
}

// Close releases memory to the configured allocator. See Map.Close.
func (s *Set[K]) Close() {
	s.m.Close()
}
