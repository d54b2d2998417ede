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

// Package hashtable implements a generic hash table with in-place collision
// chaining, along with the Map and Set containers built on it.
//
// # Layout
//
// A table is a fixed-size array of home slots plus an arena of overflow
// nodes. A key's home slot is hash(key) % capacity. If the home slot is
// free the entry is stored there directly. If it is occupied, the occupant
// is moved into a new overflow node linked from the home slot and the new
// entry takes its place (a splice). A chain therefore always holds entries
// that share a home slot, with the most recently inserted one at its head.
// Keys that never collided are found without following any link.
//
// Chain links are arena indexes rather than pointers. Every arena node is
// referenced by exactly one link and the whole arena is released at once,
// so nodes cannot dangle or be released twice.
//
// # Slot lifecycle
//
// Every slot is empty, full or invalid:
//
//	empty --insert--> full --erase--> invalid --insert--> full
//
// Erase turns a slot into a tombstone (invalid) without unlinking it, so
// lookups continue through it to later nodes of the chain. A later insert
// into the same chain reuses the first tombstone it finds; the rest are
// dropped when the table is resized, rehashed or cleared.
//
// # Growth
//
// Before an entry is added, the table grows if Len()/Capacity() has reached
// the load factor (0.6 by default). The new capacity comes from a
// GrowthPolicy, doubling by default. Growth allocates a new bucket array,
// rehashes every live entry into it and only then installs it, so a
// panicking Allocator leaves the table as it was.
//
// # Errors
//
// Missing keys and duplicate inserts are ordinary results reported through
// return values. Violated preconditions, such as Map.At on a missing key or
// invalid options, panic.
package hashtable

import (
	"fmt"
	"math"
	"strings"
)

const (
	debug = false

	// DefaultCapacity is the number of home slots allocated by New when no
	// capacity is specified.
	DefaultCapacity = 50

	// DefaultLoadFactor is the occupancy at which a Map grows unless
	// WithLoadFactor says otherwise.
	DefaultLoadFactor = 0.6
)

// GrowthPolicy computes the capacity to grow to once the load factor is
// reached. A result that is not larger than capacity is replaced with
// capacity+1.
type GrowthPolicy func(capacity int) int

// DoublingGrowth doubles the capacity. It is the default GrowthPolicy.
func DoublingGrowth(capacity int) int {
	return 2 * capacity
}

// QuadraticGrowth grows the capacity to capacity*capacity - capacity, which
// rehashes rarely at the cost of heavy overallocation for large tables. It
// falls back to doubling where the product would overflow.
func QuadraticGrowth(capacity int) int {
	if capacity <= 0 {
		return 1
	}
	if capacity > math.MaxInt/capacity {
		return DoublingGrowth(capacity)
	}
	return capacity*capacity - capacity
}

// Map is an unordered map from keys to values with Insert, Put, Find, Erase
// and All operations. Colliding keys are chained through overflow nodes
// hanging off their shared home slot. By default, a Map[K,V] uses the hash
// function returned by DefaultHash, though a different hash function can be
// specified using the WithHash option.
//
// A Map is NOT goroutine-safe.
type Map[K comparable, V any] struct {
	// The hash function for keys of type K. It is fixed at construction.
	hash HashFunc[K]
	// The allocator to use for the bucket array and overflow arena.
	allocator Allocator[K, V]
	// buckets is replaced wholesale on every resize. An iteration holds on
	// to the array it started with.
	buckets *bucketArray[K, V]
	// The number of full slots (i.e. the number of elements in the map).
	// Tombstones are not counted.
	used       int
	loadFactor float64
	growth     GrowthPolicy
}

// New constructs a new Map with the specified initial capacity. If capacity
// is 0 the map starts out with DefaultCapacity home slots. A negative
// capacity panics.
func New[K comparable, V any](capacity int, options ...option[K, V]) *Map[K, V] {
	if capacity < 0 {
		panic(fmt.Sprintf("hashtable: negative capacity %d", capacity))
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	m := &Map[K, V]{
		allocator:  defaultAllocator[K, V]{},
		loadFactor: DefaultLoadFactor,
		growth:     DoublingGrowth,
	}
	for _, op := range options {
		op.apply(m)
	}
	if m.hash == nil {
		m.hash = DefaultHash[K]()
	}

	m.buckets = newBucketArray(capacity, m.allocator)
	m.checkInvariants()
	return m
}

// Close closes the map, releasing any memory back to its configured
// allocator. It is unnecessary to close a map using the default allocator. It
// is invalid to use a Map after it has been closed, though Close itself is
// idempotent.
func (m *Map[K, V]) Close() {
	if m.allocator != nil {
		m.buckets.release(m.allocator)
	}
	m.buckets = &bucketArray[K, V]{}
	m.used = 0
	m.allocator = nil
}

// index returns the home index of key in a bucket array of the given
// capacity.
func (m *Map[K, V]) index(key K, capacity int) int {
	return int(m.hash(key) % uint64(capacity))
}

// lookup returns the full slot holding key, or nil.
//
// The whole chain rooted at the home index is always walked. A home slot
// that is empty or invalid does not end the search early since a later node
// in the chain may still hold the key.
func (m *Map[K, V]) lookup(key K) *Slot[K, V] {
	b := m.buckets
	if b.capacity() == 0 {
		return nil
	}
	i := m.index(key, b.capacity())
	s := b.walk(i, key)
	if debug {
		fmt.Printf("lookup(%v): index=%d chain=%d found=%t\n", key, i, b.chainLen(i), s != nil)
	}
	return s
}

// Insert adds key with the associated value and returns true. If key is
// already present Insert returns false and leaves the map untouched; the
// existing value is not overwritten. A successful Insert invalidates
// pointers previously returned by At.
func (m *Map[K, V]) Insert(key K, value V) bool {
	if m.lookup(key) != nil {
		if debug {
			fmt.Printf("insert(%v): duplicate\n", key)
		}
		return false
	}
	m.uncheckedInsert(key, value)
	return true
}

// Put inserts an entry into the map, overwriting an existing value if an
// entry with the same key already exists. Inserting a new key invalidates
// pointers previously returned by At.
func (m *Map[K, V]) Put(key K, value V) {
	if s := m.lookup(key); s != nil {
		s.value = value
		return
	}
	m.uncheckedInsert(key, value)
}

// uncheckedInsert adds an entry known not to be in the map, growing the map
// first if the load factor has been reached.
func (m *Map[K, V]) uncheckedInsert(key K, value V) {
	if m.overloaded() {
		m.grow()
	}
	b := m.buckets
	b.place(m.index(key, b.capacity()), key, value, m.allocator)
	m.used++
	m.checkInvariants()
}

// overloaded reports whether the occupancy has reached the load factor.
func (m *Map[K, V]) overloaded() bool {
	return float64(m.used) >= m.loadFactor*float64(m.buckets.capacity())
}

func (m *Map[K, V]) grow() {
	capacity := m.buckets.capacity()
	newCapacity := m.growth(capacity)
	if newCapacity <= capacity {
		newCapacity = capacity + 1
	}
	m.resize(newCapacity)
}

// Find retrieves the value from the map for the specified key, returning
// ok=false if the key is not present.
func (m *Map[K, V]) Find(key K) (value V, ok bool) {
	if s := m.lookup(key); s != nil {
		return s.value, true
	}
	return value, false
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	return m.lookup(key) != nil
}

// At returns a pointer to the value stored for key, which may be used to
// modify it in place. The pointer is valid only until the next Insert, Put
// of a new key, Reserve, Rehash, Clear or Close. An insert into the same
// chain moves the previous home occupant into an overflow node and reuses
// its slot, so a stale pointer may alias another key's value. At panics if
// key is not present; use Find when absence is expected.
func (m *Map[K, V]) At(key K) *V {
	s := m.lookup(key)
	if s == nil {
		panic(fmt.Sprintf("hashtable: key %v not found", key))
	}
	return &s.value
}

// Erase removes key from the map, returning false if it was not present.
// The slot becomes a tombstone: it stays linked into its chain until an
// insert reuses it or the next resize, Rehash or Clear drops it.
func (m *Map[K, V]) Erase(key K) bool {
	s := m.lookup(key)
	if s == nil {
		return false
	}
	s.erase()
	m.used--
	if debug {
		fmt.Printf("erase(%v): used=%d\n", key, m.used)
	}
	m.checkInvariants()
	return true
}

// Clear deletes all entries from the map resulting in an empty map. The
// capacity is retained.
func (m *Map[K, V]) Clear() {
	m.buckets.reset()
	m.used = 0
	m.checkInvariants()
}

// Reserve resizes the map to exactly capacity home slots, rehashing every
// entry. Unlike the automatic growth, Reserve may shrink the map; entries
// are never dropped since chains can hold any number of them, but Reserve
// below Len leaves the map over its load factor and the next insert grows
// it again. Reserve panics if capacity is not positive.
func (m *Map[K, V]) Reserve(capacity int) {
	if capacity <= 0 {
		panic(fmt.Sprintf("hashtable: invalid capacity %d", capacity))
	}
	m.resize(capacity)
}

// Rehash rebuilds the map at its current capacity, discarding tombstones
// and the overflow nodes left behind by erased entries.
func (m *Map[K, V]) Rehash() {
	m.Reserve(m.buckets.capacity())
}

// resize allocates a bucket array of newCapacity home slots, places every
// live entry of the current array into it and then installs it in place of
// the current array, which is released. Nothing about the map changes
// unless the whole procedure completes.
func (m *Map[K, V]) resize(newCapacity int) {
	old := m.buckets
	if debug {
		fmt.Printf("resize: capacity=%d->%d used=%d overflow=%d\n",
			old.capacity(), newCapacity, m.used, old.overflowUsed)
	}

	b := newBucketArray(newCapacity, m.allocator)
	done := false
	defer func() {
		if !done {
			// An allocation failed part way through. Give back what was
			// obtained for the new array and leave the old one in place.
			b.release(m.allocator)
		}
	}()
	old.each(func(s *Slot[K, V]) bool {
		b.push(m.index(s.key, newCapacity), s.key, s.value, m.allocator)
		return true
	})
	done = true

	m.buckets = b
	old.release(m.allocator)
	m.checkInvariants()
}

// All calls yield sequentially for each key and value present in the map. If
// yield returns false, range stops the iteration. The map can be mutated
// during iteration, though there is no guarantee that the mutations will be
// visible to the iteration, and an entry moved by a splice may be skipped or
// seen twice.
//
// All has the signature of an iter.Seq2, so a Map can be ranged over:
//
//	for k, v := range m.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	// Hold on to the current bucket array so that iteration remains valid
	// if the map is resized during iteration.
	m.buckets.each(func(s *Slot[K, V]) bool {
		return yield(s.key, s.value)
	})
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.used
}

// Capacity returns the number of home slots in the map.
func (m *Map[K, V]) Capacity() int {
	return m.buckets.capacity()
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		m.validate()
	}
}

// validate panics with a dump of the map if its structure is inconsistent.
func (m *Map[K, V]) validate() {
	b := m.buckets
	capacity := b.capacity()
	linked := make([]bool, b.overflowUsed)
	var used int
	for i := 0; i < capacity; i++ {
		s := &b.slots[i]
		if s.state == slotEmpty && s.next != noLink {
			panic(fmt.Sprintf("invariant failed: slot(%d): empty slot has a chain\n%s",
				i, m.debugString()))
		}
		for {
			if s.full() {
				used++
				if j := m.index(s.key, capacity); j != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v has home %d\n%s",
						i, s.key, j, m.debugString()))
				}
				// The first match in the chain must be this slot,
				// otherwise the key is present twice. A key that is not
				// equal to itself, such as NaN, never matches and may
				// legitimately appear any number of times.
				if s.key == s.key && b.walk(i, s.key) != s {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v is duplicated\n%s",
						i, s.key, m.debugString()))
				}
			}
			if s.next == noLink {
				break
			}
			n := s.next.index()
			if n < 0 || n >= b.overflowUsed {
				panic(fmt.Sprintf("invariant failed: slot(%d): link to unallocated node %d\n%s",
					i, n, m.debugString()))
			}
			if linked[n] {
				panic(fmt.Sprintf("invariant failed: slot(%d): node %d linked twice\n%s",
					i, n, m.debugString()))
			}
			linked[n] = true
			s = b.node(s.next)
			if s.state == slotEmpty {
				panic(fmt.Sprintf("invariant failed: slot(%d): empty node %d in chain\n%s",
					i, n, m.debugString()))
			}
		}
	}
	for n, ok := range linked {
		if !ok {
			panic(fmt.Sprintf("invariant failed: node %d is not linked\n%s", n, m.debugString()))
		}
	}

	if used != m.used {
		panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
			used, m.used, m.debugString()))
	}
}

func (m *Map[K, V]) debugString() string {
	b := m.buckets
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  overflow=%d/%d  load-factor=%.2f\n",
		b.capacity(), m.used, b.overflowUsed, len(b.overflow), m.loadFactor)
	for i := range b.slots {
		s := &b.slots[i]
		if s.state == slotEmpty && s.next == noLink {
			continue
		}
		fmt.Fprintf(&buf, "  %4d:", i)
		for {
			switch s.state {
			case slotFull:
				fmt.Fprintf(&buf, " %v", s.key)
			default:
				fmt.Fprintf(&buf, " <%s>", s.state)
			}
			if s.next == noLink {
				break
			}
			fmt.Fprintf(&buf, " ->[%d]", s.next.index())
			s = b.node(s.next)
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
