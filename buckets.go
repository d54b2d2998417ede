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

import "fmt"

// minOverflowSlots is the size of the overflow arena when the first chain
// node is needed.
const minOverflowSlots = 8

// bucketArray is the storage behind a Map: the home slots, one per unit of
// capacity, plus an arena holding the overflow nodes of every chain.
//
//	slots     [ A ][   ][ B ][ C ]
//	             |         |
//	overflow  [ D ][ E ][ F ][   ][   ]...
//	             |
//	             +--> E (via D.next)
//
// A chain starts at a home slot and follows next links through the arena.
// Every node in a chain was displaced from that chain's home slot, and each
// arena node belongs to exactly one chain. The arena is append-only between
// resizes; nodes are never unlinked, so erased entries remain as invalid
// slots until they are reused by an insert into the same chain or dropped by
// the next resize, Rehash or Clear.
type bucketArray[K comparable, V any] struct {
	slots []Slot[K, V]
	// overflow has len equal to its allocated size. Only
	// overflow[:overflowUsed] are linked into chains.
	overflow     []Slot[K, V]
	overflowUsed int
}

func newBucketArray[K comparable, V any](
	capacity int, allocator Allocator[K, V],
) *bucketArray[K, V] {
	return &bucketArray[K, V]{slots: allocator.AllocSlots(capacity)}
}

func (b *bucketArray[K, V]) capacity() int {
	return len(b.slots)
}

// node returns the arena node addressed by l, which must not be noLink.
func (b *bucketArray[K, V]) node(l link) *Slot[K, V] {
	return &b.overflow[l.index()]
}

// walk returns the full slot holding key in the chain rooted at home index
// i, or nil. Invalid slots are stepped over; they never terminate the walk.
func (b *bucketArray[K, V]) walk(i int, key K) *Slot[K, V] {
	s := &b.slots[i]
	for {
		if s.matches(key) {
			return s
		}
		if s.next == noLink {
			return nil
		}
		s = b.node(s.next)
	}
}

// chainLen returns the number of slots, of any state, in the chain rooted at
// home index i. An empty home slot with no chain has length 0.
func (b *bucketArray[K, V]) chainLen(i int) int {
	s := &b.slots[i]
	if s.state == slotEmpty && s.next == noLink {
		return 0
	}
	n := 1
	for s.next != noLink {
		s = b.node(s.next)
		n++
	}
	return n
}

// place stores a key known not to be present in the chain rooted at home
// index i.
//
// An empty or invalid home slot is claimed in place; an invalid one keeps
// its chain. Otherwise the first invalid node further down the chain is
// reused, which bounds the arena under erase/insert churn. Failing both, the
// entry is pushed onto the chain.
func (b *bucketArray[K, V]) place(i int, key K, value V, allocator Allocator[K, V]) {
	home := &b.slots[i]
	if home.state == slotFull {
		for s := home; s.next != noLink; {
			l := s.next
			s = b.node(l)
			if s.state == slotInvalid {
				if debug {
					fmt.Printf("place(%v): index=%d reusing node %d\n", key, i, l.index())
				}
				s.fill(key, value)
				return
			}
		}
	}
	b.push(i, key, value, allocator)
}

// push stores a key known not to be present in the chain rooted at home
// index i without looking for tombstones beyond the home slot. It is used
// directly when filling a freshly allocated array, which has none.
//
// A home slot that is not full is claimed in place. A full home slot is
// spliced: its occupant moves into a fresh overflow node which becomes the
// head of the chain, and the new entry takes the home slot. A newly inserted
// colliding key is therefore found without following a link.
//
// The overflow node is allocated before any slot is modified, so a
// panicking allocator leaves the array unchanged.
func (b *bucketArray[K, V]) push(i int, key K, value V, allocator Allocator[K, V]) {
	home := &b.slots[i]
	if home.state != slotFull {
		if debug {
			fmt.Printf("place(%v): index=%d claiming %s slot\n", key, i, home.state)
		}
		home.fill(key, value)
		return
	}

	l := b.allocNode(allocator)
	// The arena may have been reallocated, but home points into slots which
	// did not move.
	n := b.node(l)
	*n = *home
	home.fill(key, value)
	home.next = l
	if debug {
		fmt.Printf("place(%v): index=%d spliced %v into node %d\n", key, i, n.key, l.index())
	}
}

// allocNode reserves the next arena node, growing the arena if required.
func (b *bucketArray[K, V]) allocNode(allocator Allocator[K, V]) link {
	if b.overflowUsed == len(b.overflow) {
		b.growOverflow(allocator)
	}
	l := makeLink(b.overflowUsed)
	b.overflowUsed++
	return l
}

func (b *bucketArray[K, V]) growOverflow(allocator Allocator[K, V]) {
	n := 2 * len(b.overflow)
	if n < minOverflowSlots {
		n = minOverflowSlots
	}
	overflow := allocator.AllocSlots(n)
	copy(overflow, b.overflow[:b.overflowUsed])
	if len(b.overflow) > 0 {
		allocator.FreeSlots(b.overflow)
	}
	if debug {
		fmt.Printf("overflow: capacity=%d->%d\n", len(b.overflow), n)
	}
	b.overflow = overflow
}

// each calls yield for every full slot, home slots first and then the chain
// hanging off each of them. Iteration stops if yield returns false.
func (b *bucketArray[K, V]) each(yield func(s *Slot[K, V]) bool) bool {
	for i := range b.slots {
		s := &b.slots[i]
		for {
			if s.full() && !yield(s) {
				return false
			}
			if s.next == noLink {
				break
			}
			s = b.node(s.next)
		}
	}
	return true
}

// reset returns every slot to the empty state without releasing memory.
func (b *bucketArray[K, V]) reset() {
	clear(b.slots)
	clear(b.overflow[:b.overflowUsed])
	b.overflowUsed = 0
}

// release hands the slot slices back to the allocator. The fields are left
// in place so that an iteration which started before a resize can finish
// walking the old array, which is safe with the default allocator.
func (b *bucketArray[K, V]) release(allocator Allocator[K, V]) {
	if len(b.slots) > 0 {
		allocator.FreeSlots(b.slots)
	}
	if len(b.overflow) > 0 {
		allocator.FreeSlots(b.overflow)
	}
}
