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

// Each slot in the table carries a lifecycle state:
//
//	  empty: never used since the bucket array was allocated (or cleared)
//	   full: holds a live key and value
//	invalid: erased; the key and value are zeroed but the next link is
//	         retained so that lookups continue down the chain
//
// The zero value of a Slot is an empty slot with no overflow link.
type slotState uint8

const (
	slotEmpty slotState = iota
	slotFull
	slotInvalid
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotFull:
		return "full"
	case slotInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// link addresses a node in the overflow arena. The arena index is stored
// off by one so that the zero value terminates a chain.
type link uint32

const noLink link = 0

func makeLink(i int) link {
	return link(i + 1)
}

func (l link) index() int {
	return int(l) - 1
}

// Slot holds a key and value along with the bookkeeping used to chain
// colliding entries. Slots are only exposed so that an Allocator can
// allocate them.
type Slot[K comparable, V any] struct {
	key   K
	value V
	state slotState
	next  link
}

// full reports whether the slot holds a live entry.
func (s *Slot[K, V]) full() bool {
	return s.state == slotFull
}

// matches reports whether the slot is full and holds key.
func (s *Slot[K, V]) matches(key K) bool {
	return s.state == slotFull && s.key == key
}

// fill stores key and value and marks the slot full. The next link is left
// untouched.
func (s *Slot[K, V]) fill(key K, value V) {
	s.key = key
	s.value = value
	s.state = slotFull
}

// erase turns a full slot into a tombstone. The storage is zeroed so the
// slot does not retain references, but the chain link survives.
func (s *Slot[K, V]) erase() {
	var k K
	var v V
	s.key = k
	s.value = v
	s.state = slotInvalid
}
