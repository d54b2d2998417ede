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

import (
	"hash/maphash"
	"math"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// HashFunc maps a key to a 64-bit hash. The home index of a key is
// hash(key) % capacity, so a HashFunc need not know about the table size.
// A HashFunc must be deterministic, and keys that compare equal must hash
// equal. Collisions are tolerated at any rate, including a constant hash.
type HashFunc[K any] func(key K) uint64

// IntegerHash hashes any integer kind, including runes and bytes.
func IntegerHash[K constraints.Integer](key K) uint64 {
	return mix64(uint64(key))
}

// FloatHash hashes any float kind. Positive and negative zero compare equal
// and therefore hash equal. NaN keys can be inserted but never found since
// NaN != NaN.
func FloatHash[K constraints.Float](key K) uint64 {
	f := float64(key)
	if f == 0 {
		f = 0
	}
	return mix64(math.Float64bits(f))
}

// StringHash hashes any string kind using xxhash.
func StringHash[K ~string](key K) uint64 {
	return xxhash.Sum64String(string(key))
}

// mix64 is the 64-bit finalizer from MurmurHash3. It spreads the entropy of
// small integers across all 64 bits so that the modulo by capacity does not
// just keep the low bits of the key.
func mix64(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// DefaultHash returns the hash function a Map uses when no WithHash option
// is supplied. Builtin integer, float and string types get a dedicated
// hasher. Every other comparable type, including named integer or string
// types, is hashed with hash/maphash using a seed chosen when DefaultHash is
// called.
func DefaultHash[K comparable]() HashFunc[K] {
	var k K
	var h any
	switch any(k).(type) {
	case int:
		h = HashFunc[int](IntegerHash[int])
	case int8:
		h = HashFunc[int8](IntegerHash[int8])
	case int16:
		h = HashFunc[int16](IntegerHash[int16])
	case int32:
		h = HashFunc[int32](IntegerHash[int32])
	case int64:
		h = HashFunc[int64](IntegerHash[int64])
	case uint:
		h = HashFunc[uint](IntegerHash[uint])
	case uint8:
		h = HashFunc[uint8](IntegerHash[uint8])
	case uint16:
		h = HashFunc[uint16](IntegerHash[uint16])
	case uint32:
		h = HashFunc[uint32](IntegerHash[uint32])
	case uint64:
		h = HashFunc[uint64](IntegerHash[uint64])
	case uintptr:
		h = HashFunc[uintptr](IntegerHash[uintptr])
	case float32:
		h = HashFunc[float32](FloatHash[float32])
	case float64:
		h = HashFunc[float64](FloatHash[float64])
	case string:
		h = HashFunc[string](StringHash[string])
	default:
		seed := maphash.MakeSeed()
		return func(key K) uint64 {
			return maphash.Comparable(seed, key)
		}
	}
	return h.(HashFunc[K])
}
