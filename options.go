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
	"fmt"
	"math"
)

// option provide an interface to do work on Map while it is being created.
type option[K comparable, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K comparable, V any] struct {
	hash HashFunc[K]
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	if op.hash == nil {
		panic("hashtable: nil hash function")
	}
	m.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map[K,V].
// The hash function is fixed for the lifetime of the Map. Keys that compare
// equal must hash equal.
func WithHash[K comparable, V any](hash HashFunc[K]) option[K, V] {
	return hashOption[K, V]{hash}
}

type loadFactorOption[K comparable, V any] struct {
	loadFactor float64
}

func (op loadFactorOption[K, V]) apply(m *Map[K, V]) {
	if !(op.loadFactor > 0) || math.IsInf(op.loadFactor, 0) {
		panic(fmt.Sprintf("hashtable: invalid load factor %v", op.loadFactor))
	}
	m.loadFactor = op.loadFactor
}

// WithLoadFactor is an option to specify the occupancy ratio (Len/Capacity)
// at which an insert first grows the Map. Values above 1 are permitted since
// colliding entries live in overflow chains rather than in the bucket array.
func WithLoadFactor[K comparable, V any](loadFactor float64) option[K, V] {
	return loadFactorOption[K, V]{loadFactor}
}

type growthOption[K comparable, V any] struct {
	growth GrowthPolicy
}

func (op growthOption[K, V]) apply(m *Map[K, V]) {
	if op.growth == nil {
		panic("hashtable: nil growth policy")
	}
	m.growth = op.growth
}

// WithGrowth is an option to specify how the capacity grows once the load
// factor is reached. See DoublingGrowth and QuadraticGrowth.
func WithGrowth[K comparable, V any](growth GrowthPolicy) option[K, V] {
	return growthOption[K, V]{growth}
}

// Allocator specifies an interface for allocating and releasing memory used
// by a Map. The default allocator utilizes Go's builtin make() and allows the
// GC to reclaim memory.
//
// Both the bucket array and the overflow arena are allocated through
// AllocSlots. Every slice returned by AllocSlots is passed to FreeSlots
// exactly once, provided Map.Close is called. An allocator signals
// exhaustion by panicking; the Map is left unchanged when that happens.
type Allocator[K comparable, V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[K,V], n).
	AllocSlots(n int) []Slot[K, V]

	// FreeSlots can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by AllocSlots.
	FreeSlots(v []Slot[K, V])
}

type defaultAllocator[K comparable, V any] struct{}

func (defaultAllocator[K, V]) AllocSlots(n int) []Slot[K, V] {
	return make([]Slot[K, V], n)
}

func (defaultAllocator[K, V]) FreeSlots(v []Slot[K, V]) {
}

type allocatorOption[K comparable, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	if op.allocator == nil {
		panic("hashtable: nil allocator")
	}
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[K,V].
func WithAllocator[K comparable, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
