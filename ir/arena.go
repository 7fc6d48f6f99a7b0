package ir

import (
	"errors"
	"fmt"
	"iter"
)

// ErrHandleOutOfBounds is returned when a handle does not resolve within the
// arena it is used against. This only happens when a handle issued by a
// different arena (or a different Module) is misused.
var ErrHandleOutOfBounds = errors.New("handle out of bounds")

// Handle is a stable index into an Arena of T.
// Handles are never reused or invalidated once issued.
type Handle[T any] uint32

// Index returns the arena index of the handle.
func (h Handle[T]) Index() int { return int(h) }

// Handle aliases for the arenas a Module owns.
type (
	TypeHandle           = Handle[Type]
	ConstantHandle       = Handle[Constant]
	GlobalVariableHandle = Handle[GlobalVariable]
	FunctionHandle       = Handle[Function]
	EntryPointHandle     = Handle[EntryPoint]
	ExpressionHandle     = Handle[Expression]
	LocalVariableHandle  = Handle[LocalVariable]
)

// Arena is an append-only collection addressed by Handle.
// The zero value is an empty arena ready for use.
type Arena[T any] struct {
	items []T
}

// NewArena creates an arena with room for capacity elements.
func NewArena[T any](capacity int) Arena[T] {
	return Arena[T]{items: make([]T, 0, capacity)}
}

// Append stores value and returns its handle.
func (a *Arena[T]) Append(value T) Handle[T] {
	h := Handle[T](len(a.items))
	a.items = append(a.items, value)
	return h
}

// Get returns a pointer to the element behind h.
func (a *Arena[T]) Get(h Handle[T]) (*T, error) {
	if !a.Contains(h) {
		return nil, fmt.Errorf("%w: %d (arena length %d)", ErrHandleOutOfBounds, h, len(a.items))
	}
	return &a.items[h], nil
}

// Contains reports whether h resolves within the arena.
func (a *Arena[T]) Contains(h Handle[T]) bool {
	return int(h) < len(a.items)
}

// Len returns the number of elements in the arena.
func (a *Arena[T]) Len() int {
	return len(a.items)
}

// All iterates over the arena in insertion order.
func (a *Arena[T]) All() iter.Seq2[Handle[T], *T] {
	return func(yield func(Handle[T], *T) bool) {
		for i := range a.items {
			if !yield(Handle[T](i), &a.items[i]) {
				return
			}
		}
	}
}

// Slice returns the arena contents. Callers must not modify the result.
func (a *Arena[T]) Slice() []T {
	return a.items
}

// at is the unchecked lookup used after the handle pass has run.
func (a *Arena[T]) at(h Handle[T]) *T {
	return &a.items[h]
}
