package ring

import "fmt"

// Buffer is a fixed-capacity ring. Once full, the oldest entry is overwritten.
// The desk uses it as the bounded in-memory event log.
type Buffer[T any] struct {
	buffer   []T
	capacity int
	size     int
	tail     int
}

func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("capacity must be positive")
	}
	return &Buffer[T]{
		buffer:   make([]T, capacity),
		capacity: capacity,
	}
}

func (r *Buffer[T]) Size() int {
	return r.size
}

func (r *Buffer[T]) Capacity() int {
	return r.capacity
}

func (r *Buffer[T]) IsEmpty() bool {
	return r.size == 0
}

func (r *Buffer[T]) IsFull() bool {
	return r.size == r.capacity
}

func (r *Buffer[T]) Clear() {
	r.size = 0
	r.tail = 0
}

func (r *Buffer[T]) Add(v T) {
	r.buffer[r.tail] = v
	r.tail = (r.tail + 1) % r.capacity

	if r.size < r.capacity {
		r.size++
	}
}

// Get returns the idx-th newest entry, 0 being the latest.
func (r *Buffer[T]) Get(idx int) T {
	if idx < 0 || idx >= r.size {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, r.size))
	}

	actualIdx := (r.tail - 1 - idx + r.capacity) % r.capacity
	return r.buffer[actualIdx]
}

func (r *Buffer[T]) Latest() T {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(0)
}

func (r *Buffer[T]) Oldest() T {
	if r.size == 0 {
		panic("buffer is empty")
	}
	return r.Get(r.size - 1)
}

func (r *Buffer[T]) ToSliceFifo() []T {
	if r.size == 0 {
		return nil
	}

	result := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		result[i] = r.Get(r.size - 1 - i)
	}
	return result
}

func (r *Buffer[T]) ForEachFifo(f func(T)) {
	for i := r.size - 1; i >= 0; i-- {
		f(r.Get(i))
	}
}
