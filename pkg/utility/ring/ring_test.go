package ring

import (
	"testing"
)

func TestBuffer_AddAndGet(t *testing.T) {
	r := NewBuffer[int](3)

	if !r.IsEmpty() || r.Size() != 0 || r.Capacity() != 3 {
		t.Fatal("fresh buffer state broken")
	}

	r.Add(1)
	r.Add(2)
	r.Add(3)

	if !r.IsFull() {
		t.Error("expected full buffer")
	}
	if r.Get(0) != 3 || r.Get(1) != 2 || r.Get(2) != 1 {
		t.Error("newest-first indexing broken")
	}
	if r.Latest() != 3 || r.Oldest() != 1 {
		t.Error("Latest/Oldest broken")
	}
}

func TestBuffer_OverwritesOldest(t *testing.T) {
	r := NewBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Add(i)
	}

	if r.Size() != 3 {
		t.Fatalf("size = %d", r.Size())
	}
	if r.Oldest() != 3 || r.Latest() != 5 {
		t.Errorf("window = [%d, %d]; want [3, 5]", r.Oldest(), r.Latest())
	}
}

func TestBuffer_ToSliceFifo(t *testing.T) {
	r := NewBuffer[string](4)

	if r.ToSliceFifo() != nil {
		t.Error("empty buffer must yield nil")
	}

	r.Add("a")
	r.Add("b")
	r.Add("c")

	got := r.ToSliceFifo()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s; want %s", i, got[i], want[i])
		}
	}
}

func TestBuffer_ForEachFifo(t *testing.T) {
	r := NewBuffer[int](2)
	r.Add(1)
	r.Add(2)
	r.Add(3)

	var visited []int
	r.ForEachFifo(func(v int) {
		visited = append(visited, v)
	})

	if len(visited) != 2 || visited[0] != 2 || visited[1] != 3 {
		t.Errorf("visited = %v; want [2 3]", visited)
	}
}

func TestBuffer_Clear(t *testing.T) {
	r := NewBuffer[int](2)
	r.Add(1)
	r.Clear()

	if !r.IsEmpty() {
		t.Error("expected empty after clear")
	}
}

func TestBuffer_PanicsOnBadAccess(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewBuffer[int](1).Latest()
}

func TestBuffer_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewBuffer[int](0)
}
