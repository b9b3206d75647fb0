package thread

import "testing"

func newTestTCB(name string, priority uint8) *TCB {
	return &TCB{Name: name, BasePriority: priority, EffectivePriority: priority, State: Runnable}
}

func namesOf(l *List) []string {
	var got []string
	for n := l.Front(); n != nil; n = n.next {
		got = append(got, n.Name)
	}
	return got
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestList_PushSorted_OrdersByPriorityDescending(t *testing.T) {
	var l List
	low := newTestTCB("low", 1)
	high := newTestTCB("high", 9)
	mid := newTestTCB("mid", 5)

	l.PushSorted(low)
	l.PushSorted(high)
	l.PushSorted(mid)

	want := []string{"high", "mid", "low"}
	if got := namesOf(&l); !sliceEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestList_PushSorted_FIFOWithinBand(t *testing.T) {
	var l List
	a := newTestTCB("a", 5)
	b := newTestTCB("b", 5)
	c := newTestTCB("c", 5)

	l.PushSorted(a)
	l.PushSorted(b)
	l.PushSorted(c)

	want := []string{"a", "b", "c"}
	if got := namesOf(&l); !sliceEqual(got, want) {
		t.Errorf("order = %v, want %v (FIFO within band)", got, want)
	}
}

func TestList_PopFront_EmptyReturnsNil(t *testing.T) {
	var l List
	if got := l.PopFront(); got != nil {
		t.Errorf("PopFront() on empty list = %v, want nil", got)
	}
}

func TestList_PopFront_ReturnsHeadAndUnlinks(t *testing.T) {
	var l List
	high := newTestTCB("high", 9)
	low := newTestTCB("low", 1)
	l.PushSorted(low)
	l.PushSorted(high)

	got := l.PopFront()
	if got != high {
		t.Errorf("PopFront() = %v, want high", got.Name)
	}
	if got.CurrentList() != nil {
		t.Error("expected popped TCB's CurrentList() to be nil")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestList_Erase_MiddleNode(t *testing.T) {
	var l List
	a := newTestTCB("a", 3)
	b := newTestTCB("b", 2)
	c := newTestTCB("c", 1)
	l.PushSorted(a)
	l.PushSorted(b)
	l.PushSorted(c)

	l.Erase(b)

	want := []string{"a", "c"}
	if got := namesOf(&l); !sliceEqual(got, want) {
		t.Errorf("order after Erase = %v, want %v", got, want)
	}
	if b.CurrentList() != nil {
		t.Error("expected erased TCB's CurrentList() to be nil")
	}
}

func TestList_Erase_NotOnListIsNoop(t *testing.T) {
	var l1, l2 List
	a := newTestTCB("a", 1)
	l1.PushSorted(a)

	l2.Erase(a)

	if l1.Len() != 1 {
		t.Errorf("Erase on wrong list mutated it: Len() = %d, want 1", l1.Len())
	}
}

func TestList_SpliceSorted_MovesBetweenLists(t *testing.T) {
	var runnable, suspended List
	a := newTestTCB("a", 5)
	suspended.PushSorted(a)

	runnable.SpliceSorted(&suspended, a)

	if suspended.Len() != 0 {
		t.Errorf("suspended.Len() = %d, want 0", suspended.Len())
	}
	if runnable.Len() != 1 || runnable.Front() != a {
		t.Error("expected a to be spliced into runnable")
	}
}

func TestList_Reinsert_HeadOfBand(t *testing.T) {
	var l List
	a := newTestTCB("a", 5)
	b := newTestTCB("b", 5)
	c := newTestTCB("c", 3)
	l.PushSorted(a)
	l.PushSorted(b)
	l.PushSorted(c)

	// b is already in a's band; toTail=false should place it ahead of a
	// within that band.
	b.EffectivePriority = 5
	l.Reinsert(b, false)

	want := []string{"b", "a", "c"}
	if got := namesOf(&l); !sliceEqual(got, want) {
		t.Errorf("order after Reinsert(toTail=false) = %v, want %v", got, want)
	}
}

func TestList_Reinsert_ToTail(t *testing.T) {
	var l List
	a := newTestTCB("a", 5)
	b := newTestTCB("b", 5)
	l.PushSorted(a)
	l.PushSorted(b)

	l.Reinsert(a, true)

	want := []string{"b", "a"}
	if got := namesOf(&l); !sliceEqual(got, want) {
		t.Errorf("order after Reinsert(toTail=true) = %v, want %v", got, want)
	}
}

func TestList_Reinsert_NotOnListIsNoop(t *testing.T) {
	var l1, l2 List
	a := newTestTCB("a", 1)
	l1.PushSorted(a)

	l2.Reinsert(a, false)

	if l1.Len() != 1 {
		t.Error("Reinsert on wrong list mutated the real owner")
	}
}

func TestList_Empty(t *testing.T) {
	var l List
	if !l.Empty() {
		t.Error("expected new list to be Empty()")
	}
	l.PushSorted(newTestTCB("a", 1))
	if l.Empty() {
		t.Error("expected non-empty list after PushSorted")
	}
}
