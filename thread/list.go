package thread

// List is an intrusive doubly-linked list of TCBs sorted by
// EffectivePriority descending, with FIFO ordering preserved inside a
// priority band. A TCB belongs to at most one List at a time; List
// operations take O(1) for splice-at-known-position and O(n) for the
// priority search, matching the scheduler's teacher-shaped cost model
// (n bounded by thread count, not by queue/timer capacity).
type List struct {
	head, tail *TCB
	len        int
}

// Len returns the number of TCBs currently on the list.
func (l *List) Len() int { return l.len }

// Empty reports whether the list has no TCBs.
func (l *List) Empty() bool { return l.len == 0 }

// Front returns the head TCB (highest effective priority, oldest in its
// band), or nil if the list is empty.
func (l *List) Front() *TCB { return l.head }

// linkBefore inserts t immediately before mark (or at the tail if mark is
// nil), assuming t is not currently linked anywhere.
func (l *List) linkBefore(t, mark *TCB) {
	if mark == nil {
		t.prev = l.tail
		t.next = nil
		if l.tail != nil {
			l.tail.next = t
		} else {
			l.head = t
		}
		l.tail = t
	} else {
		t.next = mark
		t.prev = mark.prev
		if mark.prev != nil {
			mark.prev.next = t
		} else {
			l.head = t
		}
		mark.prev = t
	}
	l.len++
	t.list = l
}

// unlink removes t from whatever position it occupies in this list,
// assuming t.list == l.
func (l *List) unlink(t *TCB) {
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		l.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.prev, t.next, t.list = nil, nil, nil
	l.len--
}

// findInsertPosition returns the first node whose effective priority is
// strictly lower than t's, i.e. the node t must be inserted before to
// preserve descending-priority / FIFO-within-band order. Returns nil if
// t belongs at the tail.
func (l *List) findInsertPosition(t *TCB) *TCB {
	for n := l.head; n != nil; n = n.next {
		if n.EffectivePriority < t.EffectivePriority {
			return n
		}
	}
	return nil
}

// PushSorted inserts t (which must not currently belong to any list) into
// its priority-sorted position, at the tail of its band.
func (l *List) PushSorted(t *TCB) {
	l.linkBefore(t, l.findInsertPosition(t))
}

// PopFront removes and returns the head TCB, or nil if empty.
func (l *List) PopFront() *TCB {
	t := l.head
	if t == nil {
		return nil
	}
	l.unlink(t)
	return t
}

// Erase removes t from this list. It is a no-op if t does not currently
// belong to this list.
func (l *List) Erase(t *TCB) {
	if t.list != l {
		return
	}
	l.unlink(t)
}

// SpliceSorted removes t from other and inserts it into l at its
// priority-sorted position. t must currently belong to other.
func (l *List) SpliceSorted(other *List, t *TCB) {
	if t.list == other {
		other.unlink(t)
	}
	l.PushSorted(t)
}

// Reinsert re-sorts t within its current list after its effective
// priority has changed. With toTail false (the default call-site
// behavior), t moves to the head of its new priority band, matching the
// core's "just-changed-priority threads lead their band" rule. With
// toTail true, t is placed at the tail of its band instead, the
// POSIX-like "moves behind peers already in that band" variant (spec
// ss9's open question on setPriority(alwaysBehind)).
func (l *List) Reinsert(t *TCB, toTail bool) {
	if t.list != l {
		return
	}
	l.unlink(t)
	if toTail {
		l.linkBefore(t, l.findInsertPosition(t))
		return
	}
	mark := l.findHeadOfBandOrLower(t)
	l.linkBefore(t, mark)
}

// CountAtPriority returns how many TCBs currently on the list have
// exactly the given effective priority. The list is sorted descending, so
// the walk stops as soon as it passes below priority; used by the
// scheduler's round-robin peer-exists check (spec's switch-required
// predicate (c)).
func (l *List) CountAtPriority(priority uint8) int {
	n := 0
	for node := l.head; node != nil; node = node.next {
		if node.EffectivePriority == priority {
			n++
		} else if node.EffectivePriority < priority {
			break
		}
	}
	return n
}

// findHeadOfBandOrLower returns the first node with effective priority
// less than or equal to t's, placing t ahead of any existing peer at the
// same priority.
func (l *List) findHeadOfBandOrLower(t *TCB) *TCB {
	for n := l.head; n != nil; n = n.next {
		if n.EffectivePriority <= t.EffectivePriority {
			return n
		}
	}
	return nil
}
