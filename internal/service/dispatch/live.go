package dispatch

// mailbox holds at most one unread value; a newer value replaces it.
// It has a single writer.
type mailbox[T any] struct {
	ch chan T
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{ch: make(chan T, 1)}
}

func (m *mailbox[T]) put(v T) {
	select {
	case <-m.ch:
	default:
	}
	m.ch <- v
}

// versioned keeps the records of a live query by id and drops events older
// than what it has already seen.
type versioned[T any] struct {
	items    map[string]T
	versions map[string]int64
}

func newVersioned[T any]() *versioned[T] {
	return &versioned[T]{
		items:    make(map[string]T),
		versions: make(map[string]int64),
	}
}

// observe returns false for a version not newer than the last one seen.
func (v *versioned[T]) observe(id string, version int64) bool {
	if last, ok := v.versions[id]; ok && version <= last {
		return false
	}
	v.versions[id] = version
	return true
}

// update stores or removes item and reports whether the set changed.
func (v *versioned[T]) update(id string, item T, keep bool) bool {
	_, had := v.items[id]
	if keep {
		v.items[id] = item
		return true
	}
	if had {
		delete(v.items, id)
		return true
	}
	return false
}

func (v *versioned[T]) reset() {
	v.items = make(map[string]T)
	v.versions = make(map[string]int64)
}
