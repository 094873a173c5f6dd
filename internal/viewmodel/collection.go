package viewmodel

// Position says where InsertIfAbsent puts a new item.
type Position int

const (
	Front Position = iota // newest first: feed, notifications, conversations
	Back                  // oldest first: chat messages
)

// Collection is an ordered list of server records keyed by id. It is not
// safe for concurrent use; screens guard it with their own lock.
type Collection[T any] struct {
	items    []T
	id       func(T) string
	clientID func(T) string
}

// NewCollection builds a collection. clientID may be nil for records that
// never carry a pending marker.
func NewCollection[T any](id func(T) string, clientID func(T) string) *Collection[T] {
	if clientID == nil {
		clientID = func(T) string { return "" }
	}
	return &Collection[T]{id: id, clientID: clientID}
}

// Replace swaps the whole content, used when hydrating.
func (c *Collection[T]) Replace(items []T) {
	c.items = append(make([]T, 0, len(items)), items...)
}

// InsertIfAbsent adds item unless a record with the same id is present.
// A pending record carrying the same client marker is replaced in place
// instead. It reports whether the collection grew.
func (c *Collection[T]) InsertIfAbsent(item T, pos Position) bool {
	id := c.id(item)
	if c.IndexOf(id) >= 0 {
		return false
	}
	if cid := c.clientID(item); cid != "" {
		for i := range c.items {
			if c.clientID(c.items[i]) == cid {
				c.items[i] = item
				return false
			}
		}
	}

	if pos == Front {
		c.items = append([]T{item}, c.items...)
	} else {
		c.items = append(c.items, item)
	}
	return true
}

// InsertAt puts item at index i, clamped to the collection bounds.
func (c *Collection[T]) InsertAt(i int, item T) {
	if i < 0 {
		i = 0
	}
	if i > len(c.items) {
		i = len(c.items)
	}
	c.items = append(c.items, item)
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = item
}

// ReplaceByID swaps the record with the given id. It reports whether one was found.
func (c *Collection[T]) ReplaceByID(id string, item T) bool {
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	c.items[i] = item
	return true
}

// Update applies fn to the record with the given id in place.
func (c *Collection[T]) Update(id string, fn func(*T)) bool {
	i := c.IndexOf(id)
	if i < 0 {
		return false
	}
	fn(&c.items[i])
	return true
}

// RemoveByID drops the record with the given id and returns it with its former index.
func (c *Collection[T]) RemoveByID(id string) (T, int, bool) {
	var zero T
	i := c.IndexOf(id)
	if i < 0 {
		return zero, -1, false
	}
	item := c.items[i]
	c.items = append(c.items[:i], c.items[i+1:]...)
	return item, i, true
}

// RemoveWhere drops every record matching pred and returns them in order.
func (c *Collection[T]) RemoveWhere(pred func(T) bool) []T {
	var removed []T
	kept := c.items[:0]
	for _, it := range c.items {
		if pred(it) {
			removed = append(removed, it)
			continue
		}
		kept = append(kept, it)
	}
	var zero T
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = zero
	}
	c.items = kept
	return removed
}

// MoveToFront moves the record with the given id to index 0.
func (c *Collection[T]) MoveToFront(id string) {
	i := c.IndexOf(id)
	if i <= 0 {
		return
	}
	item := c.items[i]
	copy(c.items[1:i+1], c.items[:i])
	c.items[0] = item
}

func (c *Collection[T]) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.items {
		if c.id(c.items[i]) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) Get(id string) (T, bool) {
	var zero T
	i := c.IndexOf(id)
	if i < 0 {
		return zero, false
	}
	return c.items[i], true
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Items returns a copy of the records in order.
func (c *Collection[T]) Items() []T {
	return append(make([]T, 0, len(c.items)), c.items...)
}
