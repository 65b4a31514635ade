// The access log keeps a bounded, most-recent-first list of the keys accessed for one cache type. A re-access
// moves the key to the front instead of duplicating it, so the log is both a recency ranking and a dedup set.
// It is an intrusive doubly linked list with a key index; the owner (the statistics tracker) provides locking.

package cache

// accessLogNode is one keyed node of the access log's doubly linked list.
type accessLogNode struct {
	key  string
	next *accessLogNode
	prev *accessLogNode
}

// accessLog is a capped move-to-front list of accessed keys. Not safe for concurrent use on its own.
type accessLog struct {
	capacity int
	head     *accessLogNode
	tail     *accessLogNode
	index    map[string]*accessLogNode
}

// newAccessLog creates an access log bounded to the given number of distinct keys.
func newAccessLog(capacity int) *accessLog {
	if capacity <= 0 {
		capacity = 1
	}
	return &accessLog{capacity: capacity, index: make(map[string]*accessLogNode, capacity)}
}

// Record notes an access to the key. A known key moves to the front; a new key is pushed to the front and, if
// the log is over capacity, the least recently accessed key falls off the back.
func (l *accessLog) Record(key string) {
	if node, known := l.index[key]; known {
		l.unlink(node)
		l.pushFront(node)
		return
	}
	node := &accessLogNode{key: key}
	l.index[key] = node
	l.pushFront(node)
	if len(l.index) > l.capacity {
		oldest := l.tail
		l.unlink(oldest)
		delete(l.index, oldest.key)
	}
}

// Keys returns a most-recent-first snapshot of the logged keys.
func (l *accessLog) Keys() []string {
	keys := make([]string, 0, len(l.index))
	for node := l.head; node != nil; node = node.next {
		keys = append(keys, node.key)
	}
	return keys
}

// Len returns the number of distinct keys currently logged.
func (l *accessLog) Len() int {
	return len(l.index)
}

func (l *accessLog) pushFront(node *accessLogNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	} else { // List was empty.
		l.tail = node
	}
	l.head = node
}

func (l *accessLog) unlink(node *accessLogNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else { // Node is the head.
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else { // Node is the tail.
		l.tail = node.prev
	}
	node.next = nil
	node.prev = nil
}
