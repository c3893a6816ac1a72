// Package klist implements the intrusive doubly-linked list used by every
// wait/sleep/block queue in the scheduler. Nodes live inside the objects
// they link (a Task embeds a single Node, so it sits in at most one queue at
// a time); the list never allocates and never owns the elements it threads
// together.
package klist

// Node is the embeddable link. A node not currently queued has Prev, Next,
// and its owning list all nil; a sole member of a list has nil Prev and Next
// but is still linked.
type Node struct {
	Prev, Next *Node
	list       *List

	// Value lets a queue walker recover the owning object from a bare
	// *Node (e.g. the scheduler's sleep-queue walk, or a mutex unblocking
	// its tail-most waiter). The list itself never reads or writes it.
	Value any
}

// Linked reports whether the node currently belongs to a list.
func (n *Node) Linked() bool {
	return n.Prev != nil || n.Next != nil || n.list != nil
}

// List is an intrusive doubly-linked list of Nodes. The zero value is an
// empty list.
type List struct {
	head, tail *Node
	len        int
}

// Len returns the number of nodes currently linked.
func (l *List) Len() int { return l.len }

// PushFront links n at the head of the list. n must not already be linked.
func (l *List) PushFront(n *Node) {
	n.list = l
	n.Prev = nil
	n.Next = l.head
	if l.head != nil {
		l.head.Prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.len++
}

// PushBack links n at the tail of the list. n must not already be linked.
func (l *List) PushBack(n *Node) {
	n.list = l
	n.Next = nil
	n.Prev = l.tail
	if l.tail != nil {
		l.tail.Next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.len++
}

// InsertBefore links n immediately before anchor. anchor must already belong
// to this list; n must not already be linked.
func (l *List) InsertBefore(anchor, n *Node) {
	if anchor == nil {
		l.PushBack(n)
		return
	}
	n.list = l
	n.Next = anchor
	n.Prev = anchor.Prev
	if anchor.Prev != nil {
		anchor.Prev.Next = n
	} else {
		l.head = n
	}
	anchor.Prev = n
	l.len++
}

// Unlink removes n from the list, clearing its links so Node.Linked reports
// false afterward. n must be a member of this list.
func (l *List) Unlink(n *Node) {
	if n.Prev != nil {
		n.Prev.Next = n.Next
	} else if l.head == n {
		l.head = n.Next
	}
	if n.Next != nil {
		n.Next.Prev = n.Prev
	} else if l.tail == n {
		l.tail = n.Prev
	}
	n.Prev = nil
	n.Next = nil
	n.list = nil
	l.len--
}

// Front returns the head node, or nil if the list is empty.
func (l *List) Front() *Node { return l.head }

// Back returns the tail node, or nil if the list is empty.
func (l *List) Back() *Node { return l.tail }

// Find walks the list from the head and returns the first node for which
// pred returns true, or nil. O(n).
func (l *List) Find(pred func(*Node) bool) *Node {
	for n := l.head; n != nil; n = n.Next {
		if pred(n) {
			return n
		}
	}
	return nil
}

// Do calls fn for every node from head to tail. fn must not mutate the list.
func (l *List) Do(fn func(*Node)) {
	for n := l.head; n != nil; n = n.Next {
		fn(n)
	}
}
