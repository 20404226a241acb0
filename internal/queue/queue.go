// Package queue provides the bounded candidate heap used by exhaustive
// nearest-neighbor scoring.
package queue

import "container/heap"

// Compile time check to ensure Candidates satisfies the heap interface.
var _ heap.Interface = (*Candidates)(nil)

// Item represents a scored candidate in the queue.
type Item struct {
	ID       string  // ID is the record identifier.
	Distance float32 // Distance is the priority of the item in the queue.
}

// Worse reports whether a ranks strictly worse than b: farther from the
// query, or at equal distance the lexicographically larger id. The id
// tie-break keeps result sets deterministic across map iteration orders.
func Worse(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// Candidates is a max-heap of Items: the worst candidate sits on top so it
// can be evicted when a better one arrives.
type Candidates struct {
	Items []Item
}

// Len returns the number of elements in the heap.
func (c *Candidates) Len() int { return len(c.Items) }

// Less reports whether the element with index i should sort before the element with index j.
func (c *Candidates) Less(i, j int) bool {
	return Worse(c.Items[i], c.Items[j])
}

// Swap swaps the elements with indexes i and j.
func (c *Candidates) Swap(i, j int) {
	c.Items[i], c.Items[j] = c.Items[j], c.Items[i]
}

// Push adds x to the heap.
func (c *Candidates) Push(x any) {
	item, _ := x.(Item)
	c.Items = append(c.Items, item)
}

// Pop removes and returns the worst element from the heap.
func (c *Candidates) Pop() any {
	old := c.Items
	n := len(old)
	item := old[n-1]
	c.Items = old[:n-1]
	return item
}

// Top returns the worst element without removing it.
func (c *Candidates) Top() Item {
	return c.Items[0]
}

// NewMax returns an initialized candidate heap with capacity for k items.
func NewMax(k int) *Candidates {
	c := &Candidates{Items: make([]Item, 0, k)}
	heap.Init(c)
	return c
}
