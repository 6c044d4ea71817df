package hnsw

import "container/heap"

var _ heap.Interface = (*PriorityQueue)(nil)

// PriorityQueueItem is a graph slot with its distance to the query.
type PriorityQueueItem struct {
	Node     uint32
	Distance float32
}

// PriorityQueue is a binary heap of items. With Order set it is a
// max-heap (farthest on top), otherwise a min-heap.
type PriorityQueue struct {
	Order bool
	Items []PriorityQueueItem
}

func (pq *PriorityQueue) Len() int { return len(pq.Items) }

func (pq *PriorityQueue) Less(i, j int) bool {
	if pq.Order {
		return pq.Items[i].Distance > pq.Items[j].Distance
	}
	return pq.Items[i].Distance < pq.Items[j].Distance
}

func (pq *PriorityQueue) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
}

func (pq *PriorityQueue) Push(x any) {
	pq.Items = append(pq.Items, x.(PriorityQueueItem))
}

func (pq *PriorityQueue) Pop() any {
	old := pq.Items
	n := len(old)
	item := old[n-1]
	pq.Items = old[:n-1]
	return item
}

// Top returns the head of the heap without removing it.
func (pq *PriorityQueue) Top() PriorityQueueItem {
	return pq.Items[0]
}
