// Package rheap implements the array-backed binary min-heap used to order
// factor runs by their split key.
//
// Unlike container/heap, callers own the backing array: Insert and
// Depopulate operate directly on a caller-supplied slice so the heap can
// live inside a shared per-level arena instead of allocating its own
// storage per (node, predictor) pair.
package rheap

// Pair is one heap entry: a sort key and the original slot it refers to.
// slot is opaque to the heap — it is whatever index the caller wants back
// out of Depopulate, in ascending-key order.
type Pair struct {
	Key  float64
	Slot uint32
}

// Insert appends key/slot as the (n+1)th entry of arr[:n] and sifts it up
// until the min-heap property holds. arr must have capacity for at least
// n+1 entries; Insert returns the new length.
func Insert(arr []Pair, n int, key float64, slot uint32) int {
	arr = arr[:n+1]
	arr[n] = Pair{Key: key, Slot: slot}

	i := n
	for i > 0 {
		parent := (i - 1) / 2
		if arr[parent].Key <= arr[i].Key {
			break
		}
		arr[parent], arr[i] = arr[i], arr[parent]
		i = parent
	}
	return n + 1
}

// Depopulate pops the pop smallest-key entries from the n-element heap
// arr[:n], writing their Slot values into out[0:pop] in ascending-key
// order (smallest first). It returns the heap's remaining length (n-pop).
//
// Ties are broken arbitrarily; callers must not depend on tie order.
// pop == 0 means "pop all n entries".
func Depopulate(arr []Pair, out []uint32, n, pop int) int {
	if pop == 0 {
		pop = n
	}
	if pop > n {
		panic("rheap: Depopulate pop exceeds heap size")
	}
	heap := arr[:n]
	for i := 0; i < pop; i++ {
		out[i] = heap[0].Slot
		last := len(heap) - 1
		heap[0] = heap[last]
		heap = heap[:last]
		siftDown(heap)
	}
	return len(heap)
}

func siftDown(heap []Pair) {
	n := len(heap)
	i := 0
	for {
		left := 2*i + 1
		right := 2*i + 2
		smallest := i
		if left < n && heap[left].Key < heap[smallest].Key {
			smallest = left
		}
		if right < n && heap[right].Key < heap[smallest].Key {
			smallest = right
		}
		if smallest == i {
			return
		}
		heap[i], heap[smallest] = heap[smallest], heap[i]
		i = smallest
	}
}
