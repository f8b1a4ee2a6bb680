package interfaces

// A Cache is a bounded key-value store, entries may expire or be evicted
type Cache[K comparable, V any] interface {
	Set(key K, value V)
	Get(key K) (V, bool)
	Flush()
	Size() int
	Capacity() int
}
