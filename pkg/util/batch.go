package util

// Batch 按 size 切分切片，size<=0 时整体作为一批；返回的子切片共享底层数组。
func Batch[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size > len(items) {
		size = len(items)
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for len(items) > 0 {
		n := min(size, len(items))
		chunks = append(chunks, items[:n:n])
		items = items[n:]
	}
	return chunks
}
