package catalog

// Paginate returns the zero-indexed page of items and the total page count
// ceil(len(items)/pageSize). A page outside [0, totalPages) yields an empty
// slice. pageSize below 1 is treated as 1.
func Paginate[T any](items []T, pageSize, pageIndex int) ([]T, int) {
	if pageSize < 1 {
		pageSize = 1
	}
	total := (len(items) + pageSize - 1) / pageSize
	if pageIndex < 0 || pageIndex >= total {
		return []T{}, total
	}
	start := pageIndex * pageSize
	end := min(start+pageSize, len(items))
	return items[start:end], total
}
