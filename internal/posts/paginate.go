package posts

// Paginate slices one page out of items. page and size are trusted; out-of-range
// pages yield empty content rather than an error.
func Paginate[T any](items []T, page, size int) (content []T, totalPages int) {
	total := len(items)
	from := min(max(page*size, 0), total)
	to := min(max(from+size, from), total)

	content = make([]T, to-from)
	copy(content, items[from:to])

	if size <= 0 {
		return content, 1
	}
	return content, (total + size - 1) / size
}
