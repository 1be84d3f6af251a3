package posts

import (
	"cmp"
	"slices"
	"strings"
)

// SortField is a sortable post attribute.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByLikes     SortField = "likes"
	SortByTitle     SortField = "title"
)

// SortDirection is the order of a sort.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// Ascending comparators. Zero values (missing timestamps, empty titles) order first.
var comparators = map[SortField]func(a, b Post) int{
	SortByCreatedAt: func(a, b Post) int { return a.CreatedAt.Compare(b.CreatedAt) },
	SortByUpdatedAt: func(a, b Post) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	SortByLikes:     func(a, b Post) int { return cmp.Compare(a.Likes, b.Likes) },
	SortByTitle:     func(a, b Post) int { return strings.Compare(a.Title, b.Title) },
}

// DefaultSort is applied when no sort, or an unusable one, is requested.
var DefaultSort = SortSpec{Field: SortByCreatedAt, Direction: Desc}

// SortSpec is a validated sort request.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// ParseSort parses "field,direction". It never fails: an unknown field falls back to
// createdAt and an unknown or missing direction falls back to desc.
func ParseSort(expr string) SortSpec {
	spec := DefaultSort
	field, dir, _ := strings.Cut(expr, ",")

	if f := SortField(strings.TrimSpace(field)); comparators[f] != nil {
		spec.Field = f
	}
	switch SortDirection(strings.ToLower(strings.TrimSpace(dir))) {
	case Asc:
		spec.Direction = Asc
	case Desc:
		spec.Direction = Desc
	}
	return spec
}

// String returns the normalized descriptor, e.g. "likes,asc".
func (s SortSpec) String() string {
	return string(s.Field) + "," + string(s.Direction)
}

// Compare orders two posts according to s.
func (s SortSpec) Compare(a, b Post) int {
	c := comparators[s.Field]
	if c == nil {
		c = comparators[DefaultSort.Field]
	}
	if s.Direction == Asc {
		return c(a, b)
	}
	return c(b, a)
}

// Sort orders posts in place. Posts that compare equal keep their relative order.
func (s SortSpec) Sort(posts []Post) {
	slices.SortStableFunc(posts, s.Compare)
}
