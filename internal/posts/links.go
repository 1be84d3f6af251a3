package posts

import (
	"net/url"
	"strconv"
	"time"
)

// ListQuery is a parsed listing request.
type ListQuery struct {
	Criteria FilterCriteria
	Page     int
	Size     int
	// Sort is the sort expression exactly as supplied, empty when absent.
	Sort string
}

// BuildLinks returns self, next and prev links for a page of the listing served at base.
// self is always present; next and prev are nil when there is no such page.
func BuildLinks(base string, q ListQuery, totalPages int) Links {
	links := Links{
		"self": linkTo(base, q, q.Page),
		"next": nil,
		"prev": nil,
	}
	if q.Page+1 < totalPages {
		links["next"] = linkTo(base, q, q.Page+1)
	}
	if q.Page-1 >= 0 && totalPages > 0 {
		links["prev"] = linkTo(base, q, q.Page-1)
	}
	return links
}

func linkTo(base string, q ListQuery, page int) *string {
	s := base + "?" + q.values(page).Encode()
	return &s
}

// values re-serializes every supplied parameter, with page overridden.
func (q ListQuery) values(page int) url.Values {
	v := url.Values{}
	c := q.Criteria
	if c.AuthorID != nil {
		v.Set("authorId", c.AuthorID.String())
	}
	if c.TopicID != nil {
		v.Set("topicId", c.TopicID.String())
	}
	if c.TitleContains != nil {
		v.Set("titleContains", *c.TitleContains)
	}
	if c.MinLikes != nil {
		v.Set("minLikes", strconv.Itoa(*c.MinLikes))
	}
	if c.CreatedAtFrom != nil {
		v.Set("createdAtFrom", c.CreatedAtFrom.Format(time.RFC3339Nano))
	}
	if c.CreatedAtTo != nil {
		v.Set("createdAtTo", c.CreatedAtTo.Format(time.RFC3339Nano))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("size", strconv.Itoa(q.Size))
	return v
}
