package query

import (
	"sort"
	"strings"
)

// Request is one complete catalog read: what to match, which page, what order.
type Request struct {
	Filter FilterSpec `json:"filter"`
	Page   Pagination `json:"page"`
	Sort   Sort       `json:"sort"`
}

// NewRequest returns a request for the first default page of filter.
func NewRequest(filter FilterSpec) Request {
	return Request{Filter: filter, Page: DefaultPagination(), Sort: DefaultSort()}
}

// Validate checks filter, page and sort together so a caller sees every problem at once.
func (r Request) Validate() error {
	return NewValidationError(mergeErrors(r.Filter.rules(), r.Page.rules(), r.Sort.rules()))
}

// Normalize returns the canonical form of r: trimmed search, lower-case ids,
// color ids sorted and deduplicated. Requests that mean the same thing
// normalize to equal values and therefore to the same cache key.
func (r Request) Normalize() Request {
	r.Filter = r.Filter.Normalize()
	r.Sort.Field = strings.TrimSpace(r.Sort.Field)
	return r
}

func (f FilterSpec) Normalize() FilterSpec {
	f.Search = strings.TrimSpace(f.Search)
	f.CategoryID = strings.ToLower(strings.TrimSpace(f.CategoryID))
	f.MaterialID = strings.ToLower(strings.TrimSpace(f.MaterialID))

	if len(f.ColorIDs) > 0 {
		seen := make(map[string]bool, len(f.ColorIDs))
		colors := make([]string, 0, len(f.ColorIDs))
		for _, c := range f.ColorIDs {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			colors = append(colors, c)
		}
		sort.Strings(colors)
		f.ColorIDs = colors
	}
	if len(f.ColorIDs) == 0 {
		f.ColorIDs = nil
	}
	return f
}

// KeyArgs exposes every filter parameter, bound or not, for cache keys.
func (f FilterSpec) KeyArgs() map[string]any {
	args := map[string]any{
		"category_id": f.CategoryID,
		"material_id": f.MaterialID,
		"color_ids":   f.ColorIDs,
		"search":      f.Search,
	}
	for _, r := range f.ranges() {
		args[r.minParam] = r.min
		args[r.maxParam] = r.max
	}
	return args
}

// KeyArgs exposes filter, page and sort parameters for cache keys.
func (r Request) KeyArgs() map[string]any {
	args := r.Filter.KeyArgs()
	args["page"] = r.Page.Page
	args["page_size"] = r.Page.PageSize
	args["sort_by"] = r.Sort.Field
	args["sort_order"] = int(r.Sort.Direction)
	return args
}
