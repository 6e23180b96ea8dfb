package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ParseRequest reads HTTP query style parameters into a validated, normalized
// Request. Absent or empty parameters fall back to their defaults; a present
// value that does not parse, or parses out of range, is a ValidationError.
// color_ids may repeat or hold a comma separated list.
func ParseRequest(values url.Values) (Request, error) {
	req := NewRequest(FilterSpec{})
	errs := validation.Errors{}

	floatParam := func(name string, dst **float64) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			errs[name] = validation.NewError("validation_is_float", "must be a number")
			return
		}
		*dst = &v
	}
	intParam := func(name string, dst *int) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs[name] = validation.NewError("validation_is_int", "must be an integer")
			return
		}
		*dst = v
	}

	f := &req.Filter
	floatParam("start_price", &f.StartPrice)
	floatParam("end_price", &f.EndPrice)
	floatParam("min_width", &f.MinWidth)
	floatParam("max_width", &f.MaxWidth)
	floatParam("min_height", &f.MinHeight)
	floatParam("max_height", &f.MaxHeight)
	floatParam("min_depth", &f.MinDepth)
	floatParam("max_depth", &f.MaxDepth)
	floatParam("min_length", &f.MinLength)
	floatParam("max_length", &f.MaxLength)
	floatParam("min_weight", &f.MinWeight)
	floatParam("max_weight", &f.MaxWeight)

	f.CategoryID = values.Get("category_id")
	f.MaterialID = values.Get("material_id")
	f.Search = values.Get("search")
	for _, raw := range values["color_ids"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.ColorIDs = append(f.ColorIDs, c)
			}
		}
	}

	intParam("page", &req.Page.Page)
	intParam("page_size", &req.Page.PageSize)
	if sortBy := strings.TrimSpace(values.Get("sort_by")); sortBy != "" {
		req.Sort.Field = sortBy
	}
	order := int(req.Sort.Direction)
	intParam("sort_order", &order)
	req.Sort.Direction = Direction(order)

	if len(errs) > 0 {
		return Request{}, NewValidationError(errs)
	}

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}
