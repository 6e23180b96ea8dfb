package query

import (
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// FilterSpec is the flat set of optional product predicates accepted from
// callers. A nil bound, an empty id and an empty search term all mean
// "no constraint". Bounds are inclusive.
type FilterSpec struct {
	StartPrice *float64 `json:"start_price,omitempty"`
	EndPrice   *float64 `json:"end_price,omitempty"`

	MinWidth  *float64 `json:"min_width,omitempty"`
	MaxWidth  *float64 `json:"max_width,omitempty"`
	MinHeight *float64 `json:"min_height,omitempty"`
	MaxHeight *float64 `json:"max_height,omitempty"`
	MinDepth  *float64 `json:"min_depth,omitempty"`
	MaxDepth  *float64 `json:"max_depth,omitempty"`
	MinLength *float64 `json:"min_length,omitempty"`
	MaxLength *float64 `json:"max_length,omitempty"`
	MinWeight *float64 `json:"min_weight,omitempty"`
	MaxWeight *float64 `json:"max_weight,omitempty"`

	CategoryID string   `json:"category_id,omitempty"`
	MaterialID string   `json:"material_id,omitempty"`
	ColorIDs   []string `json:"color_ids,omitempty"`

	Search string `json:"search,omitempty"`
}

// MaxSearchLength bounds the free text search term.
const MaxSearchLength = 200

// Float returns a pointer to v, for building filter bounds.
func Float(v float64) *float64 { return &v }

type rangeBound struct {
	field    string
	minParam string
	maxParam string
	min      *float64
	max      *float64
}

// ranges lists every numeric range with the document field it constrains.
func (f FilterSpec) ranges() []rangeBound {
	return []rangeBound{
		{"price", "start_price", "end_price", f.StartPrice, f.EndPrice},
		{"dimensions.width", "min_width", "max_width", f.MinWidth, f.MaxWidth},
		{"dimensions.height", "min_height", "max_height", f.MinHeight, f.MaxHeight},
		{"dimensions.depth", "min_depth", "max_depth", f.MinDepth, f.MaxDepth},
		{"dimensions.length", "min_length", "max_length", f.MinLength, f.MaxLength},
		{"dimensions.weight", "min_weight", "max_weight", f.MinWeight, f.MaxWeight},
	}
}

// IsEmpty reports whether the filter constrains nothing.
func (f FilterSpec) IsEmpty() bool {
	for _, r := range f.ranges() {
		if r.min != nil || r.max != nil {
			return false
		}
	}
	return f.CategoryID == "" && f.MaterialID == "" && len(f.ColorIDs) == 0 && f.Search == ""
}

// Validate rejects negative or non-finite bounds, inverted ranges, malformed
// identifiers and overlong search terms.
func (f FilterSpec) Validate() error {
	return NewValidationError(f.rules())
}

func (f FilterSpec) rules() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.StartPrice, bound()...),
		validation.Field(&f.EndPrice, append(bound(), validation.By(notBelow(f.StartPrice, "start_price")))...),
		validation.Field(&f.MinWidth, bound()...),
		validation.Field(&f.MaxWidth, append(bound(), validation.By(notBelow(f.MinWidth, "min_width")))...),
		validation.Field(&f.MinHeight, bound()...),
		validation.Field(&f.MaxHeight, append(bound(), validation.By(notBelow(f.MinHeight, "min_height")))...),
		validation.Field(&f.MinDepth, bound()...),
		validation.Field(&f.MaxDepth, append(bound(), validation.By(notBelow(f.MinDepth, "min_depth")))...),
		validation.Field(&f.MinLength, bound()...),
		validation.Field(&f.MaxLength, append(bound(), validation.By(notBelow(f.MinLength, "min_length")))...),
		validation.Field(&f.MinWeight, bound()...),
		validation.Field(&f.MaxWeight, append(bound(), validation.By(notBelow(f.MinWeight, "min_weight")))...),
		validation.Field(&f.CategoryID, is.MongoID),
		validation.Field(&f.MaterialID, is.MongoID),
		validation.Field(&f.ColorIDs, validation.Each(validation.Required, is.MongoID)),
		validation.Field(&f.Search, validation.RuneLength(0, MaxSearchLength)),
	)
}

func bound() []validation.Rule {
	return []validation.Rule{validation.By(finite), validation.Min(0.0)}
}

func finite(value interface{}) error {
	v, ok := value.(*float64)
	if !ok || v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return validation.NewError("validation_not_finite", "must be a finite number")
	}
	return nil
}

// notBelow rejects an upper bound lower than its paired lower bound.
func notBelow(lower *float64, lowerName string) validation.RuleFunc {
	return func(value interface{}) error {
		upper, ok := value.(*float64)
		if !ok || upper == nil || lower == nil {
			return nil
		}
		if *upper < *lower {
			return validation.NewError("validation_range_inverted", "must be greater than or equal to "+lowerName)
		}
		return nil
	}
}
