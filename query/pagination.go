package query

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination selects one page of results. Pages start at 1.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

func DefaultPagination() Pagination {
	return Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Skip is the number of matching records before this page.
func (p Pagination) Skip() int64 { return int64(p.Page-1) * int64(p.PageSize) }

func (p Pagination) Limit() int64 { return int64(p.PageSize) }

func (p Pagination) Validate() error {
	return NewValidationError(p.rules())
}

func (p Pagination) rules() error {
	return validation.Errors{
		"page":      validation.Validate(p.Page, validation.By(intAtLeast(1))),
		"page_size": validation.Validate(p.PageSize, validation.By(intBetween(1, MaxPageSize))),
	}.Filter()
}

func intAtLeast(min int) validation.RuleFunc {
	return func(value interface{}) error {
		if v, _ := value.(int); v < min {
			return validation.NewError("validation_min_greater_equal_than_required", "must be no less than "+strconv.Itoa(min))
		}
		return nil
	}
}

func intBetween(min, max int) validation.RuleFunc {
	return func(value interface{}) error {
		if v, _ := value.(int); v < min || v > max {
			return validation.NewError("validation_out_of_range", "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
		}
		return nil
	}
}

// Direction is a sort direction as understood by the document store.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortableFields is the allow-list for Sort.Field.
var SortableFields = []string{"_id", "name", "short_name", "price", "created_at", "updated_at", "views", "discount"}

// Sort orders results by one allow-listed field.
type Sort struct {
	Field     string    `json:"sort_by"`
	Direction Direction `json:"sort_order"`
}

func DefaultSort() Sort { return Sort{Field: "_id", Direction: Ascending} }

func (s Sort) Validate() error {
	return NewValidationError(s.rules())
}

func (s Sort) rules() error {
	allowed := make([]interface{}, len(SortableFields))
	for i, f := range SortableFields {
		allowed[i] = f
	}

	return validation.ValidateStruct(&s,
		validation.Field(&s.Field, validation.Required, validation.In(allowed...)),
		validation.Field(&s.Direction, validation.By(func(value interface{}) error {
			if d, _ := value.(Direction); d != Ascending && d != Descending {
				return validation.NewError("validation_in_invalid", "must be 1 or -1")
			}
			return nil
		})),
	)
}

// Document renders the sort for the store. Sorting on anything other than _id
// adds an ascending _id tiebreak so equal keys keep a fixed page order.
func (s Sort) Document() bson.D {
	field := s.Field
	if field == "" {
		field = "_id"
	}
	dir := s.Direction
	if dir == 0 {
		dir = Ascending
	}

	doc := bson.D{{Key: field, Value: int(dir)}}
	if field != "_id" {
		doc = append(doc, bson.E{Key: "_id", Value: int(Ascending)})
	}
	return doc
}
