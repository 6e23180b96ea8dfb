package catalog

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base holds the fields every catalog record carries. The id is assigned on
// creation and never changes afterwards.
type Base struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ShortName  string             `bson:"short_name,omitempty" json:"short_name,omitempty"`
	IsArchived bool               `bson:"is_archived" json:"is_archived"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// Meta gives generic code access to the common fields of a record.
func (b *Base) Meta() *Base { return b }

func (b Base) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.ID, validation.By(objectIDRequired)),
		validation.Field(&b.ShortName, validation.RuneLength(0, 100)),
	)
}

// Record is implemented by pointers to every catalog type through Base.
type Record interface {
	Meta() *Base
}

type Dimensions struct {
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
	Depth  float64 `bson:"depth" json:"depth"`
	Length float64 `bson:"length" json:"length"`
	Weight float64 `bson:"weight" json:"weight"`
}

func (d Dimensions) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Width, validation.Min(0.0)),
		validation.Field(&d.Height, validation.Min(0.0)),
		validation.Field(&d.Depth, validation.Min(0.0)),
		validation.Field(&d.Length, validation.Min(0.0)),
		validation.Field(&d.Weight, validation.Min(0.0)),
	)
}

// CategoryRef is the denormalized category embedded in a product.
type CategoryRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

func (c CategoryRef) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.By(objectIDRequired)),
	)
}

type Product struct {
	Base        `bson:",inline"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64              `bson:"price" json:"price"`
	Currency    string               `bson:"currency,omitempty" json:"currency,omitempty"`
	Category    CategoryRef          `bson:"category" json:"category"`
	MaterialID  primitive.ObjectID   `bson:"material_id,omitempty" json:"material_id"`
	ColorIDs    []primitive.ObjectID `bson:"color_ids" json:"color_ids"`
	Dimensions  Dimensions           `bson:"dimensions" json:"dimensions"`
	IsNew       bool                 `bson:"is_new" json:"is_new"`
	Discount    float64              `bson:"discount" json:"discount"`
	Views       int64                `bson:"views" json:"views"`
}

func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Base),
		validation.Field(&p.Name, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&p.Price, validation.Min(0.0)),
		validation.Field(&p.Currency, is.CurrencyCode),
		validation.Field(&p.Category),
		validation.Field(&p.Dimensions),
		validation.Field(&p.Discount, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&p.Views, validation.Min(int64(0))),
	)
}

type Category struct {
	Base        `bson:",inline"`
	Name        string `bson:"name" json:"name"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

func (c Category) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Base),
		validation.Field(&c.Name, validation.Required, validation.RuneLength(1, 100)),
	)
}

type Material struct {
	Base `bson:",inline"`
	Name string `bson:"name" json:"name"`
}

func (m Material) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Base),
		validation.Field(&m.Name, validation.Required, validation.RuneLength(1, 100)),
	)
}

type Color struct {
	Base `bson:",inline"`
	Name string `bson:"name" json:"name"`
	Hex  string `bson:"hex,omitempty" json:"hex,omitempty"`
}

func (c Color) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Base),
		validation.Field(&c.Name, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&c.Hex, is.HexColor),
	)
}

func objectIDRequired(value interface{}) error {
	if id, _ := value.(primitive.ObjectID); id.IsZero() {
		return validation.NewError("validation_required", "cannot be blank")
	}
	return nil
}
