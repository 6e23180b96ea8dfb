package cache

import (
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type keyStruct struct {
	Name    string   `json:"name"`
	Tags    []string `json:"tags"`
	Ignored string   `json:"-"`
	inner   int
}

func TestStringify(t *testing.T) {
	f := 12.5
	var nilFloat *float64
	oid := primitive.NewObjectIDFromTimestamp(time.Unix(1700000000, 0))

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"nil pointer", nilFloat, ""},
		{"empty string", "", ""},
		{"string", "chair", "chair"},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"negative int", int64(-7), "-7"},
		{"uint", uint8(9), "9"},
		{"float integral", 100.0, "100"},
		{"float fraction", 0.1, "0.1"},
		{"float pointer", &f, "12.5"},
		{"float32", float32(1.5), "1.5"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"negative zero float32", float32(math.Copysign(0, -1)), "0"},
		{"positive zero", 0.0, "0"},
		{"empty slice", []string{}, ""},
		{"nil slice", []string(nil), ""},
		{"slice", []string{"a", "b c"}, "a,b+c"},
		{"slice escapes separator", []string{"a,b", "c"}, "a%2Cb,c"},
		{"map sorted", map[string]int{"b": 2, "a": 1}, "a=1,b=2"},
		{"empty map", map[string]int{}, ""},
		{"struct", keyStruct{Name: "x", Tags: []string{"t"}, Ignored: "y", inner: 3}, "name=x,tags=t"},
		{"object id", oid, oid.Hex()},
		{"nil object id", primitive.NilObjectID, ""},
		{"time", time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)), "2024-01-02T02:04:05Z"},
		{"zero time", time.Time{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stringify(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStringify_NilAndEmptyCollapse(t *testing.T) {
	var nilString *string
	empty := ""

	a, _ := Stringify(nilString)
	b, _ := Stringify(&empty)
	c, _ := Stringify(nil)
	if a != b || b != c {
		t.Fatalf("expected nil and empty to collapse, got %q %q %q", a, b, c)
	}
}

func TestStringify_Unsupported(t *testing.T) {
	unsupported := []struct {
		name string
		in   any
	}{
		{"func", func() {}},
		{"chan", make(chan int)},
		{"slice of funcs", []func(){func() {}}},
		{"complex", complex(1, 2)},
	}

	for _, tt := range unsupported {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Stringify(tt.in); err == nil {
				t.Fatalf("expected error for %T", tt.in)
			}
		})
	}
}

type boundParams struct {
	Search   string   `json:"search"`
	Page     int      `key:"page"`
	PageSize int      `json:"page_size,omitempty"`
	ColorIDs []string `json:"color_ids"`
	MinWidth *float64
	Skip     string `key:"-"`
	private  string
}

type explicitParams struct{ id string }

func (p explicitParams) KeyArgs() map[string]any { return map[string]any{"id": p.id} }

func TestBindArgs_Struct(t *testing.T) {
	args, err := BindArgs(boundParams{Search: "x", Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"search", "page", "page_size", "color_ids", "min_width"} {
		if _, ok := args[name]; !ok {
			t.Fatalf("expected argument %q in %v", name, args)
		}
	}
	for _, name := range []string{"Skip", "-", "private", "skip"} {
		if _, ok := args[name]; ok {
			t.Fatalf("unexpected argument %q in %v", name, args)
		}
	}
}

func TestBindArgs_KeyArgserAndMap(t *testing.T) {
	args, err := BindArgs(explicitParams{id: "abc"})
	if err != nil || args["id"] != "abc" {
		t.Fatalf("expected KeyArgs to be used, got %v, %v", args, err)
	}

	args, err = BindArgs(map[string]string{"id": "def"})
	if err != nil || args["id"] != "def" {
		t.Fatalf("expected map to be copied, got %v, %v", args, err)
	}

	if _, err := BindArgs(42); err == nil {
		t.Fatal("expected error binding a scalar")
	}
}

func TestParamNames_PointerParams(t *testing.T) {
	names, err := paramNames[*boundParams]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 5 {
		t.Fatalf("expected 5 names, got %v", names)
	}
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"MinWidth":   "min_width",
		"PageSize":   "page_size",
		"HTTPServer": "http_server",
		"Field2":     "field_2",
		"already_ok": "already_ok",
		"":           "",
	}
	for in, want := range tests {
		if got := toSnake(in); got != want {
			t.Errorf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
