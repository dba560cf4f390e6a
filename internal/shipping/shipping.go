package shipping

import (
	"context"
)

// Method is a shipping method with its flat price and free-shipping
// threshold, both in the internal currency unit.
type Method struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Price                 int64  `json:"price"`
	FreeShippingThreshold int64  `json:"freeShippingThreshold"`
}

// PriceFor returns the shipping price for a cart total: zero when the
// total already meets the free-shipping threshold, else the flat price.
// A zero threshold means the method never ships free.
func (m *Method) PriceFor(cartTotal int64) int64 {
	if m.FreeShippingThreshold > 0 && cartTotal >= m.FreeShippingThreshold {
		return 0
	}
	return m.Price
}

// Rates represents the loaded shipping-rate table.
type Rates interface {
	// Method looks up a shipping method by id.
	Method(id string) (*Method, bool)

	// Size returns the number of loaded methods.
	Size() int
}

// Loader defines the interface for loading a shipping-rate file.
type Loader interface {
	// Load reads a JSON rates file and returns the rate table.
	Load(ctx context.Context, filePath string) (Rates, error)
}

// mapRates implements Rates using a map for O(1) lookups.
type mapRates struct {
	methods map[string]Method
}

// NewMapRates creates a rate table from a method list. Later entries
// with a duplicate id overwrite earlier ones.
func NewMapRates(methods []Method) Rates {
	m := make(map[string]Method, len(methods))
	for _, method := range methods {
		m[method.ID] = method
	}
	return &mapRates{methods: m}
}

// Method looks up a shipping method by id.
func (r *mapRates) Method(id string) (*Method, bool) {
	method, ok := r.methods[id]
	if !ok {
		return nil, false
	}
	return &method, true
}

// Size returns the number of loaded methods.
func (r *mapRates) Size() int {
	return len(r.methods)
}
