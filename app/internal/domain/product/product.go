package product

// Product is the storefront row checkout re-reads when an order is placed.
type Product struct {
	ID       int64
	Name     string
	Price    float64
	Stock    int64
	IsActive bool
}

func (p Product) CanFulfil(quantity int64) bool {
	return p.IsActive && quantity > 0 && p.Stock >= quantity
}
