package cart

// Item is one cart line as seen by checkout.
type Item struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Snapshot là ảnh chụp giỏ hàng tại một thời điểm, checkout chỉ đọc.
type Snapshot struct {
	SessionID        string  `json:"session_id"`
	Items            []Item  `json:"items"`
	Subtotal         float64 `json:"subtotal"`
	OriginalSubtotal float64 `json:"original_subtotal"`
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// TotalQuantity sums item quantities, ignoring non-positive lines.
func TotalQuantity(items []Item) int64 {
	var total int64
	for _, item := range items {
		if item.Quantity > 0 {
			total += item.Quantity
		}
	}
	return total
}
