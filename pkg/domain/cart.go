package domain

// CartItem is a line of the anonymous cart kept in the visitor session.
type CartItem struct {
	ProductID int64   `json:"product_id"`
	Variant   string  `json:"variant,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}
