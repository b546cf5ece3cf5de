package models

// CartItem is a snapshot of a product taken when it was added to the cart.
type CartItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	ImageURL string `json:"imageUrl"`
	Quantity int    `json:"quantity"`
}

// LineTotal is price × quantity.
func (i CartItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// CartState is the persisted form of a cart. Slice order is display order.
type CartState struct {
	Items []CartItem `json:"items"`
}
