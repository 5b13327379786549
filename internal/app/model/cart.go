package model

import "encoding/json"

// Product describes an item the customer can put in the cart. It is a
// CartItem without a quantity.
type Product struct {
	ID       string  `json:"id" binding:"required"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
}

// CartItem is one product line in the cart. Quantity is always >= 1 while the
// item is part of a cart.
type CartItem struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// NewCartItem builds the first cart line for a product.
func NewCartItem(p Product) CartItem {
	return CartItem{
		ID:       p.ID,
		Title:    p.Title,
		ImageURL: p.ImageURL,
		Price:    p.Price,
		Quantity: 1,
	}
}

// UnmarshalJSON accepts both image_url and imageUrl for the image field.
func (i *CartItem) UnmarshalJSON(data []byte) error {
	type plain CartItem
	aux := struct {
		*plain
		ImageURLCamel *string `json:"imageUrl"`
	}{plain: (*plain)(i)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if i.ImageURL == "" && aux.ImageURLCamel != nil {
		i.ImageURL = *aux.ImageURLCamel
	}
	return nil
}

// UnmarshalJSON accepts both image_url and imageUrl for the image field.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	aux := struct {
		*plain
		ImageURLCamel *string `json:"imageUrl"`
	}{plain: (*plain)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ImageURL == "" && aux.ImageURLCamel != nil {
		p.ImageURL = *aux.ImageURLCamel
	}
	return nil
}

// CloneItems returns a copy of items that never aliases the input.
func CloneItems(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	return out
}

// IndexOf returns the position of the item with the given id, or -1.
func IndexOf(items []CartItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// EqualItems reports whether a and b hold the same lines in the same order.
func EqualItems(a, b []CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
