package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartItem_UnmarshalImageURLVariants(t *testing.T) {
	var items []CartItem
	raw := `[
		{"id":"p1","title":"Mug","image_url":"https://img/mug.png","price":9.5,"quantity":2},
		{"id":"p2","title":"Cap","imageUrl":"https://img/cap.png","price":12,"quantity":1}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "https://img/mug.png", items[0].ImageURL)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "https://img/cap.png", items[1].ImageURL)
	assert.Equal(t, 12.0, items[1].Price)
}

func TestCartItem_MarshalUsesSnakeCase(t *testing.T) {
	data, err := json.Marshal(CartItem{ID: "p1", ImageURL: "u", Quantity: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"image_url":"u"`)
	assert.NotContains(t, string(data), "imageUrl")
}

func TestNewCartItem(t *testing.T) {
	item := NewCartItem(Product{ID: "p1", Title: "Mug", ImageURL: "u", Price: 3})
	assert.Equal(t, CartItem{ID: "p1", Title: "Mug", ImageURL: "u", Price: 3, Quantity: 1}, item)
}

func TestCloneItems_DoesNotAlias(t *testing.T) {
	src := []CartItem{{ID: "p1", Quantity: 1}}
	dst := CloneItems(src)
	dst[0].Quantity = 5
	assert.Equal(t, 1, src[0].Quantity)

	assert.NotNil(t, CloneItems(nil))
	assert.Equal(t, -1, IndexOf(src, "missing"))
	assert.Equal(t, 0, IndexOf(src, "p1"))
}

func TestEqualItems(t *testing.T) {
	a := []CartItem{{ID: "1", Quantity: 1}, {ID: "2", Quantity: 3}}

	assert.True(t, EqualItems(a, CloneItems(a)))
	assert.True(t, EqualItems(nil, []CartItem{}))
	assert.False(t, EqualItems(a, a[:1]))
	assert.False(t, EqualItems(a, []CartItem{{ID: "2", Quantity: 3}, {ID: "1", Quantity: 1}}), "order matters")

	changed := CloneItems(a)
	changed[1].Quantity = 4
	assert.False(t, EqualItems(a, changed))
}
