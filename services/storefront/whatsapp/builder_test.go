package whatsapp

import (
	"net/url"
	"strings"
	"testing"

	"github.com/dailykart/dailykart/services/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeText(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("text")
}

func TestProductOrderURL(t *testing.T) {
	link := NewBuilder("").ProductOrderURL("Paneer Roll", 80)

	assert.True(t, strings.HasPrefix(link, "https://wa.me/919897743469?text="))
	assert.Equal(t,
		"Hi! I would like to order:\n\n*Paneer Roll*\nPrice: ₹80\n\nPlease confirm availability.",
		decodeText(t, link))
	assert.NotContains(t, link, " ")
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "Hi!%20I%20would")
	assert.Contains(t, link, "*Paneer%20Roll*")
}

func TestCartOrderURL(t *testing.T) {
	items := []models.CartItem{
		{ID: "1", Name: "Samosa", Price: 20, Quantity: 3},
		{ID: "2", Name: "Rice 5kg", Price: 350, Quantity: 1},
	}
	customer := Customer{Name: "Asha", Mobile: "9876543210", Address: "12 MG Road, Agra"}

	link := NewBuilder("911234567890").CartOrderURL(customer, items)

	assert.True(t, strings.HasPrefix(link, "https://wa.me/911234567890?text="))
	want := "Hi! I would like to place an order:\n\n" +
		"*Order Details:*\n" +
		"• Samosa - ₹20 × 3 = ₹60\n" +
		"• Rice 5kg - ₹350 × 1 = ₹350\n" +
		"\n*Total: ₹410*\n\n" +
		"*Customer Details:*\n" +
		"Name: Asha\n" +
		"Mobile: 9876543210\n" +
		"Address: 12 MG Road, Agra\n\n" +
		"Please confirm my order."
	assert.Equal(t, want, decodeText(t, link))
	assert.NotContains(t, link, "\n")
	assert.Contains(t, link, "%0A")
}

func TestCartMessageEmptyCart(t *testing.T) {
	msg := CartMessage(Customer{Name: "A", Mobile: "1", Address: "X"}, nil)

	assert.Contains(t, msg, "*Total: ₹0*")
}

func TestEncodeComponent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a b", "a%20b"},
		{"Hi!", "Hi!"},
		{"*bold*", "*bold*"},
		{"(x)'y'", "(x)'y'"},
		{"a+b&c=d", "a%2Bb%26c%3Dd"},
		{"₹", "%E2%82%B9"},
		{"50%2A", "50%252A"},
		{"line\nbreak", "line%0Abreak"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EncodeComponent(tt.in), tt.in)
	}
}

func TestCustomerTrimmed(t *testing.T) {
	c := Customer{Name: "  Asha ", Mobile: "\t98 ", Address: " Agra\n"}.Trimmed()

	assert.Equal(t, Customer{Name: "Asha", Mobile: "98", Address: "Agra"}, c)
}

func TestCustomerValidate(t *testing.T) {
	tests := []struct {
		name string
		c    Customer
		want error
	}{
		{"complete", Customer{Name: "Asha", Mobile: "98", Address: "Agra"}, nil},
		{"blank name", Customer{Name: "  ", Mobile: "98", Address: "Agra"}, ErrMissingName},
		{"missing mobile", Customer{Name: "Asha", Address: "Agra"}, ErrMissingMobile},
		{"missing address", Customer{Name: "Asha", Mobile: "98", Address: "\n"}, ErrMissingAddress},
		{"everything missing reports name first", Customer{}, ErrMissingName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, "Please enter your delivery address", ErrMissingAddress.Error())
}
