// Package whatsapp builds wa.me deep links carrying a pre-filled order message.
// Placing an order is nothing more than opening one of these links.
package whatsapp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dailykart/dailykart/services/storefront/models"
)

// DefaultNumber is the merchant's WhatsApp number in international format.
const DefaultNumber = "919897743469"

type Customer struct {
	Name    string `json:"customerName" form:"customerName"`
	Mobile  string `json:"mobileNumber" form:"mobileNumber"`
	Address string `json:"deliveryAddress" form:"deliveryAddress"`
}

// Trimmed returns the customer with surrounding whitespace removed.
func (c Customer) Trimmed() Customer {
	return Customer{
		Name:    strings.TrimSpace(c.Name),
		Mobile:  strings.TrimSpace(c.Mobile),
		Address: strings.TrimSpace(c.Address),
	}
}

var (
	ErrMissingName    = errors.New("Please enter your name")
	ErrMissingMobile  = errors.New("Please enter your mobile number")
	ErrMissingAddress = errors.New("Please enter your delivery address")
)

// Validate reports the first missing field in form order.
func (c Customer) Validate() error {
	c = c.Trimmed()
	switch {
	case c.Name == "":
		return ErrMissingName
	case c.Mobile == "":
		return ErrMissingMobile
	case c.Address == "":
		return ErrMissingAddress
	}
	return nil
}

type Builder struct {
	Number string
}

func NewBuilder(number string) Builder {
	if number == "" {
		number = DefaultNumber
	}
	return Builder{Number: number}
}

// ProductOrderURL asks about a single product.
func (b Builder) ProductOrderURL(name string, price int64) string {
	msg := fmt.Sprintf("Hi! I would like to order:\n\n*%s*\nPrice: ₹%d\n\nPlease confirm availability.", name, price)
	return b.link(msg)
}

// CartOrderURL carries the whole cart plus delivery details.
func (b Builder) CartOrderURL(c Customer, items []models.CartItem) string {
	return b.link(CartMessage(c, items))
}

// CartMessage is the order text sent for a cart checkout.
func CartMessage(c Customer, items []models.CartItem) string {
	var sb strings.Builder
	var total int64
	sb.WriteString("Hi! I would like to place an order:\n\n*Order Details:*\n")
	for _, it := range items {
		line := it.LineTotal()
		total += line
		fmt.Fprintf(&sb, "• %s - ₹%d × %d = ₹%d\n", it.Name, it.Price, it.Quantity, line)
	}
	fmt.Fprintf(&sb, "\n*Total: ₹%d*\n\n", total)
	fmt.Fprintf(&sb, "*Customer Details:*\nName: %s\nMobile: %s\nAddress: %s\n\n", c.Name, c.Mobile, c.Address)
	sb.WriteString("Please confirm my order.")
	return sb.String()
}

func (b Builder) link(msg string) string {
	number := b.Number
	if number == "" {
		number = DefaultNumber
	}
	return "https://wa.me/" + number + "?text=" + EncodeComponent(msg)
}

// QueryEscape leaves fewer characters alone than browsers do for
// encodeURIComponent; these restore the browser's output.
var componentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s the way encodeURIComponent does.
func EncodeComponent(s string) string {
	return componentReplacer.Replace(url.QueryEscape(s))
}
