// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package proxy

import "strings"

// Product is the partner product mode the browser SDK is launched with.
type Product string

const (
	ProductCardSwitcher    Product = "card_switcher"
	ProductTransactionLink Product = "transaction_link"
	ProductVaulting        Product = "vaulting"
	ProductLink            Product = "link"

	DefaultProduct = ProductCardSwitcher
)

// KnownProducts lists the products offered by the link form.
var KnownProducts = []Product{ProductCardSwitcher, ProductTransactionLink, ProductVaulting, ProductLink}

// ParseProduct trims s and falls back to DefaultProduct when empty.
// Unknown values pass through unchanged.
func ParseProduct(s string) Product {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultProduct
	}
	return Product(s)
}

// LinkRequest asks for a new partner session.
type LinkRequest struct {
	SubjectID  string
	Product    Product
	MerchantID *int
}

// SessionResult is a created session. Raw is the normalized partner payload
// and always contains session_id when the partner issued one.
type SessionResult struct {
	SessionID string
	Raw       map[string]any
}
