package models

import "github.com/shopspring/decimal"

type ProductStatus string

const (
	ProductStatusPending  ProductStatus = "pending"
	ProductStatusApproved ProductStatus = "approved"
	ProductStatusRejected ProductStatus = "rejected"
)

// Product is the slice of the catalog record the checkout core depends on.
type Product struct {
	ID       string          `json:"id"`
	SellerID string          `json:"sellerId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Status   ProductStatus   `json:"status"`
}

func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusApproved
}
