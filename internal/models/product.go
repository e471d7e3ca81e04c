package models

import (
	"strings"
	"time"
)

// Review is a single customer review attached to a product.
type Review struct {
	UserID    string    `json:"userId" yaml:"userId"`
	UserName  string    `json:"userName,omitempty" yaml:"userName,omitempty"`
	Rating    int       `json:"rating" yaml:"rating"` // 1-5
	Comment   string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Product is a catalog listing owned by a seller.
type Product struct {
	ID             string            `json:"id" yaml:"id"`
	SellerID       string            `json:"sellerId,omitempty" yaml:"sellerId,omitempty"`
	SellerName     string            `json:"sellerName,omitempty" yaml:"sellerName,omitempty"`
	Name           string            `json:"name" yaml:"name"`
	Description    string            `json:"description,omitempty" yaml:"description,omitempty"`
	Category       string            `json:"category" yaml:"category"`
	Brand          string            `json:"brand,omitempty" yaml:"brand,omitempty"`
	Color          string            `json:"color,omitempty" yaml:"color,omitempty"`
	Price          float64           `json:"price" yaml:"price"`
	OfferPrice     *float64          `json:"offerPrice,omitempty" yaml:"offerPrice,omitempty"`
	ShippingFee    float64           `json:"shippingFee,omitempty" yaml:"shippingFee,omitempty"`
	DeliveryCharge float64           `json:"deliveryCharge,omitempty" yaml:"deliveryCharge,omitempty"`
	FreeShipping   bool              `json:"freeShipping" yaml:"freeShipping"`
	Images         []string          `json:"images,omitempty" yaml:"images,omitempty"`
	Stock          int               `json:"stock" yaml:"stock"`
	Rating         *float64          `json:"rating,omitempty" yaml:"rating,omitempty"`
	SoldCount      int               `json:"soldCount" yaml:"soldCount"`
	IsPopular      bool              `json:"isPopular" yaml:"isPopular"`
	Tags           []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Reviews        []Review          `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	CreatedAt      time.Time         `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// EffectivePrice is the offer price when one is set, else the list price.
func (p *Product) EffectivePrice() float64 {
	if p.OfferPrice != nil {
		return *p.OfferPrice
	}
	return p.Price
}

// DiscountPercent returns (price-offer)/price*100, or 0 when either is missing.
func (p *Product) DiscountPercent() float64 {
	if p.OfferPrice == nil || p.Price <= 0 {
		return 0
	}
	return (p.Price - *p.OfferPrice) / p.Price * 100
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// AverageRating computes the mean review rating. ok is false with no reviews.
func (p *Product) AverageRating() (avg float64, ok bool) {
	if len(p.Reviews) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(p.Reviews)), true
}

// Default attribute values applied when a seller leaves them blank.
const (
	DefaultBrand          = "Generic"
	DefaultColor          = "Multi"
	DefaultShippingFee    = 15.0
	DefaultDeliveryCharge = 80.0
)

// CreateProductParams are the seller-supplied fields for a new listing.
type CreateProductParams struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Brand          string            `json:"brand,omitempty"`
	Color          string            `json:"color,omitempty"`
	Price          float64           `json:"price"`
	OfferPrice     float64           `json:"offerPrice"`
	ShippingFee    *float64          `json:"shippingFee,omitempty"`
	DeliveryCharge *float64          `json:"deliveryCharge,omitempty"`
	FreeShipping   bool              `json:"freeShipping"`
	Stock          int               `json:"stock"`
	SellerName     string            `json:"sellerName"`
	Tags           []string          `json:"tags,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// UpdateProductParams is a partial update; nil fields are left unchanged.
type UpdateProductParams struct {
	Name           *string           `json:"name,omitempty"`
	Description    *string           `json:"description,omitempty"`
	Category       *string           `json:"category,omitempty"`
	Brand          *string           `json:"brand,omitempty"`
	Color          *string           `json:"color,omitempty"`
	Price          *float64          `json:"price,omitempty"`
	OfferPrice     *float64          `json:"offerPrice,omitempty"`
	ShippingFee    *float64          `json:"shippingFee,omitempty"`
	DeliveryCharge *float64          `json:"deliveryCharge,omitempty"`
	FreeShipping   *bool             `json:"freeShipping,omitempty"`
	Stock          *int              `json:"stock,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Apply copies every non-nil field onto p.
func (u UpdateProductParams) Apply(p *Product) {
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = strings.TrimSpace(*u.Category)
	}
	if u.Brand != nil {
		p.Brand = strings.TrimSpace(*u.Brand)
	}
	if u.Color != nil {
		p.Color = strings.TrimSpace(*u.Color)
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.OfferPrice != nil {
		offer := *u.OfferPrice
		p.OfferPrice = &offer
	}
	if u.ShippingFee != nil {
		p.ShippingFee = *u.ShippingFee
	}
	if u.DeliveryCharge != nil {
		p.DeliveryCharge = *u.DeliveryCharge
	}
	if u.FreeShipping != nil {
		p.FreeShipping = *u.FreeShipping
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Tags != nil {
		p.Tags = u.Tags
	}
	if u.Attributes != nil {
		p.Attributes = u.Attributes
	}
}

// CategoryAttributeRules lists attributes a category requires on create.
var CategoryAttributeRules = map[string][]string{
	"Vapes & Drinks": {"flavor"},
}

// MissingAttributes returns the required attribute names absent for category.
func MissingAttributes(category string, attrs map[string]string) []string {
	var missing []string
	for cat, required := range CategoryAttributeRules {
		if !strings.EqualFold(cat, category) {
			continue
		}
		for _, name := range required {
			if strings.TrimSpace(attrs[name]) == "" {
				missing = append(missing, name)
			}
		}
	}
	return missing
}

// FilterMetadata is the sidebar data derived from the whole collection.
type FilterMetadata struct {
	Categories  []string       `json:"categories"`
	Brands      []string       `json:"brands"`
	MinPrice    float64        `json:"minPrice"`
	MaxPrice    float64        `json:"maxPrice"`
	GroupCounts map[string]int `json:"groupCounts"`
	TotalCount  int            `json:"totalCount"`
}
