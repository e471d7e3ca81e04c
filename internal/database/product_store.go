package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// ProductStore handles product database operations
type ProductStore struct {
	db *DB
}

// NewProductStore creates a new product store
func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db}
}

const productColumns = `
	id, seller_id, seller_name, name, description, category, brand, color,
	price, offer_price, shipping_fee, delivery_charge, free_shipping, images,
	stock, rating, sold_count, is_popular, tags, attributes, reviews,
	created_at, updated_at
`

// List returns every product, newest first
func (s *ProductStore) List(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return scanProductRows(rows)
}

// GetByID retrieves a product by ID. It returns nil when none exists.
func (s *ProductStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// GetByIDs retrieves the products with the given IDs in a single query.
// Unknown IDs are skipped.
func (s *ProductStore) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []models.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(valid))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	return scanProductRows(rows)
}

// ListByCategory returns products whose category matches case-insensitively
func (s *ProductStore) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE LOWER(category) = LOWER($1) ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list products by category: %w", err)
	}
	defer rows.Close()

	return scanProductRows(rows)
}

// Create inserts a product and fills in its ID and timestamps
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	attributes, reviews, err := marshalProductJSON(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (
			seller_id, seller_name, name, description, category, brand, color,
			price, offer_price, shipping_fee, delivery_charge, free_shipping, images,
			stock, rating, sold_count, is_popular, tags, attributes, reviews
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		nullString(p.SellerID), nullString(p.SellerName), p.Name, p.Description, p.Category,
		nullString(p.Brand), nullString(p.Color), p.Price, p.OfferPrice, p.ShippingFee,
		p.DeliveryCharge, p.FreeShipping, pq.Array(nonNil(p.Images)), p.Stock, p.Rating,
		p.SoldCount, p.IsPopular, pq.Array(nonNil(p.Tags)), attributes, reviews,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites every mutable column of an existing product
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	attributes, reviews, err := marshalProductJSON(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE products SET
			name = $2, description = $3, category = $4, brand = $5, color = $6,
			price = $7, offer_price = $8, shipping_fee = $9, delivery_charge = $10,
			free_shipping = $11, images = $12, stock = $13, rating = $14, sold_count = $15,
			is_popular = $16, tags = $17, attributes = $18, reviews = $19, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.Description, p.Category, nullString(p.Brand), nullString(p.Color),
		p.Price, p.OfferPrice, p.ShippingFee, p.DeliveryCharge, p.FreeShipping,
		pq.Array(nonNil(p.Images)), p.Stock, p.Rating, p.SoldCount, p.IsPopular,
		pq.Array(nonNil(p.Tags)), attributes, reviews,
	).Scan(&p.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("product %s not found", p.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var sellerID, sellerName, description, brand, color sql.NullString
	var offerPrice, rating sql.NullFloat64
	var images, tags pq.StringArray
	var attributes, reviews []byte
	var updatedAt sql.NullTime

	err := row.Scan(
		&p.ID, &sellerID, &sellerName, &p.Name, &description, &p.Category, &brand, &color,
		&p.Price, &offerPrice, &p.ShippingFee, &p.DeliveryCharge, &p.FreeShipping, &images,
		&p.Stock, &rating, &p.SoldCount, &p.IsPopular, &tags, &attributes, &reviews,
		&p.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.SellerID = sellerID.String
	p.SellerName = sellerName.String
	p.Description = description.String
	p.Brand = brand.String
	p.Color = color.String
	p.Images = []string(images)
	p.Tags = []string(tags)
	if offerPrice.Valid {
		p.OfferPrice = &offerPrice.Float64
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	if len(attributes) > 0 {
		_ = json.Unmarshal(attributes, &p.Attributes)
	}
	if len(reviews) > 0 {
		_ = json.Unmarshal(reviews, &p.Reviews)
	}

	return &p, nil
}

func scanProductRows(rows *sql.Rows) ([]models.Product, error) {
	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

func marshalProductJSON(p *models.Product) (attributes, reviews []byte, err error) {
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	attributes, err = json.Marshal(attrs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	revs := p.Reviews
	if revs == nil {
		revs = []models.Review{}
	}
	reviews, err = json.Marshal(revs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal reviews: %w", err)
	}
	return attributes, reviews, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Helper function for nullable strings
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
