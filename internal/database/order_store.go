package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// OrderStore handles order database operations
type OrderStore struct {
	db *DB
}

// NewOrderStore creates a new order store
func NewOrderStore(db *DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create inserts an order and its lines in one transaction
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	address, err := json.Marshal(order.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal address: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			user_id, amount, discount, total_amount, promo_code, address, status, payment_method
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		order.UserID, order.Amount, order.Discount, order.TotalAmount,
		nullString(order.PromoCode), address, order.Status, order.PaymentMethod,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to add order: %w", err)
	}

	for i, item := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, line_no, product_id, quantity, color) VALUES ($1, $2, $3, $4, $5)`,
			order.ID, i, item.ProductID, item.Quantity, nullString(item.Color),
		)
		if err != nil {
			return fmt.Errorf("failed to add order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order by ID. It returns nil when none exists.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	orders, err := s.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// ListByUser returns a user's orders, newest first
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.query(ctx, `WHERE user_id = $1`, userID)
}

// ListContainingProducts returns orders with at least one line for any of productIDs
func (s *OrderStore) ListContainingProducts(ctx context.Context, productIDs []string) ([]models.Order, error) {
	if len(productIDs) == 0 {
		return []models.Order{}, nil
	}
	return s.query(ctx, `WHERE id IN (SELECT order_id FROM order_items WHERE product_id = ANY($1))`, pq.Array(productIDs))
}

// UpdateStatus sets the fulfilment status of an order
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s not found", id)
	}
	return nil
}

func (s *OrderStore) query(ctx context.Context, where string, args ...interface{}) ([]models.Order, error) {
	query := `
		SELECT id, user_id, amount, discount, total_amount, promo_code, address,
			   status, payment_method, created_at, updated_at
		FROM orders
	` + where + `
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	index := make(map[string]int)
	for rows.Next() {
		var order models.Order
		var promoCode sql.NullString
		var address []byte

		err := rows.Scan(
			&order.ID, &order.UserID, &order.Amount, &order.Discount, &order.TotalAmount,
			&promoCode, &address, &order.Status, &order.PaymentMethod,
			&order.CreatedAt, &order.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.PromoCode = promoCode.String
		if err := json.Unmarshal(address, &order.Address); err != nil {
			return nil, fmt.Errorf("failed to decode address of order %s: %w", order.ID, err)
		}
		order.Items = []models.OrderItem{}

		index[order.ID] = len(orders)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if err := s.loadItems(ctx, orders, index); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems attaches lines to orders with one query
func (s *OrderStore) loadItems(ctx context.Context, orders []models.Order, index map[string]int) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, color
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, line_no
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item models.OrderItem
		var color sql.NullString
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &color); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		item.Color = color.String
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return rows.Err()
}
