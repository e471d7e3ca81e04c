package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// AddressStore handles saved delivery addresses
type AddressStore struct {
	db *DB
}

// NewAddressStore creates a new address store
func NewAddressStore(db *DB) *AddressStore {
	return &AddressStore{db: db}
}

// Create inserts a saved address and fills its ID and creation time
func (s *AddressStore) Create(ctx context.Context, address *models.SavedAddress) error {
	query := `
		INSERT INTO addresses (user_id, full_name, phone_number, zipcode, area, city, province)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		address.UserID, address.FullName, address.PhoneNumber, nullString(address.Zipcode),
		address.Area, address.City, address.Province,
	).Scan(&address.ID, &address.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add address: %w", err)
	}
	return nil
}

// GetByID retrieves a saved address. It returns nil when none exists.
func (s *AddressStore) GetByID(ctx context.Context, id string) (*models.SavedAddress, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	addresses, err := s.query(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, nil
	}
	return &addresses[0], nil
}

// ListByUser returns a user's saved addresses, newest first
func (s *AddressStore) ListByUser(ctx context.Context, userID string) ([]models.SavedAddress, error) {
	return s.query(ctx, `WHERE user_id = $1`, userID)
}

func (s *AddressStore) query(ctx context.Context, where string, args ...interface{}) ([]models.SavedAddress, error) {
	query := `
		SELECT id, user_id, full_name, phone_number, zipcode, area, city, province, created_at
		FROM addresses
	` + where + `
		ORDER BY created_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]models.SavedAddress, 0)
	for rows.Next() {
		var a models.SavedAddress
		var zipcode sql.NullString
		err := rows.Scan(&a.ID, &a.UserID, &a.FullName, &a.PhoneNumber, &zipcode,
			&a.Area, &a.City, &a.Province, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		a.Zipcode = zipcode.String
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate addresses: %w", err)
	}
	return addresses, nil
}
