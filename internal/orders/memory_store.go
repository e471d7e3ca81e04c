package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// MemoryStore keeps orders in process.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]models.Order)}
}

func (s *MemoryStore) Create(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = uuid.NewString()
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	c := cloneOrder(order)
	return &c, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	return s.filter(func(o models.Order) bool { return o.UserID == userID }), nil
}

func (s *MemoryStore) ListContainingProducts(_ context.Context, productIDs []string) ([]models.Order, error) {
	wanted := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	return s.filter(func(o models.Order) bool {
		for _, item := range o.Items {
			if wanted[item.ProductID] {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	s.orders[id] = order
	return nil
}

func (s *MemoryStore) filter(keep func(models.Order) bool) []models.Order {
	s.mu.RLock()
	out := make([]models.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func cloneOrder(o models.Order) models.Order {
	c := o
	c.Items = append([]models.OrderItem(nil), o.Items...)
	return c
}

var _ Store = (*MemoryStore)(nil)

// MemoryAddressStore keeps saved addresses in process.
type MemoryAddressStore struct {
	mu        sync.RWMutex
	addresses map[string]models.SavedAddress
}

// NewMemoryAddressStore creates an empty address book.
func NewMemoryAddressStore() *MemoryAddressStore {
	return &MemoryAddressStore{addresses: make(map[string]models.SavedAddress)}
}

func (s *MemoryAddressStore) Create(_ context.Context, address *models.SavedAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address.ID = uuid.NewString()
	address.CreatedAt = time.Now().UTC()
	s.addresses[address.ID] = *address
	return nil
}

func (s *MemoryAddressStore) GetByID(_ context.Context, id string) (*models.SavedAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	address, ok := s.addresses[id]
	if !ok {
		return nil, nil
	}
	return &address, nil
}

func (s *MemoryAddressStore) ListByUser(_ context.Context, userID string) ([]models.SavedAddress, error) {
	s.mu.RLock()
	out := make([]models.SavedAddress, 0)
	for _, a := range s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

var _ AddressStore = (*MemoryAddressStore)(nil)
