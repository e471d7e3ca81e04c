// Package orders places cash-on-delivery orders and lists them for
// customers and sellers.
package orders

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when the actor may not change an order.
	ErrForbidden = errors.New("not allowed to modify this order")
	// ErrAddressNotFound is returned when a saved address does not exist
	// or belongs to another customer.
	ErrAddressNotFound = errors.New("address not found")
)

var (
	nepalPhonePattern   = regexp.MustCompile(`^(\+?977)?9[678]\d{8}$`)
	genericPhonePattern = regexp.MustCompile(`^\+?\d{7,15}$`)
	phoneSeparators     = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// DefaultPromoCodes maps promo codes to percentage discounts.
var DefaultPromoCodes = map[string]float64{
	"HAMRO10":   10,
	"DASHAIN15": 15,
}

// ServiceError is a validation failure reported to the caller as-is.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Store persists orders. GetByID returns nil, nil when nothing matches.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListContainingProducts(ctx context.Context, productIDs []string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}

// ProductLookup resolves the products referenced by order lines.
type ProductLookup interface {
	GetProducts(ctx context.Context, ids []string) ([]models.Product, error)
	ListProducts(ctx context.Context, limit int) ([]models.Product, error)
}

// AddressStore persists customers' saved addresses. GetByID returns nil, nil
// when nothing matches.
type AddressStore interface {
	Create(ctx context.Context, address *models.SavedAddress) error
	GetByID(ctx context.Context, id string) (*models.SavedAddress, error)
	ListByUser(ctx context.Context, userID string) ([]models.SavedAddress, error)
}

// Option configures a Service.
type Option func(*Service)

// WithAddressBook sets where saved addresses are kept. The default is in memory.
func WithAddressBook(store AddressStore) Option {
	return func(s *Service) { s.addresses = store }
}

// Service implements order placement and listing.
type Service struct {
	store     Store
	addresses AddressStore
	products  ProductLookup
	promos    map[string]float64
	logger    *logging.Logger
}

// NewService creates an order service. A nil promos table means DefaultPromoCodes.
func NewService(store Store, products ProductLookup, promos map[string]float64, logger *logging.Logger, opts ...Option) *Service {
	if promos == nil {
		promos = DefaultPromoCodes
	}
	normalized := make(map[string]float64, len(promos))
	for code, pct := range promos {
		normalized[strings.ToUpper(strings.TrimSpace(code))] = pct
	}
	s := &Service{
		store:     store,
		addresses: NewMemoryAddressStore(),
		products:  products,
		promos:    normalized,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddAddress validates and saves a delivery address for userID.
func (s *Service) AddAddress(ctx context.Context, userID string, address models.Address) (*models.SavedAddress, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ServiceError{Message: "user is required"}
	}
	address, err := validateAddress(address)
	if err != nil {
		return nil, err
	}

	saved := &models.SavedAddress{UserID: userID, Address: address}
	if err := s.addresses.Create(ctx, saved); err != nil {
		s.logger.Error("Failed to save address", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.logger.Info("Saved address", logging.WithFields(map[string]interface{}{
		"id":      saved.ID,
		"user_id": userID,
	}))
	return saved, nil
}

// ListAddresses returns userID's saved addresses, newest first.
func (s *Service) ListAddresses(ctx context.Context, userID string) ([]models.SavedAddress, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// resolveAddress returns the saved address when id is set, otherwise the
// inline one.
func (s *Service) resolveAddress(ctx context.Context, userID, id string, inline models.Address) (models.Address, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return validateAddress(inline)
	}

	saved, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return models.Address{}, err
	}
	if saved == nil || saved.UserID != userID {
		return models.Address{}, ErrAddressNotFound
	}
	return validateAddress(saved.Address)
}

// Place validates and stores an order for userID.
func (s *Service) Place(ctx context.Context, userID string, params models.PlaceOrderParams) (*models.Order, error) {
	address, err := s.resolveAddress(ctx, userID, params.AddressID, params.Address)
	if err != nil {
		return nil, err
	}
	if len(params.Items) == 0 {
		return nil, &ServiceError{Message: "order must contain at least one item"}
	}
	for _, item := range params.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, &ServiceError{Message: "every item needs a product"}
		}
		if item.Quantity < 1 {
			return nil, &ServiceError{Message: "quantity must be at least 1"}
		}
	}

	order := &models.Order{
		UserID:        userID,
		Items:         params.Items,
		Address:       address,
		Status:        models.OrderStatusPlaced,
		PaymentMethod: models.PaymentCashOnDelivery,
	}

	byID, err := s.lookup(ctx, order.ProductIDs())
	if err != nil {
		return nil, err
	}
	for _, item := range order.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ServiceError{Message: "product " + item.ProductID + " not found"}
		}
		order.Amount += p.EffectivePrice() * float64(item.Quantity)
	}
	order.Amount = roundCents(order.Amount)

	if code := strings.ToUpper(strings.TrimSpace(params.PromoCode)); code != "" {
		pct, ok := s.promos[code]
		if !ok {
			return nil, &ServiceError{Message: "invalid promo code"}
		}
		order.PromoCode = code
		order.Discount = roundCents(order.Amount * pct / 100)
	}
	order.TotalAmount = roundCents(order.Amount - order.Discount)

	if err := s.store.Create(ctx, order); err != nil {
		s.logger.Error("Failed to place order", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.logger.Info("Placed order", logging.WithFields(map[string]interface{}{
		"id":      order.ID,
		"user_id": userID,
		"total":   order.TotalAmount,
	}))
	return order, nil
}

// ListForUser returns a customer's orders with product details.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.PopulatedOrder, error) {
	orders, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, orders)
}

// ListForSeller returns orders containing at least one of sellerID's
// products. Admins see every order that references a current product.
func (s *Service) ListForSeller(ctx context.Context, sellerID string, role models.Role) ([]models.PopulatedOrder, error) {
	all, err := s.products.ListProducts(ctx, 0)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0)
	for _, p := range all {
		if role == models.RoleAdmin || p.SellerID == sellerID {
			ids = append(ids, p.ID)
		}
	}

	orders, err := s.store.ListContainingProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, orders)
}

// UpdateStatus moves an order to status. Sellers may update orders that
// contain their products; admins may update any order.
func (s *Service) UpdateStatus(ctx context.Context, actorID string, role models.Role, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, &ServiceError{Message: "invalid status: " + string(status)}
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}

	if role != models.RoleAdmin {
		if role != models.RoleSeller {
			return nil, ErrForbidden
		}
		byID, err := s.lookup(ctx, order.ProductIDs())
		if err != nil {
			return nil, err
		}
		owns := false
		for _, p := range byID {
			if p.SellerID == actorID {
				owns = true
				break
			}
		}
		if !owns {
			return nil, ErrForbidden
		}
	}

	if err := s.store.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.Status = status

	s.logger.Info("Updated order status", logging.WithFields(map[string]interface{}{
		"id":     orderID,
		"status": string(status),
	}))
	return order, nil
}

// populate joins every order line with its product using a single lookup
// over the distinct product IDs of all orders. Missing products become a
// placeholder.
func (s *Service) populate(ctx context.Context, orders []models.Order) ([]models.PopulatedOrder, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for i := range orders {
		for _, id := range orders[i].ProductIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	byID, err := s.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.PopulatedOrder, 0, len(orders))
	for _, order := range orders {
		items := make([]models.PopulatedItem, 0, len(order.Items))
		for _, item := range order.Items {
			p, ok := byID[item.ProductID]
			if !ok {
				items = append(items, models.PopulatedItem{
					OrderItem: item,
					Product:   models.Product{ID: item.ProductID, Name: models.PlaceholderProductName, Images: []string{}},
					Missing:   true,
				})
				continue
			}
			items = append(items, models.PopulatedItem{OrderItem: item, Product: p})
		}
		out = append(out, models.PopulatedOrder{Order: order, Items: items})
	}
	return out, nil
}

func (s *Service) lookup(ctx context.Context, ids []string) (map[string]models.Product, error) {
	byID := make(map[string]models.Product, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

// ValidPhone reports whether phone is a Nepali mobile number or a generic
// international number. Spaces, dashes and parentheses are ignored.
func ValidPhone(phone string) bool {
	phone = phoneSeparators.Replace(strings.TrimSpace(phone))
	return nepalPhonePattern.MatchString(phone) || genericPhonePattern.MatchString(phone)
}

func validateAddress(a models.Address) (models.Address, error) {
	a.FullName = strings.TrimSpace(a.FullName)
	a.PhoneNumber = strings.TrimSpace(a.PhoneNumber)
	a.Zipcode = strings.TrimSpace(a.Zipcode)
	a.Area = strings.TrimSpace(a.Area)
	a.City = strings.TrimSpace(a.City)
	a.Province = strings.TrimSpace(a.Province)

	var missing []string
	if a.FullName == "" {
		missing = append(missing, "fullName")
	}
	if a.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if a.Area == "" {
		missing = append(missing, "area")
	}
	if a.City == "" {
		missing = append(missing, "city")
	}
	if a.Province == "" {
		missing = append(missing, "province")
	}
	if len(missing) > 0 {
		return a, &ServiceError{Message: "missing address fields: " + strings.Join(missing, ", ")}
	}
	if !ValidPhone(a.PhoneNumber) {
		return a, &ServiceError{Message: "invalid phone number"}
	}
	return a, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
