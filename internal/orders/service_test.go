package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/testutil"
)

type fakeProducts struct {
	products   []models.Product
	lookups    int
	lookupSize []int
	err        error
}

func (f *fakeProducts) GetProducts(_ context.Context, ids []string) ([]models.Product, error) {
	f.lookups++
	f.lookupSize = append(f.lookupSize, len(ids))
	if f.err != nil {
		return nil, f.err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	out := make([]models.Product, 0)
	for _, p := range f.products {
		if wanted[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) ListProducts(_ context.Context, _ int) ([]models.Product, error) {
	return append([]models.Product(nil), f.products...), nil
}

func f64(v float64) *float64 { return &v }

func testCatalog() *fakeProducts {
	return &fakeProducts{products: []models.Product{
		{ID: "p1", SellerID: "seller-a", Name: "Pashmina Shawl", Price: 2500, OfferPrice: f64(1999.5)},
		{ID: "p2", SellerID: "seller-a", Name: "Dhaka Topi", Price: 800},
		{ID: "p3", SellerID: "seller-b", Name: "Khukuri", Price: 4200, OfferPrice: f64(3900)},
	}}
}

func validAddress() models.Address {
	return models.Address{
		FullName:    "Sita Sharma",
		PhoneNumber: "9841234567",
		Area:        "Baneshwor",
		City:        "Kathmandu",
		Province:    "Bagmati",
	}
}

func newTestService(products *fakeProducts) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, products, nil, testutil.NullLogger()), store
}

func TestPlaceComputesTotals(t *testing.T) {
	products := testCatalog()
	svc, _ := newTestService(products)

	order, err := svc.Place(context.Background(), "user-1", models.PlaceOrderParams{
		Items: []models.OrderItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		Address: validAddress(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, 4799.0, order.Amount)
	assert.Equal(t, 0.0, order.Discount)
	assert.Equal(t, 4799.0, order.TotalAmount)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Equal(t, models.PaymentCashOnDelivery, order.PaymentMethod)
	assert.Equal(t, 1, products.lookups)
}

func TestPlaceAppliesPromoCode(t *testing.T) {
	svc, _ := newTestService(testCatalog())

	order, err := svc.Place(context.Background(), "user-1", models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 5}},
		Address:   validAddress(),
		PromoCode: " hamro10 ",
	})
	require.NoError(t, err)

	assert.Equal(t, "HAMRO10", order.PromoCode)
	assert.Equal(t, 4000.0, order.Amount)
	assert.Equal(t, 400.0, order.Discount)
	assert.Equal(t, 3600.0, order.TotalAmount)
}

func TestPlaceRejectsUnknownPromoCode(t *testing.T) {
	svc, _ := newTestService(testCatalog())

	_, err := svc.Place(context.Background(), "user-1", models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 1}},
		Address:   validAddress(),
		PromoCode: "FREESTUFF",
	})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "invalid promo code", svcErr.Message)
}

func TestPlaceValidation(t *testing.T) {
	tests := []struct {
		name    string
		params  func() models.PlaceOrderParams
		message string
	}{
		{
			name: "missing address fields",
			params: func() models.PlaceOrderParams {
				a := validAddress()
				a.FullName = " "
				a.City = ""
				return models.PlaceOrderParams{Items: []models.OrderItem{{ProductID: "p1", Quantity: 1}}, Address: a}
			},
			message: "missing address fields: fullName, city",
		},
		{
			name: "bad phone",
			params: func() models.PlaceOrderParams {
				a := validAddress()
				a.PhoneNumber = "call me"
				return models.PlaceOrderParams{Items: []models.OrderItem{{ProductID: "p1", Quantity: 1}}, Address: a}
			},
			message: "invalid phone number",
		},
		{
			name: "no items",
			params: func() models.PlaceOrderParams {
				return models.PlaceOrderParams{Address: validAddress()}
			},
			message: "order must contain at least one item",
		},
		{
			name: "zero quantity",
			params: func() models.PlaceOrderParams {
				return models.PlaceOrderParams{Items: []models.OrderItem{{ProductID: "p1", Quantity: 0}}, Address: validAddress()}
			},
			message: "quantity must be at least 1",
		},
		{
			name: "unknown product",
			params: func() models.PlaceOrderParams {
				return models.PlaceOrderParams{Items: []models.OrderItem{{ProductID: "ghost", Quantity: 1}}, Address: validAddress()}
			},
			message: "product ghost not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(testCatalog())

			_, err := svc.Place(context.Background(), "user-1", tt.params())
			var svcErr *ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, tt.message, svcErr.Message)

			orders, _ := store.ListByUser(context.Background(), "user-1")
			assert.Empty(t, orders)
		})
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"9841234567", "+9779801234567", "977 980-123-4567", "+14155550123", "0142345678"}
	invalid := []string{"", "12345", "98412345678901234", "phone"}

	for _, p := range valid {
		assert.True(t, ValidPhone(p), p)
	}
	for _, p := range invalid {
		assert.False(t, ValidPhone(p), p)
	}
}

func TestListForUserPopulatesWithOneLookup(t *testing.T) {
	products := testCatalog()
	svc, _ := newTestService(products)
	ctx := context.Background()

	for _, items := range [][]models.OrderItem{
		{{ProductID: "p1", Quantity: 1}, {ProductID: "p3", Quantity: 1}},
		{{ProductID: "p1", Quantity: 3}},
		{{ProductID: "p2", Quantity: 1}},
	} {
		_, err := svc.Place(ctx, "user-1", models.PlaceOrderParams{Items: items, Address: validAddress()})
		require.NoError(t, err)
	}

	products.lookups = 0
	products.lookupSize = nil
	orders, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)

	require.Len(t, orders, 3)
	assert.Equal(t, 1, products.lookups)
	assert.Equal(t, []int{3}, products.lookupSize)
	for _, o := range orders {
		for _, item := range o.Items {
			assert.False(t, item.Missing)
			assert.NotEmpty(t, item.Product.Name)
		}
	}
}

func TestListForUserUsesPlaceholderForDeletedProducts(t *testing.T) {
	products := testCatalog()
	svc, _ := newTestService(products)
	ctx := context.Background()

	_, err := svc.Place(ctx, "user-1", models.PlaceOrderParams{
		Items:   []models.OrderItem{{ProductID: "p1", Quantity: 1}, {ProductID: "p2", Quantity: 1}},
		Address: validAddress(),
	})
	require.NoError(t, err)

	products.products = products.products[1:]

	orders, err := svc.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 2)

	missing := orders[0].Items[0]
	assert.True(t, missing.Missing)
	assert.Equal(t, models.PlaceholderProductName, missing.Product.Name)
	assert.Equal(t, "p1", missing.ProductID)
	assert.Empty(t, missing.Product.Images)

	assert.False(t, orders[0].Items[1].Missing)
	assert.Equal(t, "Dhaka Topi", orders[0].Items[1].Product.Name)
}

func TestListForSellerFiltersByOwnership(t *testing.T) {
	products := testCatalog()
	svc, _ := newTestService(products)
	ctx := context.Background()

	place := func(userID string, ids ...string) {
		items := make([]models.OrderItem, 0, len(ids))
		for _, id := range ids {
			items = append(items, models.OrderItem{ProductID: id, Quantity: 1})
		}
		_, err := svc.Place(ctx, userID, models.PlaceOrderParams{Items: items, Address: validAddress()})
		require.NoError(t, err)
	}
	place("user-1", "p1")
	place("user-2", "p3")
	place("user-3", "p2", "p3")

	sellerA, err := svc.ListForSeller(ctx, "seller-a", models.RoleSeller)
	require.NoError(t, err)
	assert.Len(t, sellerA, 2)

	sellerB, err := svc.ListForSeller(ctx, "seller-b", models.RoleSeller)
	require.NoError(t, err)
	assert.Len(t, sellerB, 2)

	nobody, err := svc.ListForSeller(ctx, "seller-c", models.RoleSeller)
	require.NoError(t, err)
	assert.Empty(t, nobody)

	admin, err := svc.ListForSeller(ctx, "admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admin, 3)
}

func TestUpdateStatus(t *testing.T) {
	svc, store := newTestService(testCatalog())
	ctx := context.Background()

	order, err := svc.Place(ctx, "user-1", models.PlaceOrderParams{
		Items:   []models.OrderItem{{ProductID: "p3", Quantity: 1}},
		Address: validAddress(),
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, "seller-a", models.RoleSeller, order.ID, models.OrderStatusShipped)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = svc.UpdateStatus(ctx, "user-1", models.RoleCustomer, order.ID, models.OrderStatusCancelled)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = svc.UpdateStatus(ctx, "seller-b", models.RoleSeller, order.ID, "Lost")
	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)

	_, err = svc.UpdateStatus(ctx, "seller-b", models.RoleSeller, "missing", models.OrderStatusShipped)
	assert.True(t, errors.Is(err, ErrNotFound))

	updated, err := svc.UpdateStatus(ctx, "seller-b", models.RoleSeller, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, updated.Status)

	stored, err := store.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, stored.Status)

	_, err = svc.UpdateStatus(ctx, "admin-1", models.RoleAdmin, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
}

func TestLookupErrorPropagates(t *testing.T) {
	products := testCatalog()
	products.err = errors.New("db down")
	svc, _ := newTestService(products)

	_, err := svc.Place(context.Background(), "user-1", models.PlaceOrderParams{
		Items:   []models.OrderItem{{ProductID: "p1", Quantity: 1}},
		Address: validAddress(),
	})
	assert.EqualError(t, err, "db down")
}

func TestAddressBook(t *testing.T) {
	svc, _ := newTestService(testCatalog())
	ctx := context.Background()

	address := validAddress()
	address.FullName = "  Sita Sharma "
	address.Zipcode = "44600"
	saved, err := svc.AddAddress(ctx, "user-1", address)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, "Sita Sharma", saved.FullName)
	assert.Equal(t, "44600", saved.Zipcode)

	_, err = svc.AddAddress(ctx, "user-2", validAddress())
	require.NoError(t, err)

	mine, err := svc.ListAddresses(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, saved.ID, mine[0].ID)

	none, err := svc.ListAddresses(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAddAddressValidation(t *testing.T) {
	svc, _ := newTestService(testCatalog())

	bad := validAddress()
	bad.PhoneNumber = "12ab"
	_, err := svc.AddAddress(context.Background(), "user-1", bad)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "invalid phone number", svcErr.Message)

	_, err = svc.AddAddress(context.Background(), "user-1", models.Address{FullName: "Sita"})
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "missing address fields: phoneNumber, area, city, province", svcErr.Message)

	addresses, err := svc.ListAddresses(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, addresses)
}

func TestPlaceWithSavedAddress(t *testing.T) {
	svc, _ := newTestService(testCatalog())
	ctx := context.Background()

	home := validAddress()
	home.City = "Lalitpur"
	saved, err := svc.AddAddress(ctx, "user-1", home)
	require.NoError(t, err)

	order, err := svc.Place(ctx, "user-1", models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 1}},
		Address:   models.Address{FullName: "ignored"},
		AddressID: saved.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lalitpur", order.Address.City)
	assert.Equal(t, "Sita Sharma", order.Address.FullName)

	_, err = svc.Place(ctx, "user-2", models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 1}},
		AddressID: saved.ID,
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)

	_, err = svc.Place(ctx, "user-1", models.PlaceOrderParams{
		Items:     []models.OrderItem{{ProductID: "p2", Quantity: 1}},
		AddressID: "missing",
	})
	assert.ErrorIs(t, err, ErrAddressNotFound)
}
