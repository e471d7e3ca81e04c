package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

func TestDocumentMapsCategoryFields(t *testing.T) {
	created := time.Date(2024, 10, 1, 9, 30, 0, 0, time.UTC)
	offer := 1200.0
	p := &models.Product{
		SellerID:   "seller-1",
		Name:       "Mango Ice",
		Category:   "Vapes & Drinks",
		Price:      1500,
		OfferPrice: &offer,
		Attributes: map[string]string{"flavor": "Mango", "puffs": "6000"},
		Reviews:    []models.Review{{UserID: "u1", UserName: "Ram", Rating: 4, CreatedAt: created}},
		CreatedAt:  created,
	}

	doc := fromModel(p)
	assert.Equal(t, "Mango", doc.Flavours)
	assert.Equal(t, map[string]string{"puffs": "6000"}, doc.Extra)
	assert.Equal(t, created.UnixMilli(), doc.Date)
	assert.Equal(t, "seller-1", doc.UserID)
	require.Len(t, doc.Reviews, 1)

	doc.ID = primitive.NewObjectID()
	doc.AverageRating = 4
	back := doc.toModel()
	assert.Equal(t, doc.ID.Hex(), back.ID)
	assert.Equal(t, p.Attributes, back.Attributes)
	assert.True(t, back.CreatedAt.Equal(created))
	require.NotNil(t, back.Rating)
	assert.Equal(t, 4.0, *back.Rating)
	assert.True(t, back.Reviews[0].CreatedAt.Equal(created))
}

func TestDocumentWithoutReviewsHasNoRating(t *testing.T) {
	doc := productDoc{ID: primitive.NewObjectID(), Name: "Plain Tee", Sizes: "S,M,L"}
	p := doc.toModel()
	assert.Nil(t, p.Rating)
	assert.Equal(t, "S,M,L", p.Attributes["sizes"])
	assert.True(t, p.CreatedAt.IsZero())
}

func TestProductStoreAgainstMongo(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("Skipping test: MONGODB_TEST_URI not set")
	}

	ctx := context.Background()
	store, err := Connect(ctx, uri, "hamroeshop_test", "products_"+primitive.NewObjectID().Hex())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.coll.Drop(ctx)
		_ = store.Close(ctx)
	})

	p := &models.Product{Name: "Dhaka Topi", Category: "Men's Fashion", Price: 800}
	require.NoError(t, store.Create(ctx, p))
	require.NotEmpty(t, p.ID)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dhaka Topi", got.Name)

	byCategory, err := store.ListByCategory(ctx, "men's fashion")
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	batch, err := store.GetByIDs(ctx, []string{p.ID, "bogus", primitive.NewObjectID().Hex()})
	require.NoError(t, err)
	assert.Len(t, batch, 1)

	got.Stock = 5
	require.NoError(t, store.Update(ctx, got))
	require.NoError(t, store.Delete(ctx, p.ID))

	missing, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
