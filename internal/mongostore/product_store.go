// Package mongostore reads and writes products in the MongoDB collection
// the storefront's earlier deployments used.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// Attribute keys stored as dedicated document fields.
const (
	attrFlavor      = "flavor"
	attrSizes       = "sizes"
	attrShoeNumbers = "shoeNumbers"
)

type reviewDoc struct {
	UserID   string `bson:"userId"`
	UserName string `bson:"userName"`
	Rating   int    `bson:"rating"`
	Comment  string `bson:"comment"`
	Date     int64  `bson:"date"`
}

// productDoc mirrors a document in the products collection. Dates are Unix
// milliseconds.
type productDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	UserID         string             `bson:"userId"`
	SellerName     string             `bson:"sellerName"`
	Name           string             `bson:"name"`
	Description    string             `bson:"description"`
	Brand          string             `bson:"brand"`
	Color          string             `bson:"color"`
	Price          float64            `bson:"price"`
	OfferPrice     *float64           `bson:"offerPrice,omitempty"`
	ShippingFee    float64            `bson:"shippingFee"`
	DeliveryCharge float64            `bson:"deliveryCharge"`
	FreeShipping   bool               `bson:"freeShipping"`
	Images         []string           `bson:"images"`
	Category       string             `bson:"category"`
	Stock          int                `bson:"stock"`
	IsPopular      bool               `bson:"isPopular"`
	SoldCount      int                `bson:"soldCount"`
	Tags           []string           `bson:"tags,omitempty"`
	Flavours       string             `bson:"flavours"`
	Sizes          string             `bson:"sizes"`
	ShoeNumbers    string             `bson:"shoeNumbers"`
	Extra          map[string]string  `bson:"attributes,omitempty"`
	Reviews        []reviewDoc        `bson:"reviews"`
	AverageRating  float64            `bson:"averageRating"`
	Date           int64              `bson:"date"`
	UpdatedAt      int64              `bson:"updatedAt,omitempty"`
}

// ProductStore implements product persistence over a Mongo collection.
type ProductStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect dials uri and returns a store over database.collection.
func Connect(ctx context.Context, uri, database, collection string) (*ProductStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &ProductStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

// NewProductStore wraps an existing collection.
func NewProductStore(coll *mongo.Collection) *ProductStore {
	return &ProductStore{coll: coll}
}

// Close disconnects the client opened by Connect.
func (s *ProductStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// List returns every product, newest first.
func (s *ProductStore) List(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return s.find(ctx, bson.M{}, opts)
}

// ListByCategory returns products whose category matches case-insensitively.
func (s *ProductStore) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	filter := bson.M{"category": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(category) + "$", Options: "i"}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	return s.find(ctx, filter, opts)
}

// GetByID returns nil when no product has id.
func (s *ProductStore) GetByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc productDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	p := doc.toModel()
	return &p, nil
}

// GetByIDs fetches every listed product with one $in query. Unknown IDs are
// skipped.
func (s *ProductStore) GetByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []models.Product{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// Create inserts p and assigns its ID.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	doc := fromModel(p)
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	p.ID = doc.ID.Hex()
	return nil
}

// Update replaces the stored document for p.ID.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	oid, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		return fmt.Errorf("product %s not found", p.ID)
	}

	p.UpdatedAt = time.Now().UTC()
	doc := fromModel(p)
	doc.ID = oid

	result, err := s.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("product %s not found", p.ID)
	}
	return nil
}

// Delete removes the product. Deleting a missing product is not an error.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *ProductStore) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Product, error) {
	cursor, err := s.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toModel())
	}
	return products, nil
}

func (d productDoc) toModel() models.Product {
	p := models.Product{
		ID:             d.ID.Hex(),
		SellerID:       d.UserID,
		SellerName:     d.SellerName,
		Name:           d.Name,
		Description:    d.Description,
		Category:       d.Category,
		Brand:          d.Brand,
		Color:          d.Color,
		Price:          d.Price,
		OfferPrice:     d.OfferPrice,
		ShippingFee:    d.ShippingFee,
		DeliveryCharge: d.DeliveryCharge,
		FreeShipping:   d.FreeShipping,
		Images:         d.Images,
		Stock:          d.Stock,
		SoldCount:      d.SoldCount,
		IsPopular:      d.IsPopular,
		Tags:           d.Tags,
		CreatedAt:      fromMillis(d.Date),
		UpdatedAt:      fromMillis(d.UpdatedAt),
	}

	attrs := make(map[string]string, len(d.Extra)+3)
	for k, v := range d.Extra {
		attrs[k] = v
	}
	setIfPresent(attrs, attrFlavor, d.Flavours)
	setIfPresent(attrs, attrSizes, d.Sizes)
	setIfPresent(attrs, attrShoeNumbers, d.ShoeNumbers)
	if len(attrs) > 0 {
		p.Attributes = attrs
	}

	for _, r := range d.Reviews {
		p.Reviews = append(p.Reviews, models.Review{
			UserID:    r.UserID,
			UserName:  r.UserName,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: fromMillis(r.Date),
		})
	}
	if len(d.Reviews) > 0 || d.AverageRating > 0 {
		rating := d.AverageRating
		p.Rating = &rating
	}

	return p
}

func fromModel(p *models.Product) productDoc {
	doc := productDoc{
		UserID:         p.SellerID,
		SellerName:     p.SellerName,
		Name:           p.Name,
		Description:    p.Description,
		Brand:          p.Brand,
		Color:          p.Color,
		Price:          p.Price,
		OfferPrice:     p.OfferPrice,
		ShippingFee:    p.ShippingFee,
		DeliveryCharge: p.DeliveryCharge,
		FreeShipping:   p.FreeShipping,
		Images:         p.Images,
		Category:       p.Category,
		Stock:          p.Stock,
		IsPopular:      p.IsPopular,
		SoldCount:      p.SoldCount,
		Tags:           p.Tags,
		Reviews:        []reviewDoc{},
		Date:           toMillis(p.CreatedAt),
		UpdatedAt:      toMillis(p.UpdatedAt),
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}
	if p.Rating != nil {
		doc.AverageRating = *p.Rating
	}

	for k, v := range p.Attributes {
		switch k {
		case attrFlavor:
			doc.Flavours = v
		case attrSizes:
			doc.Sizes = v
		case attrShoeNumbers:
			doc.ShoeNumbers = v
		default:
			if doc.Extra == nil {
				doc.Extra = make(map[string]string)
			}
			doc.Extra[k] = v
		}
	}

	for _, r := range p.Reviews {
		doc.Reviews = append(doc.Reviews, reviewDoc{
			UserID:   r.UserID,
			UserName: r.UserName,
			Rating:   r.Rating,
			Comment:  r.Comment,
			Date:     toMillis(r.CreatedAt),
		})
	}
	return doc
}

func setIfPresent(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
