package products

import (
	"context"

	"fabritrack/apperr"
	"fabritrack/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Patch carries the updatable product fields; nil means untouched.
type Patch struct {
	Title             *string  `json:"title"`
	Category          *string  `json:"category"`
	Price             *float64 `json:"price"`
	AvailableQuantity *int     `json:"availableQuantity"`
	MOQ               *int     `json:"moq"`
	PaymentOption     *string  `json:"paymentOption"`
	ShowOnHome        *bool    `json:"showOnHome"`
}

type Store interface {
	List(ctx context.Context) ([]models.Product, error)
	ListFeatured(ctx context.Context, limit int64) ([]models.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	ExistsExact(ctx context.Context, spec models.ProductSpec) (bool, error)
	Insert(ctx context.Context, p *models.Product) (primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, patch Patch) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	SetFeatured(ctx context.Context, id primitive.ObjectID, flag bool) (bool, error)
	SetImage(ctx context.Context, id primitive.ObjectID, image, thumb string) (bool, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) List(ctx context.Context) ([]models.Product, error) {
	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

func (s *MongoStore) ListFeatured(ctx context.Context, limit int64) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"showOnHome": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeAll(ctx, cur)
}

func (s *MongoStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "Product not found")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ExistsExact reports whether a product matching every comparable
// field already exists.
func (s *MongoStore) ExistsExact(ctx context.Context, spec models.ProductSpec) (bool, error) {
	err := s.coll.FindOne(ctx, bson.M{
		"title":             spec.Title,
		"category":          spec.Category,
		"price":             spec.Price,
		"availableQuantity": spec.AvailableQuantity,
		"moq":               spec.MOQ,
		"paymentOption":     spec.PaymentOption,
		"showOnHome":        spec.ShowOnHome,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *MongoStore) Insert(ctx context.Context, p *models.Product) (primitive.ObjectID, error) {
	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *MongoStore) Update(ctx context.Context, id primitive.ObjectID, patch Patch) (bool, error) {
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.AvailableQuantity != nil {
		set["availableQuantity"] = *patch.AvailableQuantity
	}
	if patch.MOQ != nil {
		set["moq"] = *patch.MOQ
	}
	if patch.PaymentOption != nil {
		set["paymentOption"] = *patch.PaymentOption
	}
	if patch.ShowOnHome != nil {
		set["showOnHome"] = *patch.ShowOnHome
	}
	if len(set) == 0 {
		return false, apperr.New(apperr.InvalidArgument, "No fields to update")
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) SetFeatured(ctx context.Context, id primitive.ObjectID, flag bool) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"showOnHome": flag}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) SetImage(ctx context.Context, id primitive.ObjectID, image, thumb string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"image":     image,
		"thumbnail": thumb,
	}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.Product, error) {
	var list []models.Product
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Product{}
	}
	return list, nil
}
