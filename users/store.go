package users

import (
	"context"

	"fabritrack/apperr"
	"fabritrack/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store is the identity store consumed by the handlers and by the
// authorization guard.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) (primitive.ObjectID, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) (bool, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the unique email index that backs the
// registration race check.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true).SetName("unique_email"),
	})
	return err
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) Insert(ctx context.Context, u *models.User) (primitive.ObjectID, error) {
	res, err := s.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return primitive.NilObjectID, apperr.New(apperr.Conflict, "Email already registered")
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *MongoStore) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) ListAll(ctx context.Context) ([]models.User, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []models.User
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.User{}
	}
	return list, nil
}
