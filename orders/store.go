package orders

import (
	"context"
	"time"

	"fabritrack/apperr"
	"fabritrack/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Insert(ctx context.Context, o *models.Order) (primitive.ObjectID, error) {
	res, err := s.coll.InsertOne(ctx, o)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (s *MongoStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var o models.Order
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *MongoStore) FindByBuyer(ctx context.Context, email string) ([]models.Order, error) {
	filter := bson.M{
		"userEmail":   email,
		"orderStatus": bson.M{"$ne": models.OrderRejected},
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeOrders(ctx, cur)
}

func (s *MongoStore) FindAll(ctx context.Context) ([]models.Order, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeOrders(ctx, cur)
}

func (s *MongoStore) FindPending(ctx context.Context) ([]models.Order, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"orderStatus": models.OrderPending},
		options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeOrders(ctx, cur)
}

// MarkCancelled applies the buyer cancellation as one conditional
// update; the filter carries both the ownership and the pending-state
// precondition.
func (s *MongoStore) MarkCancelled(ctx context.Context, id primitive.ObjectID, buyerEmail string, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "userEmail": buyerEmail, "orderStatus": models.OrderPending},
		bson.M{"$set": bson.M{"orderStatus": models.OrderRejected, "cancelledAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) MarkApproved(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "orderStatus": models.OrderPending},
		bson.M{"$set": bson.M{"orderStatus": models.OrderConfirmed, "approvedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) MarkRejected(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "orderStatus": models.OrderPending},
		bson.M{"$set": bson.M{"orderStatus": models.OrderRejected, "rejectedAt": at}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// PushTracking appends atomically; $push preserves insertion order
// under concurrent appends without a read-modify-write.
func (s *MongoStore) PushTracking(ctx context.Context, id primitive.ObjectID, ev models.TrackingEvent) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "orderStatus": models.OrderConfirmed},
		bson.M{"$push": bson.M{"tracking": ev}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// MarkPaid settles payment once. The pending-payment filter makes the
// update monotonic: a second settlement matches nothing and the first
// transaction id is kept. The order status field is left alone.
func (s *MongoStore) MarkPaid(ctx context.Context, id primitive.ObjectID, txnID string, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "paymentStatus": models.PaymentPending},
		bson.M{"$set": bson.M{
			"paymentStatus": models.PaymentPaid,
			"paidAt":        at,
			"transactionId": txnID,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) SetPaymentIntent(ctx context.Context, id primitive.ObjectID, intentID string) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"paymentIntentId": intentID}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func decodeOrders(ctx context.Context, cur *mongo.Cursor) ([]models.Order, error) {
	var list []models.Order
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Order{}
	}
	return list, nil
}
