package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"forumpipe/pkg/pagination"
)

const CollectionName = "notifications"

// MongoRepository relies on the unique index created by migrations.EnsureNotificationIndexes for
// idempotent inserts.
type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(CollectionName)}
}

func (r *MongoRepository) Create(ctx context.Context, n *Notification) (_ bool, err error) {
	defer observe("mongodb", "notification_create", time.Now(), &err)

	doc := *n
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err = r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	*n = doc
	return true, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (_ *Notification, err error) {
	defer observe("mongodb", "notification_get", time.Now(), &err)

	var n Notification
	err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

func (r *MongoRepository) ListByRecipient(ctx context.Context, recipientID string, page pagination.Params) (_ []Notification, _ int64, err error) {
	defer observe("mongodb", "notification_list", time.Now(), &err)

	filter := bson.M{"recipient_user_id": recipientID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Size))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var list []Notification
	if err = cursor.All(ctx, &list); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return list, total, nil
}

func (r *MongoRepository) CountUnread(ctx context.Context, recipientID string) (_ int64, err error) {
	defer observe("mongodb", "notification_count_unread", time.Now(), &err)

	count, err := r.collection.CountDocuments(ctx, bson.M{"recipient_user_id": recipientID, "is_read": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *MongoRepository) MarkRead(ctx context.Context, id string) (err error) {
	defer observe("mongodb", "notification_mark_read", time.Now(), &err)

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return notFound(id)
	}
	return nil
}

func (r *MongoRepository) MarkAllRead(ctx context.Context, recipientID string) (_ int64, err error) {
	defer observe("mongodb", "notification_mark_all_read", time.Now(), &err)

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"recipient_user_id": recipientID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}
