package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const notificationsCollection = "notifications"

// EnsureNotificationIndexes creates the notification indexes. The unique index is what makes a
// redelivered CommentCreated a no-op.
func EnsureNotificationIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(notificationsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipient_user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_recipient_created_at"),
		},
		{
			Keys:    bson.D{{Key: "recipient_user_id", Value: 1}, {Key: "is_read", Value: 1}},
			Options: options.Index().SetName("idx_notifications_recipient_unread"),
		},
		{
			Keys: bson.D{
				{Key: "recipient_user_id", Value: 1},
				{Key: "type", Value: 1},
				{Key: "related_comment_id", Value: 1},
			},
			Options: options.Index().
				SetName("uq_notifications_recipient_type_comment").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"related_comment_id": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
