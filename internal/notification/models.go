package notification

import "time"

type Type string

const TypeCommentOnPost Type = "COMMENT_ON_POST"

// Notification is an in-app message for one recipient. It is created once and afterwards only its
// read flag changes.
type Notification struct {
	ID               string    `bson:"_id"`
	RecipientUserID  string    `bson:"recipient_user_id"`
	ActorUsername    string    `bson:"actor_username"`
	Type             Type      `bson:"type"`
	Title            string    `bson:"title"`
	Message          string    `bson:"message"`
	RelatedPostID    int64     `bson:"related_post_id"`
	RelatedCommentID *int64    `bson:"related_comment_id,omitempty"`
	IsRead           bool      `bson:"is_read"`
	CreatedAt        time.Time `bson:"created_at"`
}

type NotificationResponse struct {
	ID               string    `json:"id"`
	RecipientUserID  string    `json:"recipientUserId"`
	ActorUsername    string    `json:"actorUsername"`
	Type             Type      `json:"type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	RelatedPostID    int64     `json:"relatedPostId"`
	RelatedCommentID *int64    `json:"relatedCommentId,omitempty"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func toResponse(n *Notification) NotificationResponse {
	return NotificationResponse{
		ID:               n.ID,
		RecipientUserID:  n.RecipientUserID,
		ActorUsername:    n.ActorUsername,
		Type:             n.Type,
		Title:            n.Title,
		Message:          n.Message,
		RelatedPostID:    n.RelatedPostID,
		RelatedCommentID: n.RelatedCommentID,
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	}
}
