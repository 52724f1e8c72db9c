package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	KafkaMaxAttempts  = 3
	KafkaMinBytes     = 1
	KafkaMaxBytes     = 10e6
)

const (
	TopicPostCreated    = "post-created"
	TopicPostUpdated    = "post-updated"
	TopicPostDeleted    = "post-deleted"
	TopicCommentCreated = "comment-created"
	TopicPostsCDC       = "dbserver1.public.posts"
)

const (
	GroupNotification      = "notification-service-group"
	GroupCacheInvalidation = "post-cache-invalidation-group"
)

const (
	CacheKeyPrefixPost = "post:"
	DefaultPostTTL     = 30 * time.Minute
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	ShutdownTimeout    = 5 * time.Second
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

const (
	NotificationPreviewLen = 50
	NotificationEllipsis   = "..."
)

const (
	NotificationStorePostgres = "postgres"
	NotificationStoreMongoDB  = "mongodb"
)

const (
	DefaultModeratorEmail = "moderator@school.edu"
	DefaultAdminEmail     = "admin@school.edu"
)

const (
	DefaultMongoDBName = "forum"
)
