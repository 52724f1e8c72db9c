package notification

import (
	"context"

	"forumpipe/internal/broker"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/logging"
)

// Router is the single handler of the notification consumer group. It subscribes to all four
// domain topics and dispatches on the decoded payload type.
type Router struct {
	materializer *Materializer
	announcer    *PostAnnouncer
	logger       logger.Logger
}

func NewRouter(materializer *Materializer, announcer *PostAnnouncer, log logger.Logger) *Router {
	return &Router{materializer: materializer, announcer: announcer, logger: log}
}

func (r *Router) Handler() broker.Handler {
	return broker.NewHandler("notification-router", events.DecodeMessage, r.Handle)
}

func (r *Router) Handle(ctx context.Context, ev events.Event) error {
	if ev.Envelope.EventID != "" {
		ctx = logging.WithEventID(ctx, ev.Envelope.EventID)
	}

	switch p := ev.Payload.(type) {
	case events.CommentCreated:
		return r.materializer.HandleCommentCreated(ctx, p)
	case events.PostCreated:
		if r.announcer != nil {
			r.announcer.Announce(ctx, ev.Envelope, p)
		}
		return nil
	case events.PostUpdated:
		r.logger.InfowCtx(ctx, "Post updated", "post_id", p.PostID.String(), "title", p.Title)
		return nil
	case events.PostDeleted:
		r.logger.InfowCtx(ctx, "Post deleted", "post_id", p.PostID.String())
		return nil
	default:
		r.logger.WarnwCtx(ctx, "Unhandled event type", "event_type", ev.Envelope.EventType)
		return nil
	}
}
