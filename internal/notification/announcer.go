package notification

import (
	"context"
	"fmt"

	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/cel"
	"forumpipe/pkg/metrics"
)

// PostAnnouncer emails the moderator and the admin about every new post the routing rule admits.
// Delivery failures are logged and counted; they never fail the message.
type PostAnnouncer struct {
	mailer    Mailer
	rule      *cel.Rule
	moderator string
	admin     string
	logger    logger.Logger
}

// NewPostAnnouncer accepts a nil rule, which admits every post.
func NewPostAnnouncer(mailer Mailer, cfg config.EmailConfig, rule *cel.Rule, log logger.Logger) *PostAnnouncer {
	a := &PostAnnouncer{
		mailer:    mailer,
		rule:      rule,
		moderator: cfg.ModeratorEmail,
		admin:     cfg.AdminEmail,
		logger:    log,
	}
	if a.moderator == "" {
		a.moderator = constants.DefaultModeratorEmail
	}
	if a.admin == "" {
		a.admin = constants.DefaultAdminEmail
	}
	return a
}

func (a *PostAnnouncer) Announce(ctx context.Context, env events.Envelope, ev events.PostCreated) {
	if a.rule != nil {
		admitted, err := a.rule.Match(ctx, env)
		if err != nil {
			a.logger.WarnwCtx(ctx, "Routing rule failed, sending anyway",
				"expression", a.rule.Expression(),
				"error", err,
			)
		} else if !admitted {
			metrics.IncEmailSent("filtered")
			a.logger.DebugwCtx(ctx, "Post announcement filtered by routing rule", "post_id", ev.PostID.String())
			return
		}
	}

	a.send(ctx, a.moderator,
		fmt.Sprintf("New post awaiting review - Post ID: %d", ev.PostID),
		fmt.Sprintf("Hello Moderator,\n\n"+
			"A new post needs review:\n\n"+
			"Post ID: %d\n"+
			"Title: %s\n"+
			"Author: %s\n\n"+
			"Please sign in to review this post.\n\n"+
			"Regards,\n"+
			"School Forum System", ev.PostID, ev.Title, ev.AuthorUsername),
	)

	a.send(ctx, a.admin,
		fmt.Sprintf("Notice: new post - Post ID: %d", ev.PostID),
		fmt.Sprintf("Hello Admin,\n\n"+
			"A new post was created:\n\n"+
			"Post ID: %d\n"+
			"Title: %s\n"+
			"Author: %s\n\n"+
			"Regards,\n"+
			"School Forum System", ev.PostID, ev.Title, ev.AuthorUsername),
	)
}

func (a *PostAnnouncer) send(ctx context.Context, to, subject, body string) {
	if err := a.mailer.Send(ctx, to, subject, body); err != nil {
		metrics.IncEmailSent("failed")
		a.logger.ErrorwCtx(ctx, "Failed to send email", "to", to, "error", err)
		return
	}
	metrics.IncEmailSent("success")
}
