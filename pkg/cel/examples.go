package cel

// RoutingExpressionExamples are filters accepted by notification.routing.post_created_email.
var RoutingExpressionExamples = map[string]string{
	"always":        `true`,
	"by_event_type": `eventType == "PostCreated"`,
	"skip_author":   `payload.authorUsername != "system"`,
	"title_keyword": `payload.title.lowerAscii().contains("urgent")`,
	"id_range":      `payload.postId > 1000`,
	"has_field":     `has(payload.authorUsername) && payload.authorUsername != ""`,
	"combined":      `eventType == "PostCreated" && !payload.title.startsWith("[draft]")`,
	"recent":        `occurredAt > timestamp("2024-01-01T00:00:00Z")`,
}
