package client

import (
	"context"
	"strings"

	moderation "github.com/heibot/moderation"
)

// DefaultFieldSeparator joins fields moderated as one text.
const DefaultFieldSeparator = "\n"

// FieldInput is one field of a multi-field submission, such as a post
// title or body.
type FieldInput struct {
	Name string
	Text string
}

// ModerateFieldsInput is the input for multi-field moderation.
type ModerateFieldsInput struct {
	Fields      []FieldInput
	ContentType moderation.ContentType
	Topic       string
	User        *moderation.UserContext
}

// ModerateFields moderates all non-empty fields as a single text so the
// judge sees the title and body together. One decision covers every field.
func (c *Client) ModerateFields(ctx context.Context, input ModerateFieldsInput) moderation.Result {
	return c.Moderate(ctx, moderation.Request{
		Text:        MergeFields(input.Fields),
		ContentType: input.ContentType,
		Topic:       input.Topic,
		User:        input.User,
	})
}

// MergeFields joins the trimmed, non-empty field texts in order.
func MergeFields(fields []FieldInput) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, DefaultFieldSeparator)
}
