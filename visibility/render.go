package visibility

import (
	moderation "github.com/heibot/moderation"
)

// RenderResult is what a viewer is shown for one piece of content.
type RenderResult struct {
	Visible   bool                  // Whether the content is shown at all
	Text      string                // Text to display
	Badge     Badge                 // Trust badge, approved content only
	Message   string                // Placeholder or notice for the viewer
	FactCheck *moderation.FactCheck // Advisory annotation, if any
}

// Renderer renders moderated content for a viewer.
type Renderer struct {
	hiddenMessages map[moderation.ContentType]string
}

// NewRenderer creates a new renderer.
func NewRenderer() *Renderer {
	return &Renderer{
		hiddenMessages: map[moderation.ContentType]string{
			moderation.ContentPost:         "This post is not available.",
			moderation.ContentQuestion:     "This question is not available.",
			moderation.ContentComment:      "[comment hidden]",
			moderation.ContentImageCaption: "",
		},
	}
}

// SetHiddenMessage sets the placeholder for hidden content of a type.
func (r *Renderer) SetHiddenMessage(contentType moderation.ContentType, msg string) {
	r.hiddenMessages[contentType] = msg
}

// RenderContext provides context for rendering.
type RenderContext struct {
	ContentType moderation.ContentType
	Viewer      ViewerRole
}

// Render renders text with its moderation result. A nil result means the
// content has not been moderated.
func (r *Renderer) Render(ctx RenderContext, text string, result *moderation.Result) RenderResult {
	policy := GetPolicy(ctx.ContentType)

	if !CanView(policy, result, ctx.Viewer) {
		return RenderResult{Message: r.hiddenMessages[ctx.ContentType]}
	}

	out := RenderResult{Visible: true, Text: text}
	if result == nil {
		return out
	}

	out.Badge = BadgeFor(*result)
	if result.FactCheck != nil {
		fc := *result.FactCheck
		out.FactCheck = &fc
	}
	if !result.Approved {
		out.Message = Notice(*result)
	}
	return out
}
