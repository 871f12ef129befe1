package visibility

import (
	"testing"

	moderation "github.com/heibot/moderation"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()
	fc := &moderation.FactCheck{Verdict: moderation.VerdictUncertain, Evidence: "Mixed.", Advice: "Ask a doctor."}
	approved := &moderation.Result{Approved: true, SafetyScore: 92, FactCheck: fc}
	rejected := &moderation.Result{Approved: false, SafetyScore: 5, Reason: "Content flagged as insult"}

	t.Run("approved post for public", func(t *testing.T) {
		got := r.Render(RenderContext{ContentType: moderation.ContentPost, Viewer: ViewerPublic}, "Ginger tea helps", approved)
		if !got.Visible || got.Text != "Ginger tea helps" || got.Badge != BadgeTrusted {
			t.Errorf("Render() = %+v", got)
		}
		if got.FactCheck == nil || got.FactCheck.Advice != "Ask a doctor." {
			t.Errorf("FactCheck = %+v", got.FactCheck)
		}
		if got.FactCheck == fc {
			t.Error("Render() should copy the fact check")
		}
	})

	t.Run("rejected comment for public", func(t *testing.T) {
		got := r.Render(RenderContext{ContentType: moderation.ContentComment, Viewer: ViewerPublic}, "rude", rejected)
		if got.Visible || got.Text != "" || got.Message != "[comment hidden]" {
			t.Errorf("Render() = %+v", got)
		}
	})

	t.Run("rejected comment for creator", func(t *testing.T) {
		got := r.Render(RenderContext{ContentType: moderation.ContentComment, Viewer: ViewerCreator}, "rude", rejected)
		if !got.Visible || got.Message != "Content flagged as insult" || got.Badge != BadgeNone {
			t.Errorf("Render() = %+v", got)
		}
	})

	t.Run("custom hidden message", func(t *testing.T) {
		r := NewRenderer()
		r.SetHiddenMessage(moderation.ContentPost, "Removed")
		got := r.Render(RenderContext{ContentType: moderation.ContentPost, Viewer: ViewerPublic}, "x", rejected)
		if got.Message != "Removed" {
			t.Errorf("Message = %q, want Removed", got.Message)
		}
	})

	t.Run("unmoderated for creator", func(t *testing.T) {
		got := r.Render(RenderContext{ContentType: moderation.ContentPost, Viewer: ViewerCreator}, "draft", nil)
		if !got.Visible || got.Badge != BadgeNone || got.Message != "" {
			t.Errorf("Render() = %+v", got)
		}
	})
}
