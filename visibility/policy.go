// Package visibility decides who may see moderated content and how it
// is labelled.
package visibility

import (
	moderation "github.com/heibot/moderation"
)

// Policy defines how content is displayed when it was not approved.
type Policy string

const (
	// PolicyApprovedOnly hides unapproved content from everyone but admins.
	PolicyApprovedOnly Policy = "approved_only"

	// PolicyCreatorOnlyDuringReview shows unapproved content to its creator.
	PolicyCreatorOnlyDuringReview Policy = "creator_only_during_review"

	// PolicyAlwaysVisible always shows content.
	PolicyAlwaysVisible Policy = "always_visible"
)

// ViewerRole represents who is viewing the content.
type ViewerRole string

const (
	ViewerCreator ViewerRole = "creator" // Content author
	ViewerPublic  ViewerRole = "public"  // Other community members
	ViewerAdmin   ViewerRole = "admin"   // Moderators
)

// PolicyRegistry maps content types to their visibility policies.
var PolicyRegistry = map[moderation.ContentType]Policy{
	moderation.ContentPost:     PolicyCreatorOnlyDuringReview,
	moderation.ContentQuestion: PolicyCreatorOnlyDuringReview,
	moderation.ContentComment:  PolicyCreatorOnlyDuringReview,

	// Captions are shown next to an image the creator already sees.
	moderation.ContentImageCaption: PolicyApprovedOnly,
}

// GetPolicy returns the visibility policy for a content type.
func GetPolicy(contentType moderation.ContentType) Policy {
	if policy, ok := PolicyRegistry[contentType]; ok {
		return policy
	}
	return PolicyApprovedOnly // Default to strictest
}

// SetPolicy sets a custom visibility policy for a content type.
func SetPolicy(contentType moderation.ContentType, policy Policy) {
	PolicyRegistry[contentType] = policy
}

// CanView determines if a viewer can see content with the given result.
// Content without a result has not been moderated yet and is hidden from
// the public.
func CanView(policy Policy, result *moderation.Result, viewer ViewerRole) bool {
	if viewer == ViewerAdmin {
		return true
	}
	if result != nil && result.Approved {
		return true
	}

	switch policy {
	case PolicyAlwaysVisible:
		return true
	case PolicyCreatorOnlyDuringReview:
		return viewer == ViewerCreator
	default:
		return false
	}
}

// Badge is the trust label shown next to approved content.
type Badge string

const (
	BadgeNone              Badge = ""
	BadgeCommunityReviewed Badge = "community_reviewed"
	BadgeTrusted           Badge = "trusted"
)

// Badge score bands.
const (
	CommunityReviewedMin = 40 // exclusive
	CommunityReviewedMax = 75 // exclusive
	TrustedMin           = 90
)

// BadgeFor returns the badge for a result. Only approved results with a
// non-zero score get one.
func BadgeFor(result moderation.Result) Badge {
	if !result.Approved || result.SafetyScore == 0 {
		return BadgeNone
	}
	switch score := result.SafetyScore; {
	case score > CommunityReviewedMin && score < CommunityReviewedMax:
		return BadgeCommunityReviewed
	case score >= TrustedMin:
		return BadgeTrusted
	default:
		return BadgeNone
	}
}

// Label returns the display text of the badge.
func (b Badge) Label() string {
	switch b {
	case BadgeCommunityReviewed:
		return "Community Reviewed"
	case BadgeTrusted:
		return "Trusted Post"
	default:
		return ""
	}
}

// DefaultNotice is shown to the author when a rejection carries no reason.
const DefaultNotice = "This content may not be appropriate for the community."

// Notice returns the message shown to the author of rejected content.
// Approved content has no notice.
func Notice(result moderation.Result) string {
	if result.Approved {
		return ""
	}
	msg := result.Reason
	if msg == "" {
		msg = DefaultNotice
	}
	if result.SuggestedEdit != nil && *result.SuggestedEdit != "" {
		msg += "\nSuggested edit: " + *result.SuggestedEdit
	}
	return msg
}
