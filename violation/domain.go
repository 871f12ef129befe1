// Package violation maps backend-specific classifier labels onto one
// shared set of domains, so flags read the same whichever backend ran.
package violation

// Domain is a backend-neutral violation category. Its string form is the
// flag written into moderation results.
type Domain string

const (
	// Hostility
	DomainToxicity   Domain = "toxicity"
	DomainInsult     Domain = "insult"
	DomainProfanity  Domain = "profanity"
	DomainHateSpeech Domain = "hate_speech"
	DomainHarassment Domain = "harassment"
	DomainThreat     Domain = "threat"

	// Harm
	DomainSexual    Domain = "sexual"
	DomainViolence  Domain = "violence"
	DomainSelfHarm  Domain = "self_harm"
	DomainWeapons   Domain = "weapons"
	DomainDrugs     Domain = "drugs"
	DomainTerrorism Domain = "terrorism"
	DomainIllegal   Domain = "illegal"

	// Platform abuse
	DomainSpam  Domain = "spam"
	DomainAds   Domain = "ads"
	DomainFraud Domain = "fraud"

	// Off-topic but sensitive
	DomainPolitics Domain = "politics"

	// Fallback
	DomainOther Domain = "other"
)
