package googlenl

import "github.com/heibot/moderation/violation"

// Natural Language moderation categories.
// https://cloud.google.com/natural-language/docs/moderating-text
// Topic categories (Health, Finance, Legal, ...) describe what a post is
// about rather than whether it is harmful, so they map to no domain.
var labelMappings = map[string]violation.Domain{
	"Toxic":                 violation.DomainToxicity,
	"Insult":                violation.DomainInsult,
	"Profanity":             violation.DomainProfanity,
	"Derogatory":            violation.DomainHateSpeech,
	"Sexual":                violation.DomainSexual,
	"Death, Harm & Tragedy": violation.DomainSelfHarm,
	"Violent":               violation.DomainViolence,
	"Firearms & Weapons":    violation.DomainWeapons,
	"Illicit Drugs":         violation.DomainDrugs,
	"Public Safety":         "",
	"Health":                "",
	"Religion & Belief":     "",
	"War & Conflict":        "",
	"Politics":              "",
	"Finance":               "",
	"Legal":                 "",
}

func newTranslator() violation.Translator {
	return violation.NewLabelTable(providerName, labelMappings)
}
