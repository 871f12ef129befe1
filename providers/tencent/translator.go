package tencent

import "github.com/heibot/moderation/violation"

// TMS text labels.
var labelMappings = map[string]violation.Domain{
	"Porn":       violation.DomainSexual,
	"Sexy":       violation.DomainSexual,
	"Abuse":      violation.DomainInsult,
	"Ad":         violation.DomainAds,
	"Spam":       violation.DomainSpam,
	"Illegal":    violation.DomainIllegal,
	"Terror":     violation.DomainTerrorism,
	"Violence":   violation.DomainViolence,
	"Polity":     violation.DomainPolitics,
	"Politics":   violation.DomainPolitics,
	"Fraud":      violation.DomainFraud,
	"Harassment": violation.DomainHarassment,
	"Moan":       violation.DomainSexual,
	"Custom":     violation.DomainOther,
	"Normal":     "",
	"Pass":       "",
}

func newTranslator() violation.Translator {
	return violation.NewLabelTable(providerName, labelMappings)
}
