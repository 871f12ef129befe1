package huawei

import "github.com/heibot/moderation/violation"

// Moderation v3 text labels.
var labelMappings = map[string]violation.Domain{
	"porn":        violation.DomainSexual,
	"abuse":       violation.DomainInsult,
	"ad":          violation.DomainAds,
	"flood":       violation.DomainSpam,
	"politics":    violation.DomainPolitics,
	"terrorism":   violation.DomainTerrorism,
	"contraband":  violation.DomainIllegal,
	"violence":    violation.DomainViolence,
	"black_list":  violation.DomainOther,
	"meaningless": violation.DomainSpam,
	"normal":      "",
}

func newTranslator() violation.Translator {
	return violation.NewLabelTable(providerName, labelMappings)
}
