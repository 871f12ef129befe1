package aliyun

import "github.com/heibot/moderation/violation"

// Green text labels.
// https://help.aliyun.com/document_detail/2671445.html
var labelMappings = map[string]violation.Domain{
	"pornographic_adult":           violation.DomainSexual,
	"sexual_terms":                 violation.DomainSexual,
	"sexual_suggestive":            violation.DomainSexual,
	"sexual_content":               violation.DomainSexual,
	"political_figure":             violation.DomainPolitics,
	"political_entity":             violation.DomainPolitics,
	"political_n":                  violation.DomainPolitics,
	"political_content":            violation.DomainPolitics,
	"violent_extremist":            violation.DomainTerrorism,
	"violent_incidents":            violation.DomainViolence,
	"violent_weapons":              violation.DomainWeapons,
	"violence":                     violation.DomainViolence,
	"contraband_drug":              violation.DomainDrugs,
	"contraband_gambling":          violation.DomainIllegal,
	"contraband_act":               violation.DomainIllegal,
	"contraband":                   violation.DomainIllegal,
	"inappropriate_discrimination": violation.DomainHateSpeech,
	"inappropriate_profanity":      violation.DomainProfanity,
	"inappropriate_oral":           violation.DomainProfanity,
	"inappropriate_superstition":   "",
	"inappropriate_nonsense":       violation.DomainSpam,
	"inappropriate_ethics":         violation.DomainToxicity,
	"profanity":                    violation.DomainProfanity,
	"abuse":                        violation.DomainInsult,
	"pt_to_sites":                  violation.DomainAds,
	"pt_by_recruitment":            violation.DomainAds,
	"pt_to_contact":                violation.DomainAds,
	"ad":                           violation.DomainAds,
	"religion_b":                   "",
	"religion_t":                   "",
	"customized":                   violation.DomainOther,
	"fraud":                        violation.DomainFraud,
	"spam":                         violation.DomainSpam,
}

func newTranslator() violation.Translator {
	return violation.NewLabelTable(providerName, labelMappings)
}
