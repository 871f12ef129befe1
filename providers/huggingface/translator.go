package huggingface

import "github.com/heibot/moderation/violation"

// Jigsaw toxicity labels as emitted by toxic-bert style models.
var labelMappings = map[string]violation.Domain{
	"toxic":           violation.DomainToxicity,
	"toxicity":        violation.DomainToxicity,
	"severe_toxic":    violation.DomainToxicity,
	"severe_toxicity": violation.DomainToxicity,
	"obscene":         violation.DomainProfanity,
	"threat":          violation.DomainThreat,
	"insult":          violation.DomainInsult,
	"identity_hate":   violation.DomainHateSpeech,
	"identity_attack": violation.DomainHateSpeech,
	"sexual_explicit": violation.DomainSexual,
	"non-toxic":       "",
	"neutral":         "",
}

func newTranslator() violation.Translator {
	return violation.NewLabelTable(providerName, labelMappings)
}
