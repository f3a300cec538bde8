package domain

// Intent is a coarse conversational category guessed from free text.
type Intent string

const (
	IntentSalutation         Intent = "salutation"
	IntentDemandeInformation Intent = "demande_information"
	IntentDemandeDevis       Intent = "demande_devis"
	IntentDemandeAssistance  Intent = "demande_assistance"
	IntentProblemeTechnique  Intent = "probleme_technique"
	IntentReclamation        Intent = "reclamation"
	IntentPriseRendezVous    Intent = "prise_rendez_vous"
	IntentRemerciement       Intent = "remerciement"
	IntentAuRevoir           Intent = "au_revoir"
)

// Intents lists every category in its fixed ranking order.
var Intents = []Intent{
	IntentSalutation,
	IntentDemandeInformation,
	IntentDemandeDevis,
	IntentDemandeAssistance,
	IntentProblemeTechnique,
	IntentReclamation,
	IntentPriseRendezVous,
	IntentRemerciement,
	IntentAuRevoir,
}

// Fallback returned when no keyword matches.
const (
	DefaultIntent           = IntentDemandeInformation
	DefaultIntentConfidence = 0.3
)

// IntentScore is the weighted keyword score of one category.
type IntentScore struct {
	Intent     Intent  `json:"intent"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// IntentAnalysis is the result of scoring a text.
type IntentAnalysis struct {
	Intent     Intent        `json:"intent"`
	Confidence float64       `json:"confidence"`
	Ranking    []IntentScore `json:"ranking"`
}

// Progression classifies where a conversation is heading.
type Progression string

const (
	ProgressionBrowsing          Progression = "browsing"
	ProgressionInquiryToAction   Progression = "inquiry_to_action"
	ProgressionIssueToResolution Progression = "issue_to_resolution"
	ProgressionUndefined         Progression = "undefined"
)

// ProgressionThreshold is the confidence an intent must exceed to count.
const ProgressionThreshold = 0.5
