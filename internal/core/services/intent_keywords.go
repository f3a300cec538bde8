package services

import "github.com/topcenter/portal-realtime/internal/core/domain"

// intentKeywords lists the lower-case keywords scored for each intent.
// Keywords match anywhere in the text and overlapping matches all count,
// so "besoin d'aide" scores on top of "aide".
var intentKeywords = map[domain.Intent][]string{
	domain.IntentSalutation: {
		"bonjour", "bonsoir", "salut", "hello", "coucou", "bienvenue",
	},
	domain.IntentDemandeInformation: {
		"information", "renseignement", "savoir", "comment", "quel",
		"expliquer", "détail", "proposez", "horaires",
	},
	domain.IntentDemandeDevis: {
		"devis", "tarif", "prix", "coût", "combien", "budget",
		"estimation", "proposition commerciale", "cotation",
	},
	domain.IntentDemandeAssistance: {
		"aide", "besoin d'aide", "j'ai besoin", "assistance", "support",
		"accompagnement", "pouvez-vous",
	},
	domain.IntentProblemeTechnique: {
		"problème", "probleme", "bug", "erreur", "panne", "ne fonctionne pas",
		"marche pas", "bloqué", "plantage", "connexion impossible",
	},
	domain.IntentReclamation: {
		"réclamation", "plainte", "mécontent", "insatisfait", "inadmissible",
		"remboursement", "scandale", "déçu",
	},
	domain.IntentPriseRendezVous: {
		"rendez-vous", "rdv", "rappel", "disponibilité", "créneau", "agenda",
		"planifier", "appeler",
	},
	domain.IntentRemerciement: {
		"merci", "parfait", "super", "génial", "excellent", "reconnaissant",
	},
	domain.IntentAuRevoir: {
		"au revoir", "bonne journée", "bonne soirée", "à bientôt", "adieu", "bye",
	},
}

// followUps holds the canned suggestions offered after each intent.
var followUps = map[domain.Intent][]string{
	domain.IntentSalutation: {
		"Comment puis-je vous aider aujourd'hui ?",
		"Souhaitez-vous découvrir nos services de centre d'appels ?",
	},
	domain.IntentDemandeInformation: {
		"Découvrir nos offres d'externalisation",
		"Consulter nos secteurs d'activité",
		"Parler à un conseiller",
	},
	domain.IntentDemandeDevis: {
		"Demander un devis personnalisé",
		"Préciser le volume d'appels mensuel",
		"Planifier un appel avec un commercial",
	},
	domain.IntentDemandeAssistance: {
		"Décrire votre besoin en quelques mots",
		"Être mis en relation avec un agent",
	},
	domain.IntentProblemeTechnique: {
		"Décrire le problème rencontré",
		"Ouvrir un ticket auprès du support",
		"Être rappelé par un technicien",
	},
	domain.IntentReclamation: {
		"Transmettre votre réclamation à un responsable",
		"Indiquer votre numéro de dossier",
	},
	domain.IntentPriseRendezVous: {
		"Choisir un créneau",
		"Être rappelé aujourd'hui",
	},
	domain.IntentRemerciement: {
		"Avez-vous une autre question ?",
		"Donner votre avis sur cet échange",
	},
	domain.IntentAuRevoir: {
		"Merci de votre visite, à bientôt !",
	},
}
