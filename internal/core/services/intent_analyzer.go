package services

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

const (
	longKeywordRunes  = 7
	longKeywordWeight = 1.5
	baseKeywordWeight = 1.0
)

// IntentAnalyzer scores free text against fixed keyword lists. It holds no
// mutable state and is safe for concurrent use.
type IntentAnalyzer struct {
	matcher *goahocorasick.Machine
	owners  map[string][]domain.Intent
}

var _ ports.IntentAnalyzer = (*IntentAnalyzer)(nil)

// NewIntentAnalyzer builds a single automaton over every intent keyword.
func NewIntentAnalyzer() (*IntentAnalyzer, error) {
	owners := make(map[string][]domain.Intent)
	for _, intent := range domain.Intents {
		for _, keyword := range intentKeywords[intent] {
			owners[keyword] = append(owners[keyword], intent)
		}
	}

	keywords := lo.Keys(owners)
	slices.Sort(keywords)
	patterns := lo.Map(keywords, func(k string, _ int) []rune { return []rune(k) })

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build intent matcher: %w", err)
	}

	return &IntentAnalyzer{matcher: m, owners: owners}, nil
}

// keywordWeight favours long, specific keywords.
func keywordWeight(keyword string) float64 {
	if utf8.RuneCountInString(keyword) > longKeywordRunes {
		return longKeywordWeight
	}
	return baseKeywordWeight
}

func normalizeText(text string) string {
	text = strings.ToLower(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

// AnalyzeUserIntent returns the best intent for text, its confidence and the
// full ranking. Text matching no keyword yields the default intent at 0.3.
func (a *IntentAnalyzer) AnalyzeUserIntent(text string) domain.IntentAnalysis {
	scores := make(map[domain.Intent]float64, len(domain.Intents))

	normalized := normalizeText(text)
	if strings.TrimSpace(normalized) != "" {
		for _, term := range a.matcher.MultiPatternSearch([]rune(normalized), false) {
			keyword := string(term.Word)
			for _, intent := range a.owners[keyword] {
				scores[intent] += keywordWeight(keyword)
			}
		}
	}

	total := lo.Sum(lo.Values(scores))
	ranking := lo.Map(domain.Intents, func(intent domain.Intent, _ int) domain.IntentScore {
		score := domain.IntentScore{Intent: intent, Score: scores[intent]}
		if total > 0 {
			score.Confidence = score.Score / total
		}
		return score
	})
	slices.SortStableFunc(ranking, func(x, y domain.IntentScore) int {
		return cmp.Compare(y.Score, x.Score)
	})

	if total == 0 {
		return domain.IntentAnalysis{
			Intent:     domain.DefaultIntent,
			Confidence: domain.DefaultIntentConfidence,
			Ranking:    ranking,
		}
	}

	return domain.IntentAnalysis{
		Intent:     ranking[0].Intent,
		Confidence: ranking[0].Confidence,
		Ranking:    ranking,
	}
}

// AnalyzeConversationProgression classifies a conversation from the user's
// own messages only. An intent counts once seen above the fixed threshold.
func (a *IntentAnalyzer) AnalyzeConversationProgression(history []domain.ChatMessage) domain.Progression {
	seen := make(map[domain.Intent]bool)
	for _, msg := range history {
		if !msg.IsFromUser() {
			continue
		}
		for _, score := range a.AnalyzeUserIntent(msg.Content).Ranking {
			if score.Confidence > domain.ProgressionThreshold {
				seen[score.Intent] = true
			}
		}
	}

	switch {
	case seen[domain.IntentDemandeInformation] &&
		(seen[domain.IntentDemandeDevis] || seen[domain.IntentPriseRendezVous]):
		return domain.ProgressionInquiryToAction
	case (seen[domain.IntentProblemeTechnique] || seen[domain.IntentReclamation]) &&
		(seen[domain.IntentDemandeAssistance] || seen[domain.IntentRemerciement]):
		return domain.ProgressionIssueToResolution
	case seen[domain.IntentDemandeInformation] || seen[domain.IntentSalutation]:
		return domain.ProgressionBrowsing
	default:
		return domain.ProgressionUndefined
	}
}

// SuggestFollowUps returns the canned suggestions for intent.
func (a *IntentAnalyzer) SuggestFollowUps(intent domain.Intent) []string {
	suggestions, ok := followUps[intent]
	if !ok {
		suggestions = followUps[domain.DefaultIntent]
	}
	return slices.Clone(suggestions)
}
