package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	"github.com/topcenter/portal-realtime/internal/core/services"
)

func newAnalyzer(t *testing.T) *services.IntentAnalyzer {
	t.Helper()
	a, err := services.NewIntentAnalyzer()
	require.NoError(t, err)
	return a
}

func scoreOf(analysis domain.IntentAnalysis, intent domain.Intent) float64 {
	for _, s := range analysis.Ranking {
		if s.Intent == intent {
			return s.Score
		}
	}
	return -1
}

func TestIntentAnalyzer_AnalyzeUserIntent(t *testing.T) {
	a := newAnalyzer(t)

	t.Run("no keyword falls back to information request", func(t *testing.T) {
		for _, text := range []string{"", "   ", "xyz 123"} {
			analysis := a.AnalyzeUserIntent(text)

			assert.Equal(t, domain.IntentDemandeInformation, analysis.Intent, text)
			assert.Equal(t, 0.3, analysis.Confidence, text)
			require.Len(t, analysis.Ranking, len(domain.Intents))
			for _, s := range analysis.Ranking {
				assert.Zero(t, s.Score)
			}
		}
	})

	t.Run("mixed message scores each matching intent", func(t *testing.T) {
		analysis := a.AnalyzeUserIntent("bonjour, j'ai besoin d'aide pour un devis")

		assert.Greater(t, scoreOf(analysis, domain.IntentSalutation), 0.0)
		assert.Greater(t, scoreOf(analysis, domain.IntentDemandeAssistance), 0.0)
		assert.Greater(t, scoreOf(analysis, domain.IntentDemandeDevis), 0.0)
		assert.Zero(t, scoreOf(analysis, domain.IntentReclamation))

		// aide (1.0) + besoin d'aide (1.5) + j'ai besoin (1.5)
		assert.InDelta(t, 4.0, scoreOf(analysis, domain.IntentDemandeAssistance), 1e-9)
		assert.Equal(t, domain.IntentDemandeAssistance, analysis.Intent)
		assert.InDelta(t, 4.0/6.0, analysis.Confidence, 1e-9)
	})

	t.Run("matching is case insensitive and counts every occurrence", func(t *testing.T) {
		analysis := a.AnalyzeUserIntent("MERCI merci Merci")

		assert.Equal(t, domain.IntentRemerciement, analysis.Intent)
		assert.InDelta(t, 3.0, scoreOf(analysis, domain.IntentRemerciement), 1e-9)
		assert.InDelta(t, 1.0, analysis.Confidence, 1e-9)
	})

	t.Run("long keywords weigh more", func(t *testing.T) {
		analysis := a.AnalyzeUserIntent("remboursement")

		assert.InDelta(t, 1.5, scoreOf(analysis, domain.IntentReclamation), 1e-9)
	})

	t.Run("ranking is descending with ties in category order", func(t *testing.T) {
		analysis := a.AnalyzeUserIntent("salut, un bug")

		require.Len(t, analysis.Ranking, len(domain.Intents))
		assert.Equal(t, domain.IntentSalutation, analysis.Ranking[0].Intent)
		assert.Equal(t, domain.IntentProblemeTechnique, analysis.Ranking[1].Intent)
		for i := 1; i < len(analysis.Ranking); i++ {
			assert.GreaterOrEqual(t, analysis.Ranking[i-1].Score, analysis.Ranking[i].Score)
		}
		assert.Equal(t, domain.IntentSalutation, analysis.Intent)
		assert.InDelta(t, 0.5, analysis.Confidence, 1e-9)
	})

	t.Run("typographic apostrophes are normalized", func(t *testing.T) {
		analysis := a.AnalyzeUserIntent("J’ai besoin d’aide")

		assert.InDelta(t, 4.0, scoreOf(analysis, domain.IntentDemandeAssistance), 1e-9)
	})
}

func TestIntentAnalyzer_AnalyzeConversationProgression(t *testing.T) {
	a := newAnalyzer(t)

	user := func(content string) domain.ChatMessage {
		return domain.ChatMessage{Content: content, Sender: domain.SenderUser}
	}
	agent := func(content string) domain.ChatMessage {
		return domain.ChatMessage{Content: content, Sender: domain.SenderAgent}
	}

	tests := []struct {
		name    string
		history []domain.ChatMessage
		want    domain.Progression
	}{
		{
			name:    "empty history",
			history: nil,
			want:    domain.ProgressionUndefined,
		},
		{
			name:    "greeting only is browsing",
			history: []domain.ChatMessage{user("Bonjour")},
			want:    domain.ProgressionBrowsing,
		},
		{
			name: "information then quote is inquiry to action",
			history: []domain.ChatMessage{
				user("Je voudrais un renseignement"),
				agent("Bien sûr"),
				user("Combien coûte un devis ?"),
			},
			want: domain.ProgressionInquiryToAction,
		},
		{
			name: "problem then thanks is issue to resolution",
			history: []domain.ChatMessage{
				user("J'ai une panne"),
				agent("Nous regardons"),
				user("Merci"),
			},
			want: domain.ProgressionIssueToResolution,
		},
		{
			name: "agent messages are ignored",
			history: []domain.ChatMessage{
				agent("Bonjour, un devis ?"),
				agent("Merci"),
			},
			want: domain.ProgressionUndefined,
		},
		{
			name:    "goodbye alone is undefined",
			history: []domain.ChatMessage{user("Au revoir")},
			want:    domain.ProgressionUndefined,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.AnalyzeConversationProgression(tt.history))
		})
	}
}

func TestIntentAnalyzer_SuggestFollowUps(t *testing.T) {
	a := newAnalyzer(t)

	for _, intent := range domain.Intents {
		assert.NotEmpty(t, a.SuggestFollowUps(intent), intent)
	}

	unknown := a.SuggestFollowUps(domain.Intent("inconnu"))
	assert.Equal(t, a.SuggestFollowUps(domain.DefaultIntent), unknown)

	// Callers get their own copy.
	unknown[0] = "modifié"
	assert.NotEqual(t, "modifié", a.SuggestFollowUps(domain.DefaultIntent)[0])
}
