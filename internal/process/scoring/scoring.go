// Package scoring computes the opportunity score for candidate posts.
//
// The scorer is an additive signal model over campaign keywords and fixed
// intent/pain-point/negative vocabularies: each matching rule adds or
// subtracts a fixed weight, the running total is clamped to [0,100], and a
// post is considered relevant at or above a threshold deliberately below the
// scale midpoint (borderline posts are kept for human review rather than
// silently dropped).
package scoring

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

const (
	maxScore = 100
	minScore = 0

	titlePreviewLen = 30
)

// Config holds the tunable weights, thresholds, and keyword lists. The
// additive-then-clamp structure, the single-application caps on the
// pain-point bonus and negative penalty, and title signals outweighing body
// signals are invariants regardless of tuning.
type Config struct {
	TitleKeywordWeight  int
	TitleIntentWeight   int
	PainPointBonus      int
	BodyKeywordWeight   int
	NegativePenalty     int
	EngagementBonus     int
	EngagementThreshold int
	RelevanceThreshold  int

	IntentKeywords    []string
	PainPointKeywords []string
	NegativeKeywords  []string
}

// DefaultConfig returns the production scoring configuration.
func DefaultConfig() Config {
	return Config{
		TitleKeywordWeight:  30,
		TitleIntentWeight:   20,
		PainPointBonus:      15,
		BodyKeywordWeight:   15,
		NegativePenalty:     30,
		EngagementBonus:     5,
		EngagementThreshold: 5,
		RelevanceThreshold:  30,
		IntentKeywords:      defaultIntentKeywords,
		PainPointKeywords:   defaultPainPointKeywords,
		NegativeKeywords:    defaultNegativeKeywords,
	}
}

// Result is the outcome of scoring a single candidate post.
type Result struct {
	// Score is the clamped opportunity score in [0,100].
	Score int

	// Reasons records each applied rule, its signed contribution, and the
	// term that triggered it, in application order. Audit only.
	Reasons []string

	// IsRelevant is true when Score reaches the relevance threshold.
	IsRelevant bool
}

// Scorer scores candidate posts against campaign keywords. It is stateless
// and safe for concurrent use.
type Scorer struct {
	cfg    Config
	logger *zerolog.Logger
}

// New creates a scorer with the given configuration.
func New(cfg Config, logger *zerolog.Logger) *Scorer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Scorer{cfg: cfg, logger: logger}
}

// Score computes the opportunity score for a candidate post. Deterministic
// and pure apart from a debug-level audit log of the rationale.
func (s *Scorer) Score(post domain.CandidatePost, campaignKeywords []string) Result {
	score := 0

	var reasons []string

	title := strings.ToLower(post.Title)
	body := strings.ToLower(post.Body)
	combined := title + " " + body

	// 1. Strongest signal: campaign keywords in the title.
	for _, keyword := range campaignKeywords {
		if keyword == "" {
			continue
		}

		if strings.Contains(title, strings.ToLower(keyword)) {
			score += s.cfg.TitleKeywordWeight
			reasons = append(reasons, fmt.Sprintf("+%d (title contains campaign keyword: %q)", s.cfg.TitleKeywordWeight, keyword))
		}
	}

	// 2. Strong signal: intent keywords in the title.
	for _, keyword := range s.cfg.IntentKeywords {
		if strings.Contains(title, keyword) {
			score += s.cfg.TitleIntentWeight
			reasons = append(reasons, fmt.Sprintf("+%d (title contains intent keyword: %q)", s.cfg.TitleIntentWeight, keyword))
		}
	}

	// 3. Medium signal: pain-point vocabulary anywhere. Applied once no matter
	// how many terms match.
	if term, ok := firstMatch(combined, s.cfg.PainPointKeywords); ok {
		score += s.cfg.PainPointBonus
		reasons = append(reasons, fmt.Sprintf("+%d (contains a pain point: %q)", s.cfg.PainPointBonus, term))
	}

	// 4. Medium signal: campaign keywords in the body.
	for _, keyword := range campaignKeywords {
		if keyword == "" {
			continue
		}

		if strings.Contains(body, strings.ToLower(keyword)) {
			score += s.cfg.BodyKeywordWeight
			reasons = append(reasons, fmt.Sprintf("+%d (body contains campaign keyword: %q)", s.cfg.BodyKeywordWeight, keyword))
		}
	}

	// 5. Penalty: off-target vocabulary in the title. Applied once.
	if term, ok := firstMatch(title, s.cfg.NegativeKeywords); ok {
		score -= s.cfg.NegativePenalty
		reasons = append(reasons, fmt.Sprintf("-%d (title contains negative keyword: %q)", s.cfg.NegativePenalty, term))
	}

	// 6. Bonus for an active discussion.
	if post.NumComments > s.cfg.EngagementThreshold {
		score += s.cfg.EngagementBonus
		reasons = append(reasons, fmt.Sprintf("+%d (good engagement: %d comments)", s.cfg.EngagementBonus, post.NumComments))
	}

	final := clamp(score)

	s.logger.Debug().
		Str("title", truncate(post.Title, titlePreviewLen)).
		Int("score", final).
		Strs("reasons", reasons).
		Msg("scored candidate post")

	return Result{
		Score:      final,
		Reasons:    reasons,
		IsRelevant: final >= s.cfg.RelevanceThreshold,
	}
}

// firstMatch returns the first keyword from the list contained in text.
func firstMatch(text string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return keyword, true
		}
	}

	return "", false
}

func clamp(score int) int {
	if score > maxScore {
		return maxScore
	}

	if score < minScore {
		return minScore
	}

	return score
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	return s[:maxLen] + "..."
}
