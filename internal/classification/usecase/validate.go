package usecase

import (
	"fmt"
	"strings"

	"hyperagent/internal/classification/domain"
	oppdomain "hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/ai"
)

// validateClassification checks classifier output against the invariants of
// a classified row. Goal ids outside the celebrity's goals become nil.
func validateClassification(raw *ai.Classification, goals []*oppdomain.Goal) (oppdomain.ClassificationResult, error) {
	if raw == nil {
		return oppdomain.ClassificationResult{}, fmt.Errorf("%w: empty result", domain.ErrInvalidClassification)
	}
	if raw.RelevanceScore < oppdomain.MinRelevanceScore || raw.RelevanceScore > oppdomain.MaxRelevanceScore {
		return oppdomain.ClassificationResult{}, fmt.Errorf("%w: relevance score %d out of range", domain.ErrInvalidClassification, raw.RelevanceScore)
	}
	status := oppdomain.Status(strings.ToLower(strings.TrimSpace(raw.Status)))
	if !status.IsReviewOutcome() {
		return oppdomain.ClassificationResult{}, fmt.Errorf("%w: status %q", domain.ErrInvalidClassification, raw.Status)
	}

	var goalID *string
	if raw.GoalID != nil {
		want := strings.TrimSpace(*raw.GoalID)
		for _, g := range goals {
			if g.ID == want {
				id := g.ID
				goalID = &id
				break
			}
		}
	}

	return oppdomain.ClassificationResult{
		RelevanceScore:  raw.RelevanceScore,
		Tags:            raw.Tags,
		Status:          status,
		NeedsDiscussion: raw.NeedsDiscussion,
		GoalID:          goalID,
		Explanation:     strings.TrimSpace(raw.Explanation),
	}, nil
}
