package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hyperagent/internal/opportunity/domain"
	"hyperagent/pkg/fuzzy"
)

// searchWindow bounds how many recent opportunities keyword search scans
const searchWindow = 500

func (u *opportunityUsecase) Search(ctx context.Context, celebrityID, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	opps, _, err := u.ListOpportunities(ctx, domain.ListFilter{CelebrityID: celebrityID, Limit: searchWindow})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0)
	for _, opp := range opps {
		score := fuzzy.Score(query,
			fuzzy.Field{Text: opp.Subject, Weight: 100},
			fuzzy.Field{Text: opp.SenderName, Weight: 80},
			fuzzy.Field{Text: opp.SenderHandle, Weight: 80},
			fuzzy.Field{Text: strings.Join(opp.Tags, " "), Weight: 60},
			fuzzy.Field{Text: opp.SenderEmail, Weight: 50},
			fuzzy.Field{Text: opp.InitialMessage, Weight: 40},
		)
		if score > 0 {
			results = append(results, SearchResult{Opportunity: opp, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (u *opportunityUsecase) SemanticSearch(ctx context.Context, celebrityID, query string, limit int) ([]SearchResult, error) {
	if celebrityID == "" {
		return nil, domain.ErrForbidden
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if u.index == nil {
		return nil, domain.ErrSearchUnavailable
	}
	if limit <= 0 {
		limit = 20
	}

	hits, err := u.index.Search(ctx, celebrityID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}
	if len(hits) == 0 {
		return []SearchResult{}, nil
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.OpportunityID
	}
	opps, err := u.oppRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Opportunity, len(opps))
	for _, opp := range opps {
		byID[opp.ID] = opp
	}

	// Keep index order; drop rows that vanished or belong elsewhere.
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		opp, ok := byID[hit.OpportunityID]
		if !ok || opp.CelebrityID != celebrityID {
			continue
		}
		results = append(results, SearchResult{Opportunity: opp, Score: 1 - hit.Distance})
	}
	return results, nil
}
