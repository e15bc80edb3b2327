package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hyperagent/internal/opportunity/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MemoryStore keeps opportunities, goals, celebrities and comments in
// process memory. It backs local runs without DATABASE_URL and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	opportunities map[string]domain.Opportunity
	goals         map[string]domain.Goal
	celebrities   map[string]domain.Celebrity
	comments      []domain.Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		opportunities: make(map[string]domain.Opportunity),
		goals:         make(map[string]domain.Goal),
		celebrities:   make(map[string]domain.Celebrity),
	}
}

func (s *MemoryStore) Opportunities() OpportunityRepository { return memoryOpportunities{s} }
func (s *MemoryStore) Goals() GoalRepository { return memoryGoals{s} }
func (s *MemoryStore) Celebrities() CelebrityRepository { return memoryCelebrities{s} }
func (s *MemoryStore) Comments() CommentRepository { return memoryComments{s} }

// copyOpportunity detaches slices and pointers so callers never alias stored rows.
func copyOpportunity(o domain.Opportunity) *domain.Opportunity {
	c := o
	c.Tags = append(pq.StringArray{}, o.Tags...)
	c.GoalID = copyString(o.GoalID)
	c.AssignedUserID = copyString(o.AssignedUserID)
	c.MeetingNoteProcessedBy = copyString(o.MeetingNoteProcessedBy)
	if o.ClassifiedAt != nil {
		t := *o.ClassifiedAt
		c.ClassifiedAt = &t
	}
	if o.MeetingNoteProcessedAt != nil {
		t := *o.MeetingNoteProcessedAt
		c.MeetingNoteProcessedAt = &t
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

type memoryOpportunities struct{ s *MemoryStore }

func (m memoryOpportunities) Create(_ context.Context, opp *domain.Opportunity) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if opp.ID == "" {
		opp.ID = uuid.New().String()
	}
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = time.Now()
	}
	opp.UpdatedAt = time.Now()
	m.s.opportunities[opp.ID] = *copyOpportunity(*opp)
	return nil
}

func (m memoryOpportunities) FindByID(_ context.Context, id string) (*domain.Opportunity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	opp, ok := m.s.opportunities[id]
	if !ok {
		return nil, nil
	}
	return copyOpportunity(opp), nil
}

func (m memoryOpportunities) FindByIDs(_ context.Context, ids []string) ([]*domain.Opportunity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.Opportunity
	for _, id := range ids {
		if opp, ok := m.s.opportunities[id]; ok {
			out = append(out, copyOpportunity(opp))
		}
	}
	sortByCreated(out, true)
	return out, nil
}

func (m memoryOpportunities) List(_ context.Context, filter domain.ListFilter) ([]*domain.Opportunity, int64, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var matched []*domain.Opportunity
	for _, opp := range m.s.opportunities {
		if opp.CelebrityID != filter.CelebrityID {
			continue
		}
		if filter.Status != nil && opp.Status != *filter.Status {
			continue
		}
		if filter.Source != nil && opp.Source != *filter.Source {
			continue
		}
		if filter.GoalID != nil && (opp.GoalID == nil || *opp.GoalID != *filter.GoalID) {
			continue
		}
		if filter.NeedsDiscussion != nil && opp.NeedsDiscussion != *filter.NeedsDiscussion {
			continue
		}
		matched = append(matched, copyOpportunity(opp))
	}
	sortByCreated(matched, false)

	total := int64(len(matched))
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if filter.Offset >= len(matched) {
		return []*domain.Opportunity{}, total, nil
	}
	end := filter.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func (m memoryOpportunities) ListUnclassified(_ context.Context, limit int) ([]*domain.Opportunity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.Opportunity
	for _, opp := range m.s.opportunities {
		if opp.RelevanceScore == domain.UnclassifiedScore {
			out = append(out, copyOpportunity(opp))
		}
	}
	sortByCreated(out, true)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memoryOpportunities) ListOpen(_ context.Context, celebrityID string) ([]*domain.Opportunity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.Opportunity
	for _, opp := range m.s.opportunities {
		if opp.CelebrityID == celebrityID && opp.Status.IsOpen() {
			out = append(out, copyOpportunity(opp))
		}
	}
	sortByCreated(out, false)
	return out, nil
}

func (m memoryOpportunities) FindLatestByConversation(_ context.Context, conversationID string, source domain.Source) (*domain.Opportunity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var latest *domain.Opportunity
	for _, opp := range m.s.opportunities {
		if opp.ConversationID != conversationID || opp.Source != source {
			continue
		}
		if latest == nil || opp.CreatedAt.After(latest.CreatedAt) {
			latest = copyOpportunity(opp)
		}
	}
	return latest, nil
}

func (m memoryOpportunities) ApplyClassification(_ context.Context, id string, result domain.ClassificationResult, classifiedAt time.Time) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	opp, ok := m.s.opportunities[id]
	if !ok || opp.RelevanceScore != domain.UnclassifiedScore {
		return false, nil
	}
	opp.RelevanceScore = result.RelevanceScore
	opp.Tags = domain.NormalizeTags(result.Tags)
	opp.Status = result.Status
	opp.NeedsDiscussion = result.NeedsDiscussion
	opp.GoalID = copyString(result.GoalID)
	opp.Explanation = result.Explanation
	at := classifiedAt
	opp.ClassifiedAt = &at
	opp.Revision++
	opp.UpdatedAt = classifiedAt
	m.s.opportunities[id] = opp
	return true, nil
}

func (m memoryOpportunities) Update(_ context.Context, opp *domain.Opportunity, expectedRevision int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.opportunities[opp.ID]
	if !ok || stored.Revision != expectedRevision {
		return domain.ErrRevisionConflict
	}
	opp.Revision = expectedRevision + 1
	opp.UpdatedAt = time.Now()
	opp.CreatedAt = stored.CreatedAt
	m.s.opportunities[opp.ID] = *copyOpportunity(*opp)
	return nil
}

func sortByCreated(opps []*domain.Opportunity, ascending bool) {
	sort.SliceStable(opps, func(i, j int) bool {
		if ascending {
			return opps[i].CreatedAt.Before(opps[j].CreatedAt)
		}
		return opps[i].CreatedAt.After(opps[j].CreatedAt)
	})
}

type memoryGoals struct{ s *MemoryStore }

func (m memoryGoals) Create(_ context.Context, goal *domain.Goal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}
	goal.CreatedAt = time.Now()
	goal.UpdatedAt = goal.CreatedAt
	m.s.goals[goal.ID] = *goal
	return nil
}

func (m memoryGoals) FindByID(_ context.Context, id string) (*domain.Goal, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	goal, ok := m.s.goals[id]
	if !ok {
		return nil, nil
	}
	return &goal, nil
}

func (m memoryGoals) ListByCelebrity(_ context.Context, celebrityID string) ([]*domain.Goal, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.Goal
	for _, goal := range m.s.goals {
		if goal.CelebrityID == celebrityID {
			g := goal
			out = append(out, &g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m memoryGoals) Update(_ context.Context, goal *domain.Goal) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	goal.UpdatedAt = time.Now()
	m.s.goals[goal.ID] = *goal
	return nil
}

func (m memoryGoals) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.goals, id)
	return nil
}

type memoryCelebrities struct{ s *MemoryStore }

func (m memoryCelebrities) Create(_ context.Context, celebrity *domain.Celebrity) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if celebrity.ID == "" {
		celebrity.ID = uuid.New().String()
	}
	celebrity.InboundEmail = strings.ToLower(celebrity.InboundEmail)
	celebrity.CreatedAt = time.Now()
	celebrity.UpdatedAt = celebrity.CreatedAt
	m.s.celebrities[celebrity.ID] = *celebrity
	return nil
}

func (m memoryCelebrities) FindByID(_ context.Context, id string) (*domain.Celebrity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	celebrity, ok := m.s.celebrities[id]
	if !ok {
		return nil, nil
	}
	return &celebrity, nil
}

func (m memoryCelebrities) FindByInboundEmail(_ context.Context, address string) (*domain.Celebrity, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	address = strings.ToLower(address)
	for _, celebrity := range m.s.celebrities {
		if celebrity.InboundEmail != "" && celebrity.InboundEmail == address {
			c := celebrity
			return &c, nil
		}
	}
	return nil, nil
}

type memoryComments struct{ s *MemoryStore }

func (m memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	comment.CreatedAt = time.Now()
	m.s.comments = append(m.s.comments, *comment)
	return nil
}

func (m memoryComments) ListByOpportunity(_ context.Context, opportunityID string) ([]*domain.Comment, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*domain.Comment
	for _, c := range m.s.comments {
		if c.OpportunityID == opportunityID {
			cc := c
			out = append(out, &cc)
		}
	}
	return out, nil
}
