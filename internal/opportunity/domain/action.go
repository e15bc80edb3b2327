package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ActionType names one variant of the manual override union
type ActionType string

const (
	ActionUpgradeRelevance   ActionType = "upgrade_relevance"
	ActionDowngradeRelevance ActionType = "downgrade_relevance"
	ActionAssignGoal         ActionType = "assign_goal"
	ActionAssignUser         ActionType = "assign_user"
	ActionFlagDiscussion     ActionType = "flag_discussion"
	ActionUpdateStatus       ActionType = "update_status"
	ActionAddComment         ActionType = "add_comment"
	ActionUpdateTags         ActionType = "update_tags"
)

// Action is a human operation on an opportunity. Each variant is a concrete
// type so handlers and usecases switch on the type, never on raw strings.
type Action interface {
	Type() ActionType
	// Apply mutates opp in memory. Variants that only produce side records
	// (comments) leave it untouched and report Mutates() == false.
	Apply(opp *Opportunity) error
	Mutates() bool
}

type UpgradeRelevance struct{}

type DowngradeRelevance struct{}

type AssignGoal struct {
	GoalID *string `json:"goalId"`
}

type AssignUser struct {
	UserID *string `json:"userId"`
}

type FlagDiscussion struct {
	NeedsDiscussion *bool `json:"needsDiscussion"`
}

type UpdateStatus struct {
	Status Status `json:"status"`
}

type AddComment struct {
	Comment string `json:"comment"`
}

type UpdateTags struct {
	Tags []string `json:"tags"`
}

func (UpgradeRelevance) Type() ActionType   { return ActionUpgradeRelevance }
func (DowngradeRelevance) Type() ActionType { return ActionDowngradeRelevance }
func (AssignGoal) Type() ActionType         { return ActionAssignGoal }
func (AssignUser) Type() ActionType         { return ActionAssignUser }
func (FlagDiscussion) Type() ActionType     { return ActionFlagDiscussion }
func (UpdateStatus) Type() ActionType       { return ActionUpdateStatus }
func (AddComment) Type() ActionType         { return ActionAddComment }
func (UpdateTags) Type() ActionType         { return ActionUpdateTags }

func (UpgradeRelevance) Mutates() bool   { return true }
func (DowngradeRelevance) Mutates() bool { return true }
func (AssignGoal) Mutates() bool         { return true }
func (AssignUser) Mutates() bool         { return true }
func (FlagDiscussion) Mutates() bool     { return true }
func (UpdateStatus) Mutates() bool       { return true }
func (AddComment) Mutates() bool         { return false }
func (UpdateTags) Mutates() bool         { return true }

// Relevance overrides only move a classified score; the -1 sentinel belongs
// to the classification step.
func (UpgradeRelevance) Apply(opp *Opportunity) error {
	if !opp.IsClassified() {
		return ErrNotClassified
	}
	if opp.RelevanceScore < MaxRelevanceScore {
		opp.RelevanceScore++
	}
	return nil
}

func (DowngradeRelevance) Apply(opp *Opportunity) error {
	if !opp.IsClassified() {
		return ErrNotClassified
	}
	if opp.RelevanceScore > MinRelevanceScore {
		opp.RelevanceScore--
	}
	return nil
}

func (a AssignGoal) Apply(opp *Opportunity) error {
	opp.GoalID = normalizeRef(a.GoalID)
	return nil
}

func (a AssignUser) Apply(opp *Opportunity) error {
	opp.AssignedUserID = normalizeRef(a.UserID)
	return nil
}

func (a FlagDiscussion) Apply(opp *Opportunity) error {
	opp.NeedsDiscussion = a.NeedsDiscussion == nil || *a.NeedsDiscussion
	return nil
}

func (a UpdateStatus) Apply(opp *Opportunity) error {
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidAction, a.Status)
	}
	opp.Status = a.Status
	return nil
}

func (AddComment) Apply(*Opportunity) error { return nil }

func (a UpdateTags) Apply(opp *Opportunity) error {
	opp.Tags = NormalizeTags(a.Tags)
	return nil
}

// DecodeAction turns a {type, payload} pair into its concrete variant and
// validates the payload.
func DecodeAction(actionType ActionType, payload json.RawMessage) (Action, error) {
	var action Action
	switch actionType {
	case ActionUpgradeRelevance:
		return UpgradeRelevance{}, nil
	case ActionDowngradeRelevance:
		return DowngradeRelevance{}, nil
	case ActionAssignGoal:
		var a AssignGoal
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		action = a
	case ActionAssignUser:
		var a AssignUser
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		action = a
	case ActionFlagDiscussion:
		var a FlagDiscussion
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		action = a
	case ActionUpdateStatus:
		var a UpdateStatus
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		if !a.Status.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidAction, a.Status)
		}
		action = a
	case ActionAddComment:
		var a AddComment
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		a.Comment = strings.TrimSpace(a.Comment)
		if a.Comment == "" {
			return nil, fmt.Errorf("%w: comment is required", ErrInvalidAction)
		}
		action = a
	case ActionUpdateTags:
		var a UpdateTags
		if err := decodePayload(payload, &a); err != nil {
			return nil, err
		}
		action = a
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, actionType)
	}
	return action, nil
}

func decodePayload(payload json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return nil
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	return &v
}

// NormalizeTags lowercases, trims and dedups tags while keeping order.
func NormalizeTags(tags []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
