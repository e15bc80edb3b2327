package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func classified(score int) *Opportunity {
	return &Opportunity{ID: "opp-1", Status: StatusPending, RelevanceScore: score}
}

func TestRelevanceActions_StayInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		opp := classified(rapid.IntRange(MinRelevanceScore, MaxRelevanceScore).Draw(t, "start"))
		steps := rapid.SliceOf(rapid.Bool()).Draw(t, "upgrades")

		for _, up := range steps {
			var action Action = DowngradeRelevance{}
			if up {
				action = UpgradeRelevance{}
			}
			if err := action.Apply(opp); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if opp.RelevanceScore < MinRelevanceScore || opp.RelevanceScore > MaxRelevanceScore {
				t.Fatalf("score %d out of range", opp.RelevanceScore)
			}
		}
	})
}

func TestRelevanceActions_RejectUnclassified(t *testing.T) {
	opp := classified(UnclassifiedScore)

	assert.ErrorIs(t, UpgradeRelevance{}.Apply(opp), ErrNotClassified)
	assert.ErrorIs(t, DowngradeRelevance{}.Apply(opp), ErrNotClassified)
	assert.Equal(t, UnclassifiedScore, opp.RelevanceScore)
}

func TestDecodeAction(t *testing.T) {
	t.Run("assign goal", func(t *testing.T) {
		action, err := DecodeAction(ActionAssignGoal, json.RawMessage(`{"goalId":" g1 "}`))
		require.NoError(t, err)
		opp := classified(3)
		require.NoError(t, action.Apply(opp))
		require.NotNil(t, opp.GoalID)
		assert.Equal(t, "g1", *opp.GoalID)
	})

	t.Run("assign goal null clears", func(t *testing.T) {
		action, err := DecodeAction(ActionAssignGoal, json.RawMessage(`{"goalId":null}`))
		require.NoError(t, err)
		goal := "g1"
		opp := classified(3)
		opp.GoalID = &goal
		require.NoError(t, action.Apply(opp))
		assert.Nil(t, opp.GoalID)
	})

	t.Run("flag discussion defaults to true", func(t *testing.T) {
		action, err := DecodeAction(ActionFlagDiscussion, nil)
		require.NoError(t, err)
		opp := classified(3)
		require.NoError(t, action.Apply(opp))
		assert.True(t, opp.NeedsDiscussion)

		action, err = DecodeAction(ActionFlagDiscussion, json.RawMessage(`{"needsDiscussion":false}`))
		require.NoError(t, err)
		require.NoError(t, action.Apply(opp))
		assert.False(t, opp.NeedsDiscussion)
	})

	t.Run("update status validates", func(t *testing.T) {
		_, err := DecodeAction(ActionUpdateStatus, json.RawMessage(`{"status":"archived"}`))
		assert.ErrorIs(t, err, ErrInvalidAction)

		action, err := DecodeAction(ActionUpdateStatus, json.RawMessage(`{"status":"on_hold"}`))
		require.NoError(t, err)
		opp := classified(3)
		require.NoError(t, action.Apply(opp))
		assert.Equal(t, StatusOnHold, opp.Status)
	})

	t.Run("comment is required and does not mutate", func(t *testing.T) {
		_, err := DecodeAction(ActionAddComment, json.RawMessage(`{"comment":"   "}`))
		assert.ErrorIs(t, err, ErrInvalidAction)

		action, err := DecodeAction(ActionAddComment, json.RawMessage(`{"comment":"call them"}`))
		require.NoError(t, err)
		assert.False(t, action.Mutates())
		assert.Equal(t, "call them", action.(AddComment).Comment)
	})

	t.Run("tags are normalized", func(t *testing.T) {
		action, err := DecodeAction(ActionUpdateTags, json.RawMessage(`{"tags":["Podcast"," podcast ","","Brand"]}`))
		require.NoError(t, err)
		opp := classified(3)
		require.NoError(t, action.Apply(opp))
		assert.Equal(t, []string{"podcast", "brand"}, []string(opp.Tags))
	})

	t.Run("unknown fields and types are rejected", func(t *testing.T) {
		_, err := DecodeAction(ActionAssignUser, json.RawMessage(`{"user":"u1"}`))
		assert.True(t, errors.Is(err, ErrInvalidAction))

		_, err = DecodeAction("delete", nil)
		assert.True(t, errors.Is(err, ErrInvalidAction))
	})
}

func TestNormalizeTags_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tags := rapid.SliceOf(rapid.StringMatching(`[ A-Za-z]{0,8}`)).Draw(t, "tags")
		once := NormalizeTags(tags)
		twice := NormalizeTags(once)
		if len(once) != len(twice) {
			t.Fatalf("not idempotent: %v vs %v", once, twice)
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Fatalf("not idempotent: %v vs %v", once, twice)
			}
		}
	})
}

func TestApplyMeetingNote(t *testing.T) {
	opp := classified(4)
	opp.NeedsDiscussion = true

	note := MeetingNote{Transcript: "t", Summary: "s", ActionRecap: "a", ProcessedBy: "u1"}
	opp.ApplyMeetingNote(StatusApproved, note)
	first := *opp

	opp.ApplyMeetingNote(StatusApproved, note)

	assert.Equal(t, StatusApproved, opp.Status)
	assert.False(t, opp.NeedsDiscussion)
	assert.Equal(t, first.MeetingNoteSummary, opp.MeetingNoteSummary)
	assert.Equal(t, "u1", *opp.MeetingNoteProcessedBy)
}
