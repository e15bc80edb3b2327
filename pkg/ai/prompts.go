package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const classifyPrompt = `You triage inbound business opportunities for a public figure's team.

Goals, highest priority first (JSON):
%s

Opportunity:
- channel: %s
- sender: %s
- sender bio: %s
- subject: %s
- message:
"""
%s
"""

Score relevance from 1 (spam or irrelevant) to 5 (clearly valuable and aligned with a goal).
Recommend a status: "approved" for clear fits, "rejected" for spam or poor fits, otherwise "pending".
Set needsDiscussion when the team should talk about it before replying.
Pick the single best matching goal id from the list, or null when none fits.

Respond with JSON only:
{"relevanceScore": 1-5, "tags": ["short", "lowercase"], "status": "pending|approved|rejected", "needsDiscussion": true|false, "goalId": "id or null", "explanation": "one or two sentences"}`

const identifyPrompt = `You review a meeting transcript and decide which of the listed opportunities were actually discussed.

Rules:
- Include an opportunity only if the transcript contains real discussion of it. A passing mention of a name is not enough.
- For each included opportunity copy the exact, word-for-word part of the transcript that discusses it into relevantSection. Never paraphrase. Use an empty string if no exact quote exists.
- If nothing was discussed return an empty list. That is a normal answer.

Opportunities (JSON):
%s

Transcript:
"""
%s
"""

Respond with JSON only:
{"opportunities": [{"opportunityId": "id", "relevantSection": "exact quote"}]}`

const inferPrompt = `A team discussed one inbound opportunity in a meeting.

Current status: %s
Original message:
"""
%s
"""

Transcript excerpt:
"""
%s
"""

Decide the new status: "approved" if the team wants to move forward, "rejected" if they decided to pass, "pending" if undecided.
Write a short summary of what was discussed and an action recap listing next steps.

Respond with JSON only:
{"status": "pending|approved|rejected", "summary": "...", "actionRecap": "..."}`

const draftPrompt = `Write a reply on behalf of %s to an inbound %s message.

Sender: %s
Their message:
"""
%s
"""
%s
Tone: %s
%s%s
Reply with the message body only, no subject line and no placeholders.`

const researchPrompt = `Research the sender of this inbound business message and summarise who they are, what organisation they represent and whether the request looks legitimate. Cite sources inline.

Sender: %s
Message:
"""
%s
"""`

func toJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

func buildClassifyPrompt(in ClassificationInput) string {
	goals := in.Goals
	if goals == nil {
		goals = []Goal{}
	}
	return fmt.Sprintf(classifyPrompt, toJSON(goals), in.Source, orNone(in.SenderHandle), orNone(in.SenderBio), orNone(in.Subject), in.Message)
}

func buildIdentifyPrompt(transcript string, candidates []Candidate) string {
	return fmt.Sprintf(identifyPrompt, toJSON(candidates), transcript)
}

func buildInferPrompt(in InferenceInput) string {
	return fmt.Sprintf(inferPrompt, in.CurrentStatus, in.InitialMessage, in.Excerpt)
}

func buildDraftPrompt(in DraftInput) string {
	var thread string
	if len(in.Thread) > 0 {
		thread = "\nConversation so far:\n" + strings.Join(in.Thread, "\n---\n") + "\n"
	}
	var examples string
	if len(in.Examples) > 0 {
		examples = "Examples of their writing:\n" + strings.Join(in.Examples, "\n---\n") + "\n"
	}
	var extra string
	if in.Instructions != "" {
		extra += "Instructions: " + in.Instructions + "\n"
	}
	if in.Signature != "" {
		extra += "End with this signature: " + in.Signature + "\n"
	}
	tone := in.Tone
	if tone == "" {
		tone = "warm and professional"
	}
	return fmt.Sprintf(draftPrompt, orNone(in.CelebrityName), in.Channel, orNone(in.SenderHandle), in.InitialMessage, thread, tone, examples, extra)
}
