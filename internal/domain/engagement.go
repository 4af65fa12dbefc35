package domain

import "time"

// EngagementType 참여 이벤트 종류
type EngagementType string

const (
	EngagementView     EngagementType = "view"
	EngagementCopy     EngagementType = "copy"
	EngagementUpvote   EngagementType = "upvote"
	EngagementDownvote EngagementType = "downvote"
)

// EngagementEvent is published whenever a rule counter changes
type EngagementEvent struct {
	Type       EngagementType `json:"type"`
	RuleID     string         `json:"ruleId"`
	Slug       string         `json:"slug"`
	ClientIP   string         `json:"clientIp,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}
