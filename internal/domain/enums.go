package domain

import (
	"fmt"
	"strings"
)

// Urgency is the urgency tier of a lead.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// IsUrgent reports whether the tier is high or emergency.
func (u Urgency) IsUrgent() bool { return u == UrgencyHigh || u == UrgencyEmergency }

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new"
	LeadDistributed LeadStatus = "distributed"
	LeadFulfilled   LeadStatus = "fulfilled"
	LeadExpired     LeadStatus = "expired"
	LeadCanceled    LeadStatus = "canceled"
)

// AssignmentStatus is the lifecycle state of a lead assignment.
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentViewed   AssignmentStatus = "viewed"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentDeclined AssignmentStatus = "declined"
	AssignmentExpired  AssignmentStatus = "expired"
	AssignmentWon      AssignmentStatus = "won"
	AssignmentLost     AssignmentStatus = "lost"
)

// Open reports whether the assignment still waits for an artisan response.
func (s AssignmentStatus) Open() bool { return s == AssignmentPending || s == AssignmentViewed }

// Strategy names a candidate ranking algorithm. The set is closed.
type Strategy string

const (
	StrategyRoundRobin Strategy = "round_robin"
	StrategyScored     Strategy = "scored"
	StrategyGeographic Strategy = "geographic"
)

// ParseStrategy validates s against the closed set of strategies. An empty
// string maps to StrategyScored; any other unknown value is an error.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyScored:
		return StrategyScored, nil
	case StrategyRoundRobin:
		return StrategyRoundRobin, nil
	case StrategyGeographic:
		return StrategyGeographic, nil
	}
	return "", fmt.Errorf("unknown matching strategy %q", s)
}
