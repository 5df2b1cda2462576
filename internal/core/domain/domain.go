// Package domain defines the core entities shared across the lead engine:
// candidate posts produced by ingestion, projects (campaigns) that own
// discovery runs, and the persisted leads surfaced to users.
package domain

import "time"

// CandidatePost is a raw social-media post returned by the ingestion
// collaborator. It is immutable once fetched and carries no score.
type CandidatePost struct {
	SourceID    string
	Title       string
	Body        string
	Author      string
	Community   string
	URL         string
	NumComments int
	UpvoteRatio float64
	PostedAt    time.Time
}

// Lead status values. Status is only ever mutated by user action.
const (
	LeadStatusNew     = "new"
	LeadStatusReplied = "replied"
	LeadStatusSaved   = "saved"
	LeadStatusIgnored = "ignored"
)

// Lead is a scored, persisted candidate associated with a project.
// One row exists per unique source URL per project.
type Lead struct {
	ID               string
	ProjectID        string
	UserID           string
	SourceID         string
	Title            string
	Body             string
	Author           string
	Community        string
	URL              string
	NumComments      int
	UpvoteRatio      float64
	PostedAt         time.Time
	OpportunityScore int
	// SemanticScore is an optional secondary relevance signal supplied by an
	// external classifier. Nil means "not scored"; the ranker treats it as 0.
	SemanticScore *int
	Status        string
	DiscoveredAt  time.Time
}

// Discovery job states. NotStarted is represented as an empty string so a
// freshly created project needs no explicit state write.
const (
	DiscoveryStatusNotStarted = ""
	DiscoveryStatusRunning    = "running"
	DiscoveryStatusCompleted  = "completed"
	DiscoveryStatusFailed     = "failed"
)

// Discovery progress stages, in pipeline order.
const (
	StageInitializing = "initializing"
	StageSearching    = "searching"
	StageAnalyzing    = "analyzing"
	StageScoring      = "scoring"
	StageFinalizing   = "finalizing"
)

// DiscoveryProgress is the per-run progress record embedded in the project.
// It is overwritten in place by the running job; most recent write wins.
type DiscoveryProgress struct {
	Stage      string `json:"stage"`
	LeadsFound int    `json:"leadsFound"`
	Message    string `json:"message"`
}

// Subscription plans and their monthly lead quotas.
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// PlanLeadLimit returns the monthly lead quota for a plan. Unknown plans get
// the free quota.
func PlanLeadLimit(plan string) int {
	switch plan {
	case PlanStarter:
		return 200
	case PlanPro:
		return 1000
	default:
		return 25
	}
}

// Project is a user campaign: the keyword set driving discovery plus the
// discovery job state that serializes runs.
type Project struct {
	ID                 string
	UserID             string
	Name               string
	Description        string
	Keywords           []string
	TargetCommunities  []string
	Competitors        []string
	Plan               string
	DiscoveryStatus    string
	DiscoveryStartedAt *time.Time
	DiscoveryProgress  *DiscoveryProgress
	LastManualRunAt    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsRunning reports whether a discovery run is currently recorded for the
// project, regardless of staleness.
func (p *Project) IsRunning() bool {
	return p.DiscoveryStatus == DiscoveryStatusRunning
}
