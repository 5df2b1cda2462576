// Package session selects the subset of ranked leads presented to a user in
// one discovery session.
//
// The batcher caps the selection by the session limit and the user's
// remaining plan quota, with a floor that guarantees a useful batch even for
// exhausted quotas. An optional diversity pass spreads the batch across
// communities before backfilling by rank.
package session

import (
	"fmt"
	"strings"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
)

// minLeadsPerSession is the floor on batch size: a session always shows at
// least this many leads when that many were found, even over quota.
const minLeadsPerSession = 10

// lowQuotaWarning is the remaining-quota level below which the session
// message starts surfacing the user's plan limit.
const lowQuotaWarning = 10

// Options controls a single batching call.
type Options struct {
	// MaxPerSession caps how many leads one session presents.
	MaxPerSession int

	// RemainingQuota is the user's remaining monthly lead allowance. May be
	// zero or negative; the floor still applies.
	RemainingQuota int

	// Diversify enables the community-diversity pass. When false the batch is
	// a plain rank-order prefix.
	Diversify bool
}

// DiversityInfo summarizes the spread of the selected batch. Both slices are
// deduplicated and ordered by first appearance.
type DiversityInfo struct {
	Communities []string `json:"communities"`
	PostTypes   []string `json:"postTypes"`
}

// Result is the outcome of batching ranked leads for one session.
type Result struct {
	// Selected preserves relative rank order among the chosen leads.
	Selected []domain.Lead `json:"selected"`

	// TotalFound is the size of the ranked input, before capping.
	TotalFound int `json:"totalFound"`

	// RemainingAfterSession is RemainingQuota minus the batch size. Negative
	// when the floor overrode an exhausted quota.
	RemainingAfterSession int `json:"remainingAfterSession"`

	DiversityInfo DiversityInfo `json:"diversityInfo"`
}

// Batch selects at most the effective cap of leads from rankedLeads, which
// must already be in rank order. Pure; the input slice is not modified.
func Batch(rankedLeads []domain.Lead, opts Options) Result {
	limit := effectiveCap(opts)

	if len(rankedLeads) == 0 {
		return Result{
			Selected:              []domain.Lead{},
			TotalFound:            0,
			RemainingAfterSession: opts.RemainingQuota,
			DiversityInfo:         DiversityInfo{Communities: []string{}, PostTypes: []string{}},
		}
	}

	var selected []domain.Lead
	if opts.Diversify {
		selected = diversify(rankedLeads, limit)
	} else {
		selected = prefix(rankedLeads, limit)
	}

	return Result{
		Selected:              selected,
		TotalFound:            len(rankedLeads),
		RemainingAfterSession: opts.RemainingQuota - len(selected),
		DiversityInfo:         diversityInfo(selected),
	}
}

// effectiveCap is at least the session floor and at most the smaller of the
// session limit and the remaining quota.
func effectiveCap(opts Options) int {
	limit := opts.MaxPerSession
	if opts.RemainingQuota < limit {
		limit = opts.RemainingQuota
	}

	if limit < minLeadsPerSession {
		limit = minLeadsPerSession
	}

	return limit
}

func prefix(leads []domain.Lead, limit int) []domain.Lead {
	if len(leads) > limit {
		leads = leads[:limit]
	}

	out := make([]domain.Lead, len(leads))
	copy(out, leads)

	return out
}

// diversify picks leads in two passes: first the best lead from each
// not-yet-seen community, then the best remaining leads regardless of
// community until the cap is reached. Relative rank order is preserved within
// each pass.
func diversify(leads []domain.Lead, limit int) []domain.Lead {
	selected := make([]domain.Lead, 0, limit)
	taken := make(map[int]bool, limit)
	seenCommunities := make(map[string]bool)

	for i, lead := range leads {
		if len(selected) >= limit {
			break
		}

		community := strings.ToLower(lead.Community)
		if seenCommunities[community] {
			continue
		}

		selected = append(selected, lead)
		taken[i] = true
		seenCommunities[community] = true
	}

	for i, lead := range leads {
		if len(selected) >= limit {
			break
		}

		if taken[i] {
			continue
		}

		selected = append(selected, lead)
		taken[i] = true
	}

	return selected
}

func diversityInfo(leads []domain.Lead) DiversityInfo {
	info := DiversityInfo{Communities: []string{}, PostTypes: []string{}}

	seenCommunities := make(map[string]bool)
	seenTypes := make(map[string]bool)

	for _, lead := range leads {
		if !seenCommunities[lead.Community] {
			seenCommunities[lead.Community] = true
			info.Communities = append(info.Communities, lead.Community)
		}

		postType := PostType(lead)
		if !seenTypes[postType] {
			seenTypes[postType] = true
			info.PostTypes = append(info.PostTypes, postType)
		}
	}

	return info
}

// Message renders a user-facing summary of the batch, noting quota pressure
// and the diversity of the selection.
func Message(result Result, plan string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Showing %d of %d leads found", len(result.Selected), result.TotalFound)

	if result.RemainingAfterSession < 0 {
		b.WriteString(" (quota exceeded - showing best leads anyway)")
	} else if result.RemainingAfterSession < lowQuotaWarning {
		fmt.Fprintf(&b, " (%d leads remaining in your %s plan)", result.RemainingAfterSession, plan)
	}

	if len(result.DiversityInfo.Communities) > 1 {
		fmt.Fprintf(&b, " from %d different communities", len(result.DiversityInfo.Communities))
	}

	if len(result.DiversityInfo.PostTypes) > 1 {
		fmt.Fprintf(&b, " (%s posts)", strings.Join(result.DiversityInfo.PostTypes, ", "))
	}

	return b.String()
}
