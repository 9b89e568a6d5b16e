// Package resolver matches loosely formatted job and employee references
// against known candidates.
package resolver

import (
	"strings"

	"mail-expense-intake/internal/model"
)

// Default call-site thresholds. Short tokens such as first names produce less
// reliable similarity scores than full street addresses.
const (
	JobThreshold      = 90
	EmployeeThreshold = 75
)

// Candidate is something a query may resolve to, known by one or more labels.
type Candidate struct {
	ID     string
	Labels []string
}

// ResolutionCandidate is a suggested match, not a binding decision.
type ResolutionCandidate struct {
	CandidateID    string `json:"candidate_id"`
	CandidateLabel string `json:"candidate_label"`
	Score          int    `json:"score"`
}

// Resolve finds the best candidate for query. An exact case-insensitive label
// match wins immediately with score 100; otherwise the highest fuzzy score
// that meets threshold wins, with ties going to the earliest candidate.
// Candidates are never modified.
func Resolve(query string, candidates []Candidate, threshold int) (*ResolutionCandidate, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, false
	}

	for _, c := range candidates {
		for _, label := range c.Labels {
			if strings.EqualFold(q, strings.TrimSpace(label)) {
				return &ResolutionCandidate{CandidateID: c.ID, CandidateLabel: label, Score: 100}, true
			}
		}
	}

	var best *ResolutionCandidate
	for _, c := range candidates {
		for _, label := range c.Labels {
			if strings.TrimSpace(label) == "" {
				continue
			}
			s := Score(q, label)
			if s < threshold {
				continue
			}
			if best == nil || s > best.Score {
				best = &ResolutionCandidate{CandidateID: c.ID, CandidateLabel: label, Score: s}
			}
		}
	}
	return best, best != nil
}

// JobCandidates builds candidates labelled by address and then name.
func JobCandidates(jobs []model.Job) []Candidate {
	out := make([]Candidate, 0, len(jobs))
	for _, j := range jobs {
		labels := []string{j.Address}
		if j.Name != "" && !strings.EqualFold(j.Name, j.Address) {
			labels = append(labels, j.Name)
		}
		out = append(out, Candidate{ID: j.ID, Labels: labels})
	}
	return out
}

// EmployeeCandidates builds candidates labelled by first name and full name.
func EmployeeCandidates(employees []model.Employee) []Candidate {
	out := make([]Candidate, 0, len(employees))
	for _, e := range employees {
		labels := []string{e.FirstName}
		if e.LastName != "" {
			labels = append(labels, e.FirstName+" "+e.LastName)
		}
		out = append(out, Candidate{ID: e.ID, Labels: labels})
	}
	return out
}
