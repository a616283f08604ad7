package schema

import "slices"

// RequirementType classifies an extracted requirement.
type RequirementType string

const (
	RequirementFunctional    RequirementType = "Functional"
	RequirementNonFunctional RequirementType = "NonFunctional"
	RequirementDomain        RequirementType = "Domain"
	RequirementInverse       RequirementType = "Inverse"
)

// RequirementTypes lists every type in report order.
var RequirementTypes = []RequirementType{
	RequirementFunctional,
	RequirementNonFunctional,
	RequirementDomain,
	RequirementInverse,
}

// Valid reports whether t is a known requirement type.
func (t RequirementType) Valid() bool {
	return slices.Contains(RequirementTypes, t)
}

// Priority ranks a requirement.
type Priority string

const (
	PriorityLow  Priority = "Low"
	PriorityMed  Priority = "Med"
	PriorityHigh Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMed, PriorityHigh:
		return true
	}
	return false
}

// Requirement is a single structured requirement extracted from a conversation.
type Requirement struct {
	ID              string          `json:"id" jsonschema:"description=Short unique identifier such as FR-1"`
	Type            RequirementType `json:"type" jsonschema:"enum=Functional,enum=NonFunctional,enum=Domain,enum=Inverse"`
	Description     string          `json:"description" jsonschema:"minLength=1"`
	Priority        Priority        `json:"priority" jsonschema:"enum=Low,enum=Med,enum=High"`
	ConfidenceScore float64         `json:"confidence_score" jsonschema:"minimum=0,maximum=1"`
}

// GroupRequirements buckets requirements by type. Every known type has an
// entry, possibly empty; input order is preserved within a bucket.
func GroupRequirements(reqs []Requirement) map[RequirementType][]Requirement {
	out := make(map[RequirementType][]Requirement, len(RequirementTypes))
	for _, t := range RequirementTypes {
		out[t] = []Requirement{}
	}
	for _, r := range reqs {
		out[r.Type] = append(out[r.Type], r)
	}
	return out
}

// RequirementMap converts a requirement into the plain map form used by
// expression engines.
func RequirementMap(r Requirement) map[string]any {
	return map[string]any{
		"id":               r.ID,
		"type":             string(r.Type),
		"description":      r.Description,
		"priority":         string(r.Priority),
		"confidence_score": r.ConfidenceScore,
	}
}
