package entitlements

import "strings"

type Plan string

const (
	PlanFree   Plan = "free"
	PlanAgent  Plan = "agent"
	PlanAgency Plan = "agency"
)

// Limits describes what a plan allows. A Max* value of -1 means unlimited.
type Limits struct {
	MaxActiveListings   int
	MaxPhotosPerListing int
	MaxFeaturedListings int
	PriorityPlacement   bool
}

// LimitsFor returns the listing allowances for a given plan.
func LimitsFor(plan Plan) Limits {
	switch plan {
	case PlanAgency:
		return Limits{
			MaxActiveListings:   -1,
			MaxPhotosPerListing: 40,
			MaxFeaturedListings: 10,
			PriorityPlacement:   true,
		}
	case PlanAgent:
		return Limits{
			MaxActiveListings:   25,
			MaxPhotosPerListing: 20,
			MaxFeaturedListings: 3,
			PriorityPlacement:   true,
		}
	default:
		return Limits{
			MaxActiveListings:   2,
			MaxPhotosPerListing: 8,
			MaxFeaturedListings: 0,
		}
	}
}

// ParsePlan normalizes a stored plan string; unknown values fall back to free.
func ParsePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanAgent):
		return PlanAgent
	case string(PlanAgency):
		return PlanAgency
	default:
		return PlanFree
	}
}

// Rank orders plans so a better plan always wins a comparison.
func Rank(plan Plan) int {
	switch plan {
	case PlanAgency:
		return 2
	case PlanAgent:
		return 1
	default:
		return 0
	}
}

// CanPublish reports whether a user with the given plan and current number
// of active listings may publish one more.
func CanPublish(plan Plan, activeListings int) bool {
	limits := LimitsFor(plan)
	if limits.MaxActiveListings < 0 {
		return true
	}
	return activeListings < limits.MaxActiveListings
}

// CanFeature reports whether another listing may be marked as featured.
func CanFeature(plan Plan, featuredListings int) bool {
	limits := LimitsFor(plan)
	if limits.MaxFeaturedListings < 0 {
		return true
	}
	return featuredListings < limits.MaxFeaturedListings
}
