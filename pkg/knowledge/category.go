package knowledge

// Category classifies what kind of knowledge an entry records.
//
// The set is closed: every entry carries exactly one of the categories
// below. Unrecognized input is coerced to CategoryFact rather than
// rejected — agents feed free-form strings into the store and a
// miscategorized fact is more useful than a dropped one.
//
// Example:
//
//	cat := knowledge.ParseCategory("finding")  // CategoryFinding
//	cat = knowledge.ParseCategory("whatever")  // CategoryFact
type Category string

const (
	// CategoryDecision records a decision that was made.
	CategoryDecision Category = "DECISION"
	// CategoryFinding records a discovery or finding.
	CategoryFinding Category = "FINDING"
	// CategoryProblem records a problem that was identified.
	CategoryProblem Category = "PROBLEM"
	// CategorySolution records a solution that was implemented.
	CategorySolution Category = "SOLUTION"
	// CategoryTodo records a task or action item.
	CategoryTodo Category = "TODO"
	// CategoryReference records a reference or documentation pointer.
	CategoryReference Category = "REFERENCE"
	// CategoryConfig records a configuration value or setting.
	CategoryConfig Category = "CONFIG"
	// CategoryRelationship records a relationship between concepts.
	CategoryRelationship Category = "RELATIONSHIP"
	// CategoryFact records a general fact. This is the default category.
	CategoryFact Category = "FACT"
	// CategoryInsight records an insight or observation.
	CategoryInsight Category = "INSIGHT"
)

// Categories maps every valid category to a human-readable description.
var Categories = map[Category]string{
	CategoryDecision:     "Decision made",
	CategoryFinding:      "Discovery or finding",
	CategoryProblem:      "Problem identified",
	CategorySolution:     "Solution implemented",
	CategoryTodo:         "Task or action item",
	CategoryReference:    "Reference or documentation",
	CategoryConfig:       "Configuration or setting",
	CategoryRelationship: "Relationship between concepts",
	CategoryFact:         "General fact",
	CategoryInsight:      "Insight or observation",
}

// ParseCategory normalizes s to a Category, coercing unrecognized input
// to CategoryFact. Matching is case-insensitive.
func ParseCategory(s string) Category {
	c := Category(upper(s))
	if _, ok := Categories[c]; ok {
		return c
	}
	return CategoryFact
}

// Confidence level presets, from the Team Brain conventions. Any value in
// [0.0, 1.0] is legal; these are the named points agents tend to use.
const (
	// ConfidenceCertain means verified, 100% confident.
	ConfidenceCertain = 1.0
	// ConfidenceHigh means very likely correct.
	ConfidenceHigh = 0.8
	// ConfidenceMedium means probably correct.
	ConfidenceMedium = 0.6
	// ConfidenceLow means may be correct.
	ConfidenceLow = 0.4
	// ConfidenceUncertain means uncertain, needs verification.
	ConfidenceUncertain = 0.2
)
