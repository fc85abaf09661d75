package models

// Benchmarking guardrails. Comparisons against tiny cohorts or tiny amounts
// are suppressed rather than reported misleadingly.
const (
	// MinBenchmarkCohort is the minimum number of other users with
	// qualifying activity in the window before any comparison is computed.
	MinBenchmarkCohort = 3

	// MaxOverallDifferencePct caps the overall spending difference to damp
	// outlier distortion from small denominators.
	MaxOverallDifferencePct = 500.0

	// MinComparableAmount is the absolute amount (in the viewer's preferred
	// currency) either side of a category comparison must exceed before the
	// category is reported at all.
	MinComparableAmount = 10.0
)

// CategoryComparison compares the user's spend in one category against the
// cohort average.
type CategoryComparison struct {
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	UserAmount    float64 `json:"user_amount"`
	CohortAverage float64 `json:"cohort_average"`
	DifferencePct float64 `json:"difference_pct"`
}

// BenchmarkReport is the peer-spending comparison for one user over one
// window, in the user's preferred currency.
type BenchmarkReport struct {
	Currency             string               `json:"currency"`
	CohortSize           int                  `json:"cohort_size"`
	SufficientData       bool                 `json:"sufficient_data"`
	UserTotal            float64              `json:"user_total"`
	CohortAverageTotal   float64              `json:"cohort_average_total"`
	OverallDifferencePct float64              `json:"overall_difference_pct"` // capped at +/-MaxOverallDifferencePct
	CategoryComparisons  []CategoryComparison `json:"category_comparisons"`
	Insight              string               `json:"insight,omitempty"`
}

// CategoryTotal is one category's summed spend, used for both the user's own
// totals and cohort aggregates.
type CategoryTotal struct {
	CategoryID string
	UserID     string
	Currency   string
	Total      float64
}
