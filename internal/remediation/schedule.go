package remediation

// BaseIntervals defines the expanding review schedule in days, indexed by
// how many times the competency has already been reviewed.
var BaseIntervals = []int{1, 3, 7, 14, 30, 60}

// GraduatedIntervalDays is the review interval once every stage in
// BaseIntervals has been used.
const GraduatedIntervalDays = 90

// ReviewIntervalDays returns the due offset for the next review given the
// number of prior reviews.
func ReviewIntervalDays(priorReviews int) int {
	switch {
	case priorReviews < 0:
		return BaseIntervals[0]
	case priorReviews >= len(BaseIntervals):
		return GraduatedIntervalDays
	default:
		return BaseIntervals[priorReviews]
	}
}
