package models

// Outcome categorizes a finished pipeline run for the caller.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"   // every unit succeeded
	OutcomePartial   Outcome = "partial"   // some units failed
	OutcomeFailure   Outcome = "failure"   // nothing succeeded, or a pre-flight error
	OutcomeCancelled Outcome = "cancelled" // stopped by the user
)

// Classify derives the outcome from a (succeeded, total) pair.
func Classify(succeeded, total int, cancelled bool, err error) Outcome {
	switch {
	case cancelled:
		return OutcomeCancelled
	case err != nil, succeeded <= 0:
		return OutcomeFailure
	case succeeded < total:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// Outcome of a fetch run.
func (r FetchResult) Outcome() Outcome {
	return Classify(r.SuccessCount, r.Total, r.Cancelled, r.Err)
}

// Outcome of an assemble run. A failed merge still counts its pair as
// processed, so Failed is what turns a complete walk into a partial one.
func (r AssembleResult) Outcome() Outcome {
	o := Classify(r.Processed, r.Total, r.Cancelled, r.Err)
	if o == OutcomeSuccess && r.Failed > 0 {
		return OutcomePartial
	}
	return o
}
