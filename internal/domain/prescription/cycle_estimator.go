package prescription

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
)

// MaxRepreparations is the fixed ceiling of re-preparation rounds a chronic
// prescription may undergo after its first dispensation. The total cycle
// count is therefore MaxRepreparations + 1.
const MaxRepreparations = 4

// Urgency window boundaries, in days since the last dispensation
const (
	earlyRequestDays  = 23
	urgentRequestDays = 26
)

// RepreparationUrgency classifies how soon after the previous cycle a
// re-preparation is requested. It affects messaging tone and the persisted
// urgency flag, never eligibility.
type RepreparationUrgency string

const (
	RepreparationEarly  RepreparationUrgency = "early"
	RepreparationNormal RepreparationUrgency = "normal"
	RepreparationUrgent RepreparationUrgency = "urgent"
)

// CycleEstimate is the outcome of the cycle math for one prescription
type CycleEstimate struct {
	LifespanDays int
	CycleDays    int
	TotalCycles  int
}

// EstimateCycles computes how many compounding cycles fit into a
// prescription document's validity window. Pure: no clock, no side effects.
func EstimateCycles(createdAt, dueDate time.Time, durationValue decimal.Decimal, durationUnit DurationUnit) CycleEstimate {
	lifespanDays := int(dueDate.Sub(createdAt).Hours() / 24)
	if lifespanDays <= 0 {
		return CycleEstimate{LifespanDays: lifespanDays, TotalCycles: 1}
	}

	multiplier := durationUnit.DaysMultiplier()
	if multiplier == 0 || durationValue.LessThanOrEqual(decimal.Zero) {
		// Unusable treatment duration: fall back to the conservative ceiling
		return CycleEstimate{LifespanDays: lifespanDays, TotalCycles: MaxRepreparations + 1}
	}

	cycleDays := int(durationValue.Mul(decimal.NewFromInt(int64(multiplier))).IntPart())
	if cycleDays <= 0 {
		return CycleEstimate{LifespanDays: lifespanDays, TotalCycles: MaxRepreparations + 1}
	}

	estimated := lifespanDays / cycleDays
	if estimated < 1 {
		estimated = 1
	}
	if estimated > MaxRepreparations+1 {
		estimated = MaxRepreparations + 1
	}

	return CycleEstimate{
		LifespanDays: lifespanDays,
		CycleDays:    cycleDays,
		TotalCycles:  estimated,
	}
}

// EstimateCyclesFor runs the cycle math for a prescription using its first
// item's treatment duration
func EstimateCyclesFor(p *Prescription) CycleEstimate {
	if len(p.Items) == 0 {
		lifespanDays := int(p.DueDate.Sub(p.CreatedAt).Hours() / 24)
		if lifespanDays <= 0 {
			return CycleEstimate{LifespanDays: lifespanDays, TotalCycles: 1}
		}
		return CycleEstimate{LifespanDays: lifespanDays, TotalCycles: MaxRepreparations + 1}
	}
	first := p.Items[0]
	return EstimateCycles(p.CreatedAt, p.DueDate, first.DurationValue, first.DurationUnit)
}

// ClassifyUrgency grades a new cycle request by days elapsed since the most
// recent dispensation
func ClassifyUrgency(daysSinceLastDispense int) RepreparationUrgency {
	switch {
	case daysSinceLastDispense < earlyRequestDays:
		return RepreparationEarly
	case daysSinceLastDispense > urgentRequestDays:
		return RepreparationUrgent
	default:
		return RepreparationNormal
	}
}

// RepreparationAssessment is the full eligibility + urgency verdict for a
// re-preparation request
type RepreparationAssessment struct {
	Estimate             CycleEstimate
	DispensedCount       int
	DaysSinceLastCycle   int
	Urgency              RepreparationUrgency
}

// AssessRepreparation checks whether a prescription may legally enter a new
// compounding cycle at the given time. Refusals carry a specific reason.
func AssessRepreparation(p *Prescription, now time.Time) (RepreparationAssessment, error) {
	assessment := RepreparationAssessment{
		Estimate:       EstimateCyclesFor(p),
		DispensedCount: p.DispensedCount(),
	}

	if p.Status != StatusDispensed {
		return assessment, shared.NewDomainError("INVALID_STATE", "Only dispensed prescriptions can be re-prepared")
	}
	if p.IsPastDue(now) {
		return assessment, shared.NewDomainError("DOCUMENT_EXPIRED", "Re-preparation refused: document expired")
	}
	if assessment.DispensedCount >= assessment.Estimate.TotalCycles {
		return assessment, shared.NewDomainError("CYCLE_LIMIT_REACHED", "Re-preparation refused: cycle limit reached")
	}

	lastDispensed := p.LastDispensedAt()
	if lastDispensed != nil {
		assessment.DaysSinceLastCycle = int(now.Sub(*lastDispensed).Hours() / 24)
	}
	assessment.Urgency = ClassifyUrgency(assessment.DaysSinceLastCycle)

	return assessment, nil
}
