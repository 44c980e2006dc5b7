package prescription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCycles(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		lifespanDays  int
		durationValue decimal.Decimal
		durationUnit  DurationUnit
		wantCycles    int
		wantCycleDays int
	}{
		{"six month document, monthly cycles, capped", 181, decimal.NewFromInt(30), DurationUnitDays, 5, 30},
		{"three cycles fit exactly", 90, decimal.NewFromInt(30), DurationUnitDays, 3, 30},
		{"partial cycle rounds down", 100, decimal.NewFromInt(30), DurationUnitDays, 3, 30},
		{"weeks convert to days", 56, decimal.NewFromInt(2), DurationUnitWeeks, 4, 14},
		{"months convert to days", 120, decimal.NewFromInt(1), DurationUnitMonths, 4, 30},
		{"cycle longer than document still yields one", 20, decimal.NewFromInt(30), DurationUnitDays, 1, 30},
		{"zero duration falls back to ceiling", 120, decimal.Zero, DurationUnitDays, 5, 0},
		{"unknown unit falls back to ceiling", 120, decimal.NewFromInt(30), DurationUnit("fortnights"), 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimate := EstimateCycles(base, base.AddDate(0, 0, tt.lifespanDays), tt.durationValue, tt.durationUnit)
			assert.Equal(t, tt.wantCycles, estimate.TotalCycles)
			assert.Equal(t, tt.wantCycleDays, estimate.CycleDays)
			assert.Equal(t, tt.lifespanDays, estimate.LifespanDays)
		})
	}
}

func TestEstimateCyclesExpiredDocument(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	estimate := EstimateCycles(base, base, decimal.NewFromInt(30), DurationUnitDays)
	assert.Equal(t, 1, estimate.TotalCycles)
}

func TestClassifyUrgency(t *testing.T) {
	tests := []struct {
		days int
		want RepreparationUrgency
	}{
		{0, RepreparationEarly},
		{22, RepreparationEarly},
		{23, RepreparationNormal},
		{26, RepreparationNormal},
		{27, RepreparationUrgent},
		{40, RepreparationUrgent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyUrgency(tt.days), "day %d", tt.days)
	}
}

func newDispensedPrescription(t *testing.T, lifespanDays int, cycleDays int64) *Prescription {
	t.Helper()

	p := newTestPrescription(t, SupplySourceSkol)
	p.DueDate = p.CreatedAt.AddDate(0, 0, lifespanDays)
	p.Items[0].SetTreatment(decimal.NewFromInt(10), "mg", "1-0-0", decimal.NewFromInt(cycleDays), DurationUnitDays)
	advanceTo(t, p, StatusDispensed)
	return p
}

func TestAssessRepreparation(t *testing.T) {
	p := newDispensedPrescription(t, 181, 30)

	// Pretend the dispensation happened 25 days ago
	p.AuditTrail[len(p.AuditTrail)-1].Timestamp = time.Now().AddDate(0, 0, -25)

	assessment, err := AssessRepreparation(p, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 5, assessment.Estimate.TotalCycles)
	assert.Equal(t, 1, assessment.DispensedCount)
	assert.Equal(t, 25, assessment.DaysSinceLastCycle)
	assert.Equal(t, RepreparationNormal, assessment.Urgency)
}

func TestAssessRepreparationRefusals(t *testing.T) {
	// Not dispensed yet
	pending := newTestPrescription(t, SupplySourceSkol)
	_, err := AssessRepreparation(pending, time.Now())
	assertDomainErrorCode(t, err, "INVALID_STATE")

	// Document expired
	expired := newDispensedPrescription(t, 181, 30)
	_, err = AssessRepreparation(expired, expired.DueDate.AddDate(0, 0, 1))
	assertDomainErrorCode(t, err, "DOCUMENT_EXPIRED")

	// All cycles consumed: 60 day document and 30 day cycles allow two
	limited := newDispensedPrescription(t, 60, 30)
	require.NoError(t, limited.Reprepare(testActor, RepreparationNormal, ""))
	advanceTo(t, limited, StatusDispensed)

	_, err = AssessRepreparation(limited, time.Now())
	assertDomainErrorCode(t, err, "CYCLE_LIMIT_REACHED")
}
