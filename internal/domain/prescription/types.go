package prescription

// PaymentStatus represents the payment state of a prescription
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusNA      PaymentStatus = "NA"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPending, PaymentStatusNA:
		return true
	}
	return false
}

// SupplySource indicates where the compounding ingredients come from
type SupplySource string

const (
	// SupplySourceSkol means ingredients are drawn from Skol's own inventory
	// and dispatched to the compounding pharmacy
	SupplySourceSkol SupplySource = "SKOL_SUPPLIED"
	// SupplySourceExternal means the external pharmacy compounds from its own stock
	SupplySourceExternal SupplySource = "EXTERNAL_STOCK"
)

// IsValid checks if the supply source is valid
func (s SupplySource) IsValid() bool {
	return s == SupplySourceSkol || s == SupplySourceExternal
}

// DispatchStatus tracks whether Skol-supplied ingredients for the current
// cycle have already been put on a dispatch note
type DispatchStatus string

const (
	DispatchStatusPending    DispatchStatus = "PENDING"
	DispatchStatusDispatched DispatchStatus = "DISPATCHED"
)

// DurationUnit is the unit of a treatment duration
type DurationUnit string

const (
	DurationUnitDays   DurationUnit = "days"
	DurationUnitWeeks  DurationUnit = "weeks"
	DurationUnitMonths DurationUnit = "months"
)

// DaysMultiplier returns the number of days one duration unit spans,
// 0 for unknown units
func (u DurationUnit) DaysMultiplier() int {
	switch u {
	case DurationUnitDays:
		return 1
	case DurationUnitWeeks:
		return 7
	case DurationUnitMonths:
		return 30
	}
	return 0
}
