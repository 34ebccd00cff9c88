package feecalc

// DefaultPlatformFeeBPS is the platform commission in basis points (8%).
const DefaultPlatformFeeBPS = 800

// Breakdown is the fee split for a single gross amount. All values are
// integer minor units; NetAmount + TotalFee always equals the gross amount.
type Breakdown struct {
	BaseFee   int64
	TaxAmount int64
	TotalFee  int64
	NetAmount int64
	TaxType   string
	Exempt    bool
}

type Calculator struct {
	rateBPS int64
}

func New(rateBPS int64) *Calculator {
	if rateBPS <= 0 {
		rateBPS = DefaultPlatformFeeBPS
	}
	return &Calculator{rateBPS: rateBPS}
}

// Calculate splits a gross amount into platform fee, consumption tax on the
// fee and the talent's net. Tax is charged on the fee only, skipped when the
// talent is tax-registered or the jurisdiction levies no consumption tax.
// Rounding is half-up to the smallest currency unit at each step.
func (c *Calculator) Calculate(amount int64, jurisdiction string, taxRegistered bool) Breakdown {
	baseFee := roundBPS(amount, c.rateBPS)

	var (
		taxAmount int64
		taxType   string
	)
	rate, ok := LookupTaxRate(jurisdiction)
	exempt := taxRegistered
	if !exempt && ok {
		taxAmount = roundBPS(baseFee, rate.BPS)
		taxType = rate.Type
	}

	totalFee := baseFee + taxAmount
	return Breakdown{
		BaseFee:   baseFee,
		TaxAmount: taxAmount,
		TotalFee:  totalFee,
		NetAmount: amount - totalFee,
		TaxType:   taxType,
		Exempt:    exempt,
	}
}

// roundBPS applies a basis-point rate with half-up rounding.
func roundBPS(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
