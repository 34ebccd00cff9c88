package feecalc

// TaxRate is the consumption tax applied to platform fees in a jurisdiction,
// in basis points. Reference data, read-only.
type TaxRate struct {
	BPS  int64
	Type string
}

var taxRates = map[string]TaxRate{
	"CA-AB": {BPS: 500, Type: "GST"},
	"CA-BC": {BPS: 500, Type: "GST"},
	"CA-MB": {BPS: 500, Type: "GST"},
	"CA-NB": {BPS: 1500, Type: "HST"},
	"CA-NL": {BPS: 1500, Type: "HST"},
	"CA-NS": {BPS: 1500, Type: "HST"},
	"CA-NT": {BPS: 500, Type: "GST"},
	"CA-NU": {BPS: 500, Type: "GST"},
	"CA-ON": {BPS: 1300, Type: "HST"},
	"CA-PE": {BPS: 1500, Type: "HST"},
	"CA-QC": {BPS: 500, Type: "GST"},
	"CA-SK": {BPS: 500, Type: "GST"},
	"CA-YT": {BPS: 500, Type: "GST"},
}

// LookupTaxRate returns the consumption tax for a jurisdiction code.
// Unknown jurisdictions carry no tax.
func LookupTaxRate(code string) (TaxRate, bool) {
	rate, ok := taxRates[code]
	return rate, ok
}
