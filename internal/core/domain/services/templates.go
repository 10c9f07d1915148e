package services

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// TaxLine is one fixed-percentage tax component computed on the subtotal.
type TaxLine struct {
	Label   string
	Percent decimal.Decimal
}

// Template is a merchant-specific receipt format.
type Template struct {
	// Key is the normalised merchant name the template is registered under.
	Key     string
	Aliases []string
	Header  []string
	Footer  []string
	Taxes   []TaxLine
	// Currency prefixes the grand total. Empty means the formatter default.
	Currency string
	// RoundPlaces is the number of decimal places the grand total is rounded to.
	RoundPlaces int32
	// Columns overrides the printer-derived width when non-zero.
	Columns int
}

// GenericTemplateKey is the key of the fallback template.
const GenericTemplateKey = "generic"

func gst(label string, pct string) TaxLine {
	return TaxLine{Label: label, Percent: decimal.RequireFromString(pct)}
}

// knownTemplates is the fixed set of merchant formats. Anything else prints
// with the generic template.
func knownTemplates() []Template {
	return []Template{
		{
			Key:     "nescafecorner",
			Aliases: []string{"nescafe"},
			Header:  []string{"NESCAFE CORNER", "Central Food Court"},
			Footer:  []string{"Thank you! Visit again"},
			Taxes:   []TaxLine{gst("CGST 2.5%", "2.5"), gst("SGST 2.5%", "2.5")},
		},
		{
			Key:     "southernstories",
			Aliases: []string{"southernstoriescafe"},
			Header:  []string{"SOUTHERN STORIES", "Hostel Block B"},
			Footer:  []string{"Served fresh, served hot"},
			Taxes:   []TaxLine{gst("GST 5%", "5")},
		},
		{
			Key:     "juiceworld",
			Aliases: []string{"juiceworldexpress"},
			Header:  []string{"JUICE WORLD"},
			Footer:  []string{"Stay fresh!"},
			Columns: 32,
		},
	}
}

func genericTemplate(merchantName string) Template {
	return Template{
		Key:    GenericTemplateKey,
		Header: []string{strings.ToUpper(strings.TrimSpace(merchantName))},
		Footer: []string{"Thank you"},
	}
}

// NormalizeMerchantName lowercases name and keeps only ASCII letters and
// digits, so "Nescafe Corner" and "nescafe-corner" select the same template.
func NormalizeMerchantName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TemplateFor selects the template registered under the merchant's name, or
// the generic template when none matches.
func TemplateFor(merchantName string) Template {
	key := NormalizeMerchantName(merchantName)
	for _, tmpl := range knownTemplates() {
		if tmpl.Key == key {
			return tmpl
		}
		for _, alias := range tmpl.Aliases {
			if alias == key {
				return tmpl
			}
		}
	}
	return genericTemplate(merchantName)
}
