// Package contract handles futures symbol parsing, contract family
// reference data, and unit-multiplier resolution.
//
// A symbol like BGIK25 identifies both the commodity family (BGI, fat
// cattle) and the expiry (K = May, 25 = 2025). The unit multiplier
// converts a one-unit price move into money per contract: a BGI
// contract covers 330 arrobas, a CCM contract 450 sacks of corn.
package contract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// Contract families and their unit multipliers.
const (
	FamilyCattle = "BGI" // fat cattle, 330 arrobas per contract
	FamilyCorn   = "CCM" // corn, 450 sacks per contract
)

// DefaultMultiplier is the documented fallback for symbols whose family
// is not in the table. Callers are warned, never failed: the dashboard
// must stay renderable.
var DefaultMultiplier = decimal.NewFromInt(330)

var familyMultipliers = map[string]decimal.Decimal{
	FamilyCattle: decimal.NewFromInt(330),
	FamilyCorn:   decimal.NewFromInt(450),
}

// monthCodes maps futures month letters to month names.
var monthCodes = map[byte]string{
	'F': "January", 'G': "February", 'H': "March", 'J': "April",
	'K': "May", 'M': "June", 'N': "July", 'Q': "August",
	'U': "September", 'V': "October", 'X': "November", 'Z': "December",
}

// symbolRegex matches: {FAMILY}{MONTH}{YY}
// Example: BGIK25 (cattle, May 2025), CCMN25 (corn, July 2025).
var symbolRegex = regexp.MustCompile(`^([A-Z]{3})([FGHJKMNQUVXZ])(\d{2})$`)

var (
	ErrInvalidSymbol = errors.New("contract: invalid symbol format")
)

// Symbol is a parsed futures contract reference code.
type Symbol struct {
	Code      string `json:"code"`
	Family    string `json:"family"`
	MonthCode string `json:"month_code"`
	MonthName string `json:"month_name"`
	Year      int    `json:"year"` // full year, e.g. 2025
}

// Parse parses and validates a symbol string.
// Format: {family}{monthLetter}{YY}, e.g. BGIK25.
func Parse(code string) (*Symbol, error) {
	matches := symbolRegex.FindStringSubmatch(code)
	if matches == nil {
		return nil, fmt.Errorf("%w: %s (expected e.g. BGIK25)", ErrInvalidSymbol, code)
	}

	family := matches[1]
	month := matches[2][0]

	year := 2000 + int(matches[3][0]-'0')*10 + int(matches[3][1]-'0')

	return &Symbol{
		Code:      code,
		Family:    family,
		MonthCode: matches[2],
		MonthName: monthCodes[month],
		Year:      year,
	}, nil
}

// Resolver maps a symbol to its unit multiplier. Injected into the
// position engine so the multiplier table is never hardcoded there.
type Resolver func(symbol string) (mult decimal.Decimal, known bool)

// ResolveMultiplier is the default Resolver backed by the family table.
// Unknown or unparseable symbols fall back to DefaultMultiplier with
// known=false so the caller can surface a warning.
func ResolveMultiplier(symbol string) (decimal.Decimal, bool) {
	sym, err := Parse(symbol)
	if err != nil {
		return DefaultMultiplier, false
	}
	mult, ok := familyMultipliers[sym.Family]
	if !ok {
		return DefaultMultiplier, false
	}
	return mult, true
}

// Families returns the known family prefixes in sorted order.
func Families() []string {
	out := make([]string, 0, len(familyMultipliers))
	for f := range familyMultipliers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
