// Package jurisdiction holds the small per-jurisdiction table the
// cost-basis command consults for its tax-year boundary and long-term
// holding threshold (spec §6's `cost-basis --jurisdiction <j>`).
package jurisdiction

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed jurisdiction.yaml
var defaultTableYAML []byte

// Rules is one jurisdiction's tax-year and holding-period parameters.
type Rules struct {
	Code                 string `yaml:"code"`
	TaxYearStartMonth    int    `yaml:"taxYearStartMonth"`
	LongTermHoldingDays  int    `yaml:"longTermHoldingDays"`
}

// IsLongTerm reports whether a holding period of this many days
// qualifies as long-term under this jurisdiction. A jurisdiction with
// no long/short-term distinction (LongTermHoldingDays == 0) always
// returns false.
func (r Rules) IsLongTerm(holdingDays int) bool {
	return r.LongTermHoldingDays > 0 && holdingDays >= r.LongTermHoldingDays
}

// TaxYearBounds returns the [start, end) window for taxYear under this
// jurisdiction's fiscal calendar.
func (r Rules) TaxYearBounds(taxYear int) (start, end time.Time) {
	month := time.Month(r.TaxYearStartMonth)
	if month < time.January || month > time.December {
		month = time.January
	}
	start = time.Date(taxYear, month, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(1, 0, 0)
	return start, end
}

// Table is a loaded set of jurisdiction rules keyed by code.
type Table map[string]Rules

// LoadDefault parses the engine's embedded jurisdiction table.
func LoadDefault() (Table, error) {
	return Load(defaultTableYAML)
}

// Load parses a jurisdiction table in the same shape as
// jurisdiction.yaml.
func Load(data []byte) (Table, error) {
	var doc struct {
		Jurisdictions []Rules `yaml:"jurisdictions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jurisdiction: parsing table: %w", err)
	}
	table := make(Table, len(doc.Jurisdictions))
	for _, r := range doc.Jurisdictions {
		table[r.Code] = r
	}
	return table, nil
}

// Get returns the rules for code, erroring if the jurisdiction is not
// in the table.
func (t Table) Get(code string) (Rules, error) {
	r, ok := t[code]
	if !ok {
		return Rules{}, fmt.Errorf("jurisdiction: unknown jurisdiction %q", code)
	}
	return r, nil
}
