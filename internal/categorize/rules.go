// Package categorize assigns spending categories to parsed transactions.
//
// Two tiers: a deterministic keyword rule table, and an optional
// model-assisted classifier used for outflows in token-budgeted batches.
// Whatever either tier produces is standardized onto the canonical label set
// before it lands on a transaction.
package categorize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidrdinardo/smart-spend-map/internal/domain"
)

// Reserved labels: Income is assigned to every inflow before any rule runs,
// Other is the rule-path fallback when nothing matches.
const (
	LabelIncome = "Income"
	LabelOther  = "Other"
)

// Rule selects one category for any description containing one of its
// keywords. Keywords are lowercase substrings.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// RuleTable is an ordered rule list. Order is part of the contract: the
// first category with a keyword hit wins, so more specific entries (UBER
// EATS) must sit above broader ones (UBER).
type RuleTable []Rule

// Match resolves a category for one transaction. Inflows are Income
// unconditionally; outflow descriptions are scanned against the table in
// order; no hit means Other.
func (t RuleTable) Match(description string, dir domain.Direction) string {
	if dir == domain.Inflow {
		return LabelIncome
	}
	lower := strings.ToLower(description)
	for _, r := range t {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Category
			}
		}
	}
	return LabelOther
}

// ruleFile is the YAML shape of an external rule table override.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a rule table from a YAML file. The table replaces the
// built-in defaults wholesale; it is loaded once at startup and shared
// read-only afterwards.
func LoadRules(path string) (RuleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("categorize.LoadRules: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("categorize.LoadRules: parsing %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("categorize.LoadRules: %s contains no rules", path)
	}
	table := make(RuleTable, 0, len(f.Rules))
	for i, r := range f.Rules {
		if r.Category == "" || len(r.Keywords) == 0 {
			return nil, fmt.Errorf("categorize.LoadRules: rule %d is missing a category or keywords", i)
		}
		for j, kw := range r.Keywords {
			r.Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
		table = append(table, r)
	}
	return table, nil
}

// DefaultRules is the built-in keyword table. Merchant names skew toward US
// statements since that is what the supported date shapes imply.
func DefaultRules() RuleTable {
	return RuleTable{
		{Category: "Dining Out", Keywords: []string{
			"uber eats", "doordash", "grubhub", "restaurant", "cafe", "coffee",
			"starbucks", "mcdonald", "chipotle", "pizza", "diner", "taco",
		}},
		{Category: "Groceries", Keywords: []string{
			"grocery", "supermarket", "kroger", "safeway", "aldi", "walmart",
			"costco", "trader joe", "whole foods", "wegmans", "market",
		}},
		{Category: "Transportation", Keywords: []string{
			"uber", "lyft", "shell", "chevron", "exxon", "gas station",
			"parking", "transit", "metro", "toll", "fuel", "amtrak",
		}},
		{Category: "Subscriptions", Keywords: []string{
			"netflix", "spotify", "hulu", "disney+", "subscription",
			"prime video", "apple.com", "youtube premium", "patreon",
		}},
		{Category: "Utilities", Keywords: []string{
			"electric", "water bill", "internet", "comcast", "xfinity",
			"verizon", "t-mobile", "utility", "power co", "sewer",
		}},
		{Category: "Housing", Keywords: []string{
			"rent", "mortgage", "landlord", "apartment", "hoa dues",
		}},
		{Category: "Healthcare", Keywords: []string{
			"pharmacy", "cvs", "walgreens", "doctor", "dental", "medical",
			"clinic", "hospital",
		}},
		{Category: "Insurance", Keywords: []string{
			"insurance", "geico", "allstate", "state farm",
		}},
		{Category: "Child Care", Keywords: []string{
			"daycare", "childcare", "babysit", "preschool",
		}},
		{Category: "Education", Keywords: []string{
			"tuition", "university", "college", "udemy", "coursera",
		}},
		{Category: "Entertainment", Keywords: []string{
			"cinema", "movie", "theater", "concert", "steam games",
			"playstation", "xbox", "ticketmaster",
		}},
		{Category: "Travel", Keywords: []string{
			"airline", "hotel", "airbnb", "delta air", "united air",
			"southwest", "expedia", "marriott", "hilton",
		}},
		{Category: "Personal Care", Keywords: []string{
			"salon", "barber", "spa ", "gym", "fitness", "haircut",
		}},
		{Category: "Gifts/Donations", Keywords: []string{
			"donation", "charity", "gofundme", "red cross",
		}},
		{Category: "Savings/Investments", Keywords: []string{
			"vanguard", "fidelity", "schwab", "robinhood", "brokerage",
			"transfer to savings", "coinbase",
		}},
		{Category: "Bank Fees", Keywords: []string{
			"overdraft", "service charge", "atm fee", "monthly fee",
			"interest charge", "nsf fee", "wire fee",
		}},
		{Category: "Taxes", Keywords: []string{
			"irs", "tax payment", "estimated tax", "franchise tax",
		}},
	}
}
