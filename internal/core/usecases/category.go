package usecases

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
)

// CategoryRule is the include/exclude pattern set for one category.
// All matching is case-insensitive substring matching.
//
// StoreTypes is matched against Location.Type and NamePatterns against
// Location.Name. Patterns within one list are ORed; non-empty lists are
// ANDed together. Keywords must match either name or type. Exclude is
// checked against name and type and always wins over inclusion.
type CategoryRule struct {
	StoreTypes   []string `json:"store_types,omitempty"`
	NamePatterns []string `json:"name_patterns,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Exclude      []string `json:"exclude,omitempty"`
}

var farmMarketPatterns = []string{"farmers market", "farmer's market", "farmers' market", "farm market", "farmers and markets"}

// Non-food retailers that loosely match "market" but are not farm markets.
var nonFoodRetailers = []string{
	"pharmacy", "cvs", "walgreens", "rite aid", "duane reade",
	"7-eleven", "7 eleven", "circle k", "ampm", "am/pm", "wawa", "speedway", "casey's",
	"dollar general", "family dollar", "dollar tree",
	"gas station", "shell station", "shell gas", "chevron", "exxon", "mobil", "valero", "sunoco",
}

// DefaultCategoryRules is the category table. Membership is product data
// and is expected to drift with the store taxonomy; ValidateRules guards
// its shape at startup.
var DefaultCategoryRules = map[domain.Category]CategoryRule{
	domain.CategoryTrending: {},
	domain.CategoryGrocery: {
		StoreTypes: []string{"supermarket", "super store", "grocery", "supercenter"},
		Exclude:    []string{"farmers market", "farm market", "flea market"},
	},
	domain.CategorySupermarket: {
		StoreTypes: []string{"supermarket", "super store", "supercenter"},
		Exclude:    []string{"farmers market", "farm market", "flea market"},
	},
	domain.CategoryConvenience: {
		StoreTypes: []string{"convenience", "combination grocery"},
	},
	domain.CategoryRestaurant: {
		StoreTypes: []string{"restaurant"},
	},
	domain.CategoryFarmersMarket: {
		Keywords: farmMarketPatterns,
		Exclude:  append([]string{"flea market"}, nonFoodRetailers...),
	},
	domain.CategorySpecialty: {
		StoreTypes: []string{"specialty", "bakery", "meat", "seafood", "fruits/veg"},
	},
	domain.CategoryCustom: {},
}

// CategoryFilter applies a category rule table to candidate locations.
type CategoryFilter struct {
	rules map[domain.Category]CategoryRule
}

// NewCategoryFilter builds a filter over rules; nil means DefaultCategoryRules.
func NewCategoryFilter(rules map[domain.Category]CategoryRule) (*CategoryFilter, error) {
	if rules == nil {
		rules = DefaultCategoryRules
	}
	if err := ValidateRules(rules); err != nil {
		return nil, err
	}
	return &CategoryFilter{rules: normalizeRules(rules)}, nil
}

// ValidateRules rejects tables with blank patterns or without the
// trending and custom categories.
func ValidateRules(rules map[domain.Category]CategoryRule) error {
	var errs []string
	for _, required := range []domain.Category{domain.CategoryTrending, domain.CategoryCustom} {
		if _, ok := rules[required]; !ok {
			errs = append(errs, fmt.Sprintf("category %q is required", required))
		}
	}
	for cat, rule := range rules {
		if strings.TrimSpace(string(cat)) == "" {
			errs = append(errs, "empty category name")
		}
		for field, list := range map[string][]string{
			"store_types": rule.StoreTypes, "name_patterns": rule.NamePatterns,
			"keywords": rule.Keywords, "exclude": rule.Exclude,
		} {
			for _, p := range list {
				if strings.TrimSpace(p) == "" {
					errs = append(errs, fmt.Sprintf("category %q: blank pattern in %s", cat, field))
				}
			}
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("category rules invalid:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Categories returns the configured category names in sorted order.
func (f *CategoryFilter) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(f.rules))
	for c := range f.rules {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rule returns the configured rule for a category.
func (f *CategoryFilter) Rule(cat domain.Category) (CategoryRule, bool) {
	r, ok := f.rules[cat]
	return r, ok
}

// Effective merges query allowlists into the category rule. A non-empty
// query list replaces the category's list for that family.
func (f *CategoryFilter) Effective(cat domain.Category, storeTypes, namePatterns []string) (CategoryRule, error) {
	rule, ok := f.rules[cat]
	if !ok {
		return CategoryRule{}, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidQuery, cat)
	}
	if st := normalizePatterns(storeTypes); len(st) > 0 {
		rule.StoreTypes = st
	}
	if np := normalizePatterns(namePatterns); len(np) > 0 {
		rule.NamePatterns = np
	}
	return rule, nil
}

// Apply keeps the locations matching rule, preserving input order.
func (f *CategoryFilter) Apply(rule CategoryRule, locations []domain.Location) []domain.Location {
	out := make([]domain.Location, 0, len(locations))
	for i := range locations {
		if rule.Matches(&locations[i]) {
			out = append(out, locations[i])
		}
	}
	return out
}

// Matches evaluates the rule against one location. Patterns are expected
// to be lower-case already.
func (r CategoryRule) Matches(loc *domain.Location) bool {
	name := strings.ToLower(loc.Name)
	typ := strings.ToLower(loc.Type)

	if containsAny(name, r.Exclude) || containsAny(typ, r.Exclude) {
		return false
	}
	if len(r.StoreTypes) > 0 && !containsAny(typ, r.StoreTypes) {
		return false
	}
	if len(r.NamePatterns) > 0 && !containsAny(name, r.NamePatterns) {
		return false
	}
	if len(r.Keywords) > 0 && !containsAny(name, r.Keywords) && !containsAny(typ, r.Keywords) {
		return false
	}
	return true
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func normalizePatterns(in []string) []string {
	var out []string
	for _, p := range in {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeRules(rules map[domain.Category]CategoryRule) map[domain.Category]CategoryRule {
	out := make(map[domain.Category]CategoryRule, len(rules))
	for cat, r := range rules {
		out[cat] = CategoryRule{
			StoreTypes:   normalizePatterns(r.StoreTypes),
			NamePatterns: normalizePatterns(r.NamePatterns),
			Keywords:     normalizePatterns(r.Keywords),
			Exclude:      normalizePatterns(r.Exclude),
		}
	}
	return out
}
