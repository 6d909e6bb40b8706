package usecases_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/ebtfinder/internal/core/domain"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
)

func names(locs []domain.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Name
	}
	return out
}

func TestCategory_GroceryExcludesFarmersMarket(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)

	rule, err := f.Effective(domain.CategoryGrocery, []string{"farmers market", "supermarket"}, nil)
	require.NoError(t, err)

	got := f.Apply(rule, []domain.Location{
		{ID: "1", Name: "Downtown Farmers Market", Type: "Farmers Market"},
		{ID: "2", Name: "Ralphs", Type: "Supermarket"},
	})
	assert.Equal(t, []string{"Ralphs"}, names(got))
}

func TestCategory_FarmersMarketRequiresKeywordAndExcludesRetailers(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)
	rule, err := f.Effective(domain.CategoryFarmersMarket, nil, nil)
	require.NoError(t, err)

	got := f.Apply(rule, []domain.Location{
		{Name: "Hollywood Farmers' Market", Type: "Farmers and Markets"},
		{Name: "CVS Pharmacy Market", Type: "Farmers Market"},
		{Name: "Corner Market", Type: "Convenience Store"},
		{Name: "Santa Monica Flea Market", Type: "Farmers Market"},
		{Name: "Marco's Farm Market", Type: "Specialty Store"},
	})
	assert.Equal(t, []string{"Hollywood Farmers' Market", "Marco's Farm Market"}, names(got))
}

func TestCategory_TrendingPassesEverything(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)
	rule, err := f.Effective(domain.CategoryTrending, nil, nil)
	require.NoError(t, err)

	locs := []domain.Location{
		{Name: "A", Type: "Supermarket"},
		{Name: "B", Type: "Farmers Market"},
		{Name: "C", Type: ""},
	}
	assert.Equal(t, names(locs), names(f.Apply(rule, locs)))
}

func TestCategory_AllowlistsOrWithinAndAcross(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)
	rule, err := f.Effective(domain.CategoryCustom, []string{"Supermarket", " grocery "}, []string{"ralphs", "VONS"})
	require.NoError(t, err)

	got := f.Apply(rule, []domain.Location{
		{Name: "Ralphs #12", Type: "Supermarket"},
		{Name: "Vons", Type: "Grocery Store"},
		{Name: "Ralphs Express", Type: "Convenience Store"},
		{Name: "Food 4 Less", Type: "Supermarket"},
	})
	assert.Equal(t, []string{"Ralphs #12", "Vons"}, names(got))
}

func TestCategory_QueryAllowlistReplacesCategoryTypes(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)
	rule, err := f.Effective(domain.CategoryRestaurant, []string{"bakery"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bakery"}, rule.StoreTypes)
}

func TestCategory_UnknownCategory(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)
	_, err = f.Effective("pets", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestCategory_ExclusionMatchesType(t *testing.T) {
	rule := usecases.CategoryRule{Exclude: []string{"flea market"}}
	assert.False(t, rule.Matches(&domain.Location{Name: "Swap Meet", Type: "Flea Market"}))
	assert.True(t, rule.Matches(&domain.Location{Name: "Swap Meet", Type: "Grocery"}))
}

func TestValidateRules(t *testing.T) {
	assert.NoError(t, usecases.ValidateRules(usecases.DefaultCategoryRules))

	err := usecases.ValidateRules(map[domain.Category]usecases.CategoryRule{
		domain.CategoryTrending: {},
		"grocery":               {Exclude: []string{" "}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `category "custom" is required`)
	assert.Contains(t, err.Error(), "blank pattern in exclude")

	_, err = usecases.NewCategoryFilter(map[domain.Category]usecases.CategoryRule{})
	assert.Error(t, err)
}

func TestCategories_Sorted(t *testing.T) {
	f, err := usecases.NewCategoryFilter(nil)
	require.NoError(t, err)
	cats := f.Categories()
	require.Len(t, cats, len(usecases.DefaultCategoryRules))
	for i := 1; i < len(cats); i++ {
		assert.Less(t, string(cats[i-1]), string(cats[i]))
	}
}
