package ordering

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/envelope/internal/model"
	mt "github.com/cleared-dev/envelope/internal/model/modeltest"
)

type fixture struct {
	snap                         *model.Snapshot
	payGroup, bills, fun         string
	payVisa, rent, power, movies string
	games                        string
}

// newFixture: [Credit Card Payments: Visa] [Bills: Rent, Power] [Fun: Movies, Games]
func newFixture() fixture {
	b := mt.New()
	visa := b.Account("Visa", model.AccountTypeCredit)
	f := fixture{}
	f.payVisa = b.PaymentCategory(visa)
	f.payGroup = b.PaymentGroup()
	f.bills = b.Group("Bills")
	f.fun = b.Group("Fun")
	f.rent = b.Category(f.bills, "Rent")
	f.power = b.Category(f.bills, "Power")
	f.movies = b.Category(f.fun, "Movies")
	f.games = b.Category(f.fun, "Games")
	f.snap = b.Snapshot()
	return f
}

func orderOf(items []Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out
}

func assertDense(t *testing.T, items []Item, parent string) {
	t.Helper()
	var orders []int
	for _, it := range items {
		if it.ParentGroupID == parent {
			orders = append(orders, it.SortOrder)
		}
	}
	for i := range orders {
		assert.Contains(t, orders, i)
	}
}

func TestMoveCategory_AcrossGroups(t *testing.T) {
	f := newFixture()
	b, err := MoveCategory(f.snap.Groups, f.snap.Categories, f.rent, f.fun, 1)
	require.NoError(t, err)
	assert.Equal(t, ScopeCategory, b.Scope)
	require.Len(t, b.Items, 4)

	got := orderOf(b.Items)
	assert.Equal(t, Item{ID: f.power, SortOrder: 0, ParentGroupID: f.bills}, got[f.power])
	assert.Equal(t, Item{ID: f.movies, SortOrder: 0, ParentGroupID: f.fun}, got[f.movies])
	assert.Equal(t, Item{ID: f.rent, SortOrder: 1, ParentGroupID: f.fun}, got[f.rent])
	assert.Equal(t, Item{ID: f.games, SortOrder: 2, ParentGroupID: f.fun}, got[f.games])
	assertDense(t, b.Items, f.bills)
	assertDense(t, b.Items, f.fun)

	cats := b.ApplyCategories(f.snap.Categories)
	moved, _ := (&model.Snapshot{Categories: cats}).Category(f.rent)
	assert.Equal(t, f.fun, moved.GroupID)
}

func TestMoveCategory_WithinGroupAndClamp(t *testing.T) {
	f := newFixture()
	b, err := MoveCategory(f.snap.Groups, f.snap.Categories, f.movies, f.fun, 99)
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{ID: f.games, SortOrder: 0, ParentGroupID: f.fun},
		{ID: f.movies, SortOrder: 1, ParentGroupID: f.fun},
	}, b.Items)
}

func TestMoveCategory_PaymentGroupRejected(t *testing.T) {
	f := newFixture()
	cases := map[string]struct{ cat, to string }{
		"into payment group":   {f.rent, f.payGroup},
		"out of payment group": {f.payVisa, f.bills},
		"within payment group": {f.payVisa, f.payGroup},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MoveCategory(f.snap.Groups, f.snap.Categories, tc.cat, tc.to, 0)
			var iv model.InvariantViolation
			require.True(t, errors.As(err, &iv), "got %v", err)
			assert.Equal(t, model.RulePaymentGroup, iv.Rule)
		})
	}
}

func TestMoveCategory_Validation(t *testing.T) {
	f := newFixture()
	_, err := MoveCategory(f.snap.Groups, f.snap.Categories, f.rent, f.fun, -1)
	assert.True(t, model.IsValidation(err))

	_, err = MoveCategory(f.snap.Groups, f.snap.Categories, "nope", f.fun, 0)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = MoveCategory(f.snap.Groups, f.snap.Categories, f.rent, "nope", 0)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMoveGroup(t *testing.T) {
	f := newFixture()
	// Current order: payments(0), bills(1), fun(2).
	b, err := MoveGroup(f.snap.Groups, f.fun, 0)
	require.NoError(t, err)
	assert.Equal(t, ScopeGroup, b.Scope)
	assert.Equal(t, []Item{
		{ID: f.payGroup, SortOrder: 0},
		{ID: f.fun, SortOrder: 1},
		{ID: f.bills, SortOrder: 2},
	}, b.Items)

	groups := b.ApplyGroups(f.snap.Groups)
	g, _ := (&model.Snapshot{Groups: groups}).Group(f.fun)
	assert.Equal(t, 1, g.SortOrder)
}

func TestMoveGroup_PaymentGroupRejected(t *testing.T) {
	f := newFixture()
	_, err := MoveGroup(f.snap.Groups, f.payGroup, 2)
	assert.True(t, model.IsInvariant(err))

	_, err = MoveGroup(f.snap.Groups, f.bills, -3)
	assert.True(t, model.IsValidation(err))
}

func TestMoveGroup_DensifiesGaps(t *testing.T) {
	groups := []model.CategoryGroup{
		{ID: "a", SortOrder: 5, Kind: model.GroupKindNormal},
		{ID: "b", SortOrder: 5, Kind: model.GroupKindNormal},
		{ID: "c", SortOrder: 40, Kind: model.GroupKindNormal},
	}
	b, err := MoveGroup(groups, "c", 1)
	require.NoError(t, err)
	assert.Equal(t, []Item{{ID: "a", SortOrder: 0}, {ID: "c", SortOrder: 1}, {ID: "b", SortOrder: 2}}, b.Items)
}

func TestNormalizeGroups(t *testing.T) {
	f := newFixture()
	b, err := NormalizeGroups(f.snap.Groups, Batch{Scope: ScopeGroup, Items: []Item{
		{ID: f.payGroup, SortOrder: 0},
		{ID: f.fun, SortOrder: 3},
		{ID: f.bills, SortOrder: 10},
	}})
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{ID: f.payGroup, SortOrder: 0},
		{ID: f.fun, SortOrder: 1},
		{ID: f.bills, SortOrder: 2},
	}, b.Items)
}

func TestNormalizeGroups_Rejections(t *testing.T) {
	f := newFixture()
	cases := map[string]struct {
		req       Batch
		invariant bool
	}{
		"wrong scope": {req: Batch{Scope: ScopeCategory}},
		"incomplete": {req: Batch{Scope: ScopeGroup, Items: []Item{
			{ID: f.payGroup, SortOrder: 0}, {ID: f.fun, SortOrder: 1},
		}}},
		"duplicate": {req: Batch{Scope: ScopeGroup, Items: []Item{
			{ID: f.payGroup, SortOrder: 0}, {ID: f.fun, SortOrder: 1}, {ID: f.fun, SortOrder: 2},
		}}},
		"negative": {req: Batch{Scope: ScopeGroup, Items: []Item{
			{ID: f.payGroup, SortOrder: 0}, {ID: f.fun, SortOrder: -1}, {ID: f.bills, SortOrder: 2},
		}}},
		"payment group moved": {invariant: true, req: Batch{Scope: ScopeGroup, Items: []Item{
			{ID: f.bills, SortOrder: 0}, {ID: f.payGroup, SortOrder: 1}, {ID: f.fun, SortOrder: 2},
		}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NormalizeGroups(f.snap.Groups, tc.req)
			require.Error(t, err)
			if tc.invariant {
				assert.True(t, model.IsInvariant(err))
			} else {
				assert.True(t, model.IsValidation(err))
			}
		})
	}
}

func TestNormalizeCategories(t *testing.T) {
	f := newFixture()
	b, err := NormalizeCategories(f.snap.Groups, f.snap.Categories, Batch{Scope: ScopeCategory, Items: []Item{
		{ID: f.power, SortOrder: 0},
		{ID: f.rent, SortOrder: 4, ParentGroupID: f.fun},
		{ID: f.movies, SortOrder: 2},
		{ID: f.games, SortOrder: 9},
	}})
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{ID: f.power, SortOrder: 0, ParentGroupID: f.bills},
		{ID: f.movies, SortOrder: 0, ParentGroupID: f.fun},
		{ID: f.rent, SortOrder: 1, ParentGroupID: f.fun},
		{ID: f.games, SortOrder: 2, ParentGroupID: f.fun},
	}, b.Items)
}

func TestNormalizeCategories_Rejections(t *testing.T) {
	f := newFixture()

	_, err := NormalizeCategories(f.snap.Groups, f.snap.Categories, Batch{Scope: ScopeCategory, Items: []Item{
		{ID: f.rent, SortOrder: 0, ParentGroupID: f.payGroup},
		{ID: f.power, SortOrder: 0},
		{ID: f.payVisa, SortOrder: 1},
	}})
	assert.True(t, model.IsInvariant(err))

	// Missing Games from a touched group.
	_, err = NormalizeCategories(f.snap.Groups, f.snap.Categories, Batch{Scope: ScopeCategory, Items: []Item{
		{ID: f.movies, SortOrder: 0},
	}})
	assert.True(t, model.IsValidation(err))

	_, err = NormalizeCategories(f.snap.Groups, f.snap.Categories, Batch{Scope: ScopeCategory, Items: []Item{
		{ID: "ghost", SortOrder: 0},
	}})
	assert.True(t, model.IsValidation(err))
}

func TestCheckCategories(t *testing.T) {
	f := newFixture()
	b, err := MoveCategory(f.snap.Groups, f.snap.Categories, f.rent, f.fun, 0)
	require.NoError(t, err)
	require.NoError(t, b.CheckCategories(f.snap.Categories))

	other, err := MoveCategory(f.snap.Groups, f.snap.Categories, f.games, f.bills, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, b.CheckCategories(other.ApplyCategories(f.snap.Categories)), model.ErrConcurrentChange)

	added := append(slices.Clone(f.snap.Categories), model.Category{ID: "new", GroupID: f.fun, SortOrder: 2})
	assert.ErrorIs(t, b.CheckCategories(added), model.ErrConcurrentChange)

	// A move in an unrelated group does not conflict.
	b, err = MoveCategory(f.snap.Groups, f.snap.Categories, f.power, f.bills, 0)
	require.NoError(t, err)
	games, err := MoveCategory(f.snap.Groups, f.snap.Categories, f.games, f.fun, 0)
	require.NoError(t, err)
	assert.NoError(t, b.CheckCategories(games.ApplyCategories(f.snap.Categories)))

	hand := Batch{Scope: ScopeCategory, Items: []Item{{ID: "ghost"}}}
	assert.ErrorIs(t, hand.CheckCategories(f.snap.Categories), model.ErrConcurrentChange)
}

func TestCheckGroups(t *testing.T) {
	f := newFixture()
	b, err := MoveGroup(f.snap.Groups, f.fun, 1)
	require.NoError(t, err)
	require.NoError(t, b.CheckGroups(f.snap.Groups))

	moved, err := MoveGroup(f.snap.Groups, f.bills, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, b.CheckGroups(moved.ApplyGroups(f.snap.Groups)), model.ErrConcurrentChange)

	added := append(slices.Clone(f.snap.Groups), model.CategoryGroup{ID: "new", SortOrder: 3})
	assert.ErrorIs(t, b.CheckGroups(added), model.ErrConcurrentChange)
}
