package directory

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/database"
	"gitlab.com/dirk.krummacker/phonebook-service/internal/model"
	"go.uber.org/zap"
)

// newSQLiteStore returns a store on a fresh in-memory database with all migrations applied.
func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := database.CreateDatabase(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(context.Background(), sqlDB, database.DriverSQLite, zap.NewNop()))
	store, err := NewStore(sqlDB, database.DriverSQLite, DefaultPageSize, zap.NewNop())
	require.NoError(t, err)
	return store
}

func mustCreate(t *testing.T, store *Store, fields model.Fields) model.Record {
	t.Helper()
	record, err := store.Create(context.Background(), fields)
	require.NoError(t, err)
	return record
}

func ids(records []model.Record) []int64 {
	result := make([]int64, 0, len(records))
	for _, r := range records {
		result = append(result, r.Id)
	}
	return result
}

// TestSQLiteListExample covers searching and sorting a small directory.
func TestSQLiteListExample(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	olivia := mustCreate(t, store, model.Fields{FirstName: "Olivia", Surname: "Smith", Phone: "0400000001", City: strPtr("Brisbane City"), Postcode: strPtr("4000")})
	noah := mustCreate(t, store, model.Fields{FirstName: "Noah", Surname: "Brown", Phone: "0400000002", City: strPtr("Toowong"), Postcode: strPtr("4066")})

	page, err := store.List(ctx, Query{Search: "Smith"})
	require.NoError(t, err)
	assert.Equal(t, []int64{olivia.Id}, ids(page.Records))

	for _, search := range []string{"smith, olivia", "Olivia Smith", "SMITH OLIVIA", "toowong", "4066", "0400000002"} {
		page, err = store.List(ctx, Query{Search: search})
		require.NoError(t, err)
		assert.Len(t, page.Records, 1, "search: "+search)
	}

	page, err = store.List(ctx, Query{Sort: SortName, Direction: DirectionAsc})
	require.NoError(t, err)
	assert.Equal(t, []int64{noah.Id, olivia.Id}, ids(page.Records))

	page, err = store.List(ctx, Query{Sort: SortPostcode, Direction: DirectionDesc})
	require.NoError(t, err)
	assert.Equal(t, []int64{noah.Id, olivia.Id}, ids(page.Records))

	for _, p := range []int{3, math.MaxInt/DefaultPageSize + 2, math.MaxInt} {
		page, err = store.List(ctx, Query{Page: p})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, p, page.Page)
		assert.Empty(t, page.Records)
	}
}

// TestSQLiteSearchFoldsNonASCII verifies that searching ignores the case of non-ASCII letters.
func TestSQLiteSearchFoldsNonASCII(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	emile := mustCreate(t, store, model.Fields{FirstName: "Émile", Surname: "Ångström", Phone: "0400000001", City: strPtr("Köln")})
	mustCreate(t, store, model.Fields{FirstName: "Emile", Surname: "Angstrom", Phone: "0400000002"})

	for _, search := range []string{"ångström", "ÅNGSTRÖM", "émile ångström", "ÅNGSTRÖM, ÉMILE", "KÖLN"} {
		page, err := store.List(ctx, Query{Search: search})
		require.NoError(t, err)
		assert.Equal(t, []int64{emile.Id}, ids(page.Records), "search: "+search)
	}
}

// TestSQLiteRecordLifecycle creates, reads, updates and deletes a record.
func TestSQLiteRecordLifecycle(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	var created []model.Record
	for i := 1; i <= 5; i++ {
		created = append(created, mustCreate(t, store, model.Fields{
			FirstName: "Person",
			Surname:   fmt.Sprintf("Number %d", i),
			Phone:     fmt.Sprintf("04000000%02d", i),
		}))
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(created))

	record, err := store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Number 3", record.Surname)
	assert.Nil(t, record.City)
	assert.True(t, created[2].CreatedAt.Equal(record.CreatedAt))

	// A record keeps its own phone number.
	updated, err := store.Update(ctx, 3, model.Fields{FirstName: "Isla", Surname: "Jones", Phone: "0400000003", City: strPtr("New Farm")})
	require.NoError(t, err)
	record, err = store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, updated.FirstName, record.FirstName)
	assert.Equal(t, updated.Surname, record.Surname)
	assert.Equal(t, "New Farm", *record.City)
	assert.True(t, updated.UpdatedAt.Equal(record.UpdatedAt))
	assert.True(t, created[2].CreatedAt.Equal(record.CreatedAt))

	// Another record's phone number is rejected and nothing changes.
	_, err = store.Update(ctx, 3, model.Fields{FirstName: "Isla", Surname: "Jones", Phone: "0400000004"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, phoneTakenMessage, verr.Fields["phone"])
	record, err = store.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "0400000003", record.Phone)

	_, err = store.Create(ctx, model.Fields{FirstName: "Jack", Surname: "King", Phone: "0400000005"})
	require.ErrorAs(t, err, &verr)

	// Phone numbers are compared exactly.
	mustCreate(t, store, model.Fields{FirstName: "Jack", Surname: "King", Phone: "0400 000 005"})

	_, err = store.Update(ctx, 99999, model.Fields{})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, 99999), ErrNotFound)

	require.NoError(t, store.Delete(ctx, 5))
	_, err = store.Get(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, 5), ErrNotFound)

	// The phone number of a deleted record can be used again, but its id cannot.
	again := mustCreate(t, store, model.Fields{FirstName: "Person", Surname: "Number 5", Phone: "0400000005"})
	assert.Greater(t, again.Id, int64(6))
}

// referenceMatch reports whether r should be found by search.
func referenceMatch(r model.Record, search string) bool {
	if search == "" {
		return true
	}
	candidates := []string{
		r.FirstName,
		r.Surname,
		r.FirstName + " " + r.Surname,
		r.Surname + " " + r.FirstName,
		r.Surname + ", " + r.FirstName,
		r.Phone,
	}
	for _, optional := range []*string{r.City, r.State, r.Postcode} {
		if optional != nil {
			candidates = append(candidates, *optional)
		}
	}
	needle := strings.ToLower(search)
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}

// listAll collects every page of a listing.
func listAll(t *testing.T, store *Store, q Query) []model.Record {
	t.Helper()
	var all []model.Record
	q.PageSize = 7
	for q.Page = 1; ; q.Page++ {
		page, err := store.List(context.Background(), q)
		require.NoError(t, err)
		all = append(all, page.Records...)
		if _, ok := page.NextPage(); !ok {
			assert.Equal(t, int(page.Total), len(all))
			return all
		}
	}
}

// TestSQLiteSearchAndSortProperties compares listings of random records with a straightforward
// in-memory evaluation of the same query.
func TestSQLiteSearchAndSortProperties(t *testing.T) {
	store := newSQLiteStore(t)
	random := rand.New(rand.NewSource(7))

	firstNames := []string{"Olivia", "Noah", "Isla", "Jack", "Mia", "Leo"}
	surnames := []string{"Smith", "Brown", "Jones", "O'Brien", "Nguyen", "100% Pure"}
	cities := []string{"Brisbane City", "Toowong", "New Farm", "West End"}
	var records []model.Record
	for i := 0; i < 60; i++ {
		fields := model.Fields{
			FirstName: firstNames[random.Intn(len(firstNames))],
			Surname:   surnames[random.Intn(len(surnames))],
			Phone:     fmt.Sprintf("04%08d", random.Intn(1000)*1000+i),
		}
		if random.Intn(4) > 0 {
			fields.City = strPtr(cities[random.Intn(len(cities))])
			fields.State = strPtr("QLD")
			fields.Postcode = strPtr(fmt.Sprint(4000 + random.Intn(10)))
		}
		records = append(records, mustCreate(t, store, fields))
	}

	searches := []string{"", "smith", "SMITH", "brown, noah", "Isla Jones", "o'b", "100%", "%", "_", "qld", "400", "farm", "nobody"}
	for _, search := range searches {
		expected := []int64{}
		for _, r := range records {
			if referenceMatch(r, search) {
				expected = append(expected, r.Id)
			}
		}

		found := listAll(t, store, Query{Search: search})
		actual := ids(found)
		sort.Slice(actual, func(i, j int) bool { return actual[i] < actual[j] })
		assert.Equal(t, expected, actual, "search: "+search)
	}

	for _, key := range []string{SortName, SortPhone, SortCity, SortState, SortPostcode} {
		asc := listAll(t, store, Query{Sort: key, Direction: DirectionAsc})
		desc := listAll(t, store, Query{Sort: key, Direction: DirectionDesc})
		require.Len(t, asc, len(records))
		require.Len(t, desc, len(records))

		// Listing twice yields the same order.
		assert.Equal(t, ids(asc), ids(listAll(t, store, Query{Sort: key, Direction: DirectionAsc})), "sort: "+key)

		// Records with equal sort values are ordered by id in both directions, so reversing the
		// direction reverses the order of the groups only.
		assert.True(t, sortedBy(asc, key, false), "sort asc: "+key)
		assert.True(t, sortedBy(desc, key, true), "sort desc: "+key)
	}
}

// sortKey returns the values a record is sorted by. NULL sorts before any value.
func sortKey(r model.Record, key string) []string {
	optional := func(s *string) string {
		if s == nil {
			return ""
		}
		return "\x01" + *s
	}
	switch key {
	case SortPhone:
		return []string{r.Phone}
	case SortCity:
		return []string{optional(r.City)}
	case SortState:
		return []string{optional(r.State)}
	case SortPostcode:
		return []string{optional(r.Postcode)}
	default:
		return []string{r.Surname, r.FirstName}
	}
}

func compareKeys(a []string, b []string) int {
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func sortedBy(records []model.Record, key string, descending bool) bool {
	for i := 1; i < len(records); i++ {
		c := compareKeys(sortKey(records[i-1], key), sortKey(records[i], key))
		if descending {
			c = -c
		}
		if c > 0 || (c == 0 && records[i-1].Id > records[i].Id) {
			return false
		}
	}
	return true
}
