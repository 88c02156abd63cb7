package reconcile

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtbcli/internal/config"
	"rtbcli/internal/domain"
	"rtbcli/internal/feed"
	"rtbcli/internal/history"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

const feedBody = `{
	"personList": {
		"personsLists": [
			{"uri": "alice-a", "personName": "Alice A", "finalWorth": 2500.5, "rank": 1, "countryOfCitizenship": "France", "gender": "f", "industries": ["Technology"], "source": "Software"},
			{"uri": "bob-b", "personName": "Bob B", "finalWorth": 1800, "rank": 2, "countryOfCitizenship": "France", "gender": "m", "industries": ["Technology"]},
			{"uri": "carol-c", "personName": "Carol C", "finalWorth": 950, "countryOfCitizenship": "Germany", "gender": "f", "industries": ["Fashion & Retail"]},
			{"uri": "mallory-m", "personName": "Mallory M", "finalWorth": 3000, "rank": 1}
		]
	}
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSetup(t *testing.T, body string) (*store.Store, *registry.Registry, *Reconciler) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	st := store.New(t.TempDir())
	reg, err := registry.Load(st, testLogger())
	require.NoError(t, err)

	client := feed.NewClient(config.FeedConfig{
		ListURL:    srv.URL,
		DetailURL:  srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}, testLogger())

	return st, reg, New(st, reg, client, []string{"mallory-m"}, testLogger())
}

func day(s string) time.Time {
	ts, _ := time.Parse(domain.DateFormat, s)
	return ts
}

func TestRunFirstDay(t *testing.T) {
	st, reg, rec := testSetup(t, feedBody)

	result, err := rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01", result.Date)
	assert.Equal(t, 1, result.Skipped, "blacklisted profile must be skipped")

	// Ranked list: carol-c is below the floor, mallory-m blacklisted.
	require.Len(t, result.List.List, 2)
	assert.Equal(t, 2, result.List.Count)
	assert.Equal(t, 1, result.List.Woman)
	assert.Equal(t, 4300.5, result.List.Total)

	// Rank floor invariant.
	var carol domain.Snapshot
	ok, err := st.ReadJSON("profile/carol-c/latest", &carol)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, carol.Rank)
	assert.Equal(t, 950.0, carol.Networth)
	assert.Nil(t, carol.Change, "first day must have no change")

	// Registry persisted.
	assert.True(t, reg.Has("alice-a"))
	assert.True(t, reg.Has("carol-c"))
	assert.False(t, reg.Has("mallory-m"))

	// List files and markers.
	assert.True(t, st.Exists("list/rtb/2024-05-01"))
	assert.True(t, st.Exists("list/rtb/latest"))

	var days []string
	_, err = st.ReadJSON("availableDays", &days)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-01"}, days)

	// Neighbor cross-reference.
	var neighbors domain.RankNeighbors
	_, err = st.ReadJSON("profile/alice-a/rank", &neighbors)
	require.NoError(t, err)
	assert.Empty(t, neighbors.Prev)
	assert.Equal(t, "bob-b", neighbors.Next)

	// Stats accumulate below the floor too.
	buckets := result.Stats.Buckets("country")
	require.Contains(t, buckets, "FR")
	require.Contains(t, buckets, "DE")
	assert.Equal(t, 2, buckets["FR"].Count)
	assert.Equal(t, "alice-a", buckets["FR"].First)
}

func TestRunSortsOutOfOrderFeed(t *testing.T) {
	st, _, rec := testSetup(t, `{
		"personList": {"personsLists": [
			{"uri": "bob-b", "personName": "Bob B", "finalWorth": 1800, "rank": 2, "countryOfCitizenship": "France"},
			{"uri": "dora-d", "personName": "Dora D", "finalWorth": 950},
			{"uri": "alice-a", "personName": "Alice A", "finalWorth": 2500.5, "rank": 1, "countryOfCitizenship": "France"}
		]}
	}`)

	result, err := rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	require.Len(t, result.List.List, 2)
	assert.Equal(t, "alice-a", result.List.List[0].URI, "list order must not depend on feed order")
	assert.Equal(t, "bob-b", result.List.List[1].URI)

	var persisted domain.RankedList
	_, err = st.ReadJSON("list/rtb/2024-05-01", &persisted)
	require.NoError(t, err)
	require.Len(t, persisted.List, 2)
	assert.Equal(t, "alice-a", persisted.List[0].URI)

	var neighbors domain.RankNeighbors
	_, err = st.ReadJSON("profile/bob-b/rank", &neighbors)
	require.NoError(t, err)
	assert.Equal(t, "alice-a", neighbors.Prev)

	assert.Equal(t, "alice-a", result.Stats.Buckets("country")["FR"].First,
		"bucket pointer must go to the top-ranked contributor")
}

func TestRunDropsStaleAlias(t *testing.T) {
	st, _, rec := testSetup(t, `{
		"personList": {"personsLists": [
			{"uri": "jane-doe", "personName": "Jane Doe", "finalWorth": 1500, "rank": 3}
		]}
	}`)

	// Dangling alias: the chain points at nothing resolvable.
	require.NoError(t, st.WriteJSON("profile/_alias", map[string]string{
		"jane-doe": "nowhere",
	}))
	reg, err := registry.Load(st, testLogger())
	require.NoError(t, err)
	rec.registry = reg

	_, err = rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	assert.True(t, reg.Has("jane-doe"))
	alias := map[string]string{}
	_, err = st.ReadJSON("profile/_alias", &alias)
	require.NoError(t, err)
	assert.NotContains(t, alias, "jane-doe",
		"a canonical URI must not remain in the alias table")
}

func TestRunSameDayRejected(t *testing.T) {
	_, _, rec := testSetup(t, feedBody)

	_, err := rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	_, err = rec.Run(context.Background(), day("2024-05-01"))
	assert.ErrorIs(t, err, domain.ErrAlreadyUpdated)
}

func TestRunComputesChange(t *testing.T) {
	st, _, rec := testSetup(t, `{
		"personList": {"personsLists": [
			{"uri": "alice-a", "personName": "Alice A", "finalWorth": 550, "rank": 5}
		]}
	}`)

	// Previous day's snapshot: 500.
	require.NoError(t, st.WriteJSON("profile/alice-a/latest", domain.Snapshot{
		Date: "2024-04-30", Networth: 500,
	}))
	require.NoError(t, st.WriteJSON("profile/_index", map[string]domain.IndexEntry{
		"alice-a": {Name: "Alice A", Networth: 500, Updated: "2024-04-30"},
	}))

	reg, err := registry.Load(st, testLogger())
	require.NoError(t, err)
	rec.registry = reg

	result, err := rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	var snapshot domain.Snapshot
	_, err = st.ReadJSON("profile/alice-a/latest", &snapshot)
	require.NoError(t, err)
	require.NotNil(t, snapshot.Change)
	assert.Equal(t, 50.0, snapshot.Change.Value)
	assert.Equal(t, 10.0, snapshot.Change.Pct, "pct must use the previous day's value as denominator")

	require.Equal(t, 1, result.Movers.Len())
}

func TestRunResolvesAliases(t *testing.T) {
	st, _, rec := testSetup(t, `{
		"personList": {"personsLists": [
			{"uri": "jane-doe", "personName": "Jane Smith", "finalWorth": 1500, "rank": 3}
		]}
	}`)

	require.NoError(t, st.WriteJSON("profile/_index", map[string]domain.IndexEntry{
		"jane-smith": {Name: "Jane Smith"},
	}))
	require.NoError(t, st.WriteJSON("profile/_alias", map[string]string{
		"jane-doe": "jane-smith",
	}))
	reg, err := registry.Load(st, testLogger())
	require.NoError(t, err)
	rec.registry = reg

	_, err = rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	assert.True(t, st.Exists("profile/jane-smith/latest"), "data must land on the canonical profile")
	assert.False(t, st.Exists("profile/jane-doe/latest"))
}

func TestRunFetchFailureWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	st := store.New(dir)
	reg, err := registry.Load(st, testLogger())
	require.NoError(t, err)
	client := feed.NewClient(config.FeedConfig{
		ListURL: srv.URL, DetailURL: srv.URL, Timeout: time.Second, MaxRetries: 1,
	}, testLogger())

	_, err = New(st, reg, client, nil, testLogger()).Run(context.Background(), day("2024-05-01"))
	require.Error(t, err)

	assert.False(t, st.Exists("latest"), "failed fetch must abort before any write")
	assert.False(t, st.Exists("availableDays"))
}

func TestRunIdempotentHistory(t *testing.T) {
	st, _, rec := testSetup(t, feedBody)

	_, err := rec.Run(context.Background(), day("2024-05-01"))
	require.NoError(t, err)

	rows, err := history.New(st).Read("alice-a")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-05-01", rows[0].Date)
	require.NotNil(t, rows[0].Rank)
	assert.Equal(t, 1, *rows[0].Rank)
}
