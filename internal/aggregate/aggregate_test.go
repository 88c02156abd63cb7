package aggregate

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtbcli/internal/domain"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatp(v float64) *float64 { return &v }

func TestStatsAccumulate(t *testing.T) {
	stats := NewStats()
	stats.Add("country", "FR", "FR", "alice-a", 2500, floatp(2.0))
	stats.Add("country", "FR", "FR", "bob-b", 1800, nil)
	stats.Add("country", "DE", "DE", "carol-c", 950, floatp(-1.0))
	stats.Add("industry", "Technology", "Technology", "alice-a", 2500, nil)
	stats.Add("industry", "", "", "ghost", 100, nil)

	assert.Equal(t, []string{"country", "industry"}, stats.Categories())

	fr := stats.Buckets("country")["FR"]
	require.NotNil(t, fr)
	assert.Equal(t, 2, fr.Count)
	assert.Equal(t, 4300.0, fr.Total)
	assert.Equal(t, "alice-a", fr.First, "first contributor wins the pointer")
	assert.Equal(t, 2.0, fr.AvgPct(), "nil changes must not dilute the average")

	assert.Len(t, stats.Buckets("industry"), 1, "empty key must be dropped")
}

func TestMoverLists(t *testing.T) {
	movers := NewMovers()
	for i := 1; i <= 15; i++ {
		movers.Add(fmt.Sprintf("up-%02d", i), float64(i), float64(i)/10)
	}
	movers.Add("down-a", -5, -0.5)
	movers.Add("down-b", -20, -2.0)
	movers.Add("flat", 0, 0)

	w := winners(movers.value, moverListSize)
	require.Len(t, w, 10, "winners must be capped")
	assert.Equal(t, "up-15", w[0].URI)
	assert.Equal(t, 15.0, w[0].Value)
	assert.Equal(t, "up-06", w[9].URI)

	l := losers(movers.value, moverListSize)
	require.Len(t, l, 2)
	assert.Equal(t, "down-b", l[0].URI, "biggest loss first")
	assert.Equal(t, "down-a", l[1].URI)
}

func TestWriteStats(t *testing.T) {
	st := store.New(t.TempDir())
	agg := New(st, testLogger())

	stats := NewStats()
	stats.Add("country", "US", "US", "alice-a", 2500, floatp(1.5))
	stats.Add("country", "US", "US", "bob-b", 1800, floatp(0.5))
	stats.Add("country", "DE", "DE", "carol-c", 950, nil)

	require.NoError(t, agg.WriteStats("2024-05-01", stats))

	rows, err := st.ReadRows("stats/country/us")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-05-01", rows[0][0])
	assert.Equal(t, 2.0, rows[0][1])
	assert.Equal(t, 4300.0, rows[0][2])
	assert.Equal(t, 1.0, rows[0][3])
	assert.Equal(t, "alice-a", rows[0][4])

	index := map[string]string{}
	_, err = st.ReadJSON("stats/country/_index", &index)
	require.NoError(t, err)
	assert.Equal(t, "United States", index["us"])
	assert.Equal(t, "Germany", index["de"])

	var listed []listedBucket
	_, err = st.ReadJSON("stats/country/_list", &listed)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "us", listed[0].Key, "list is sorted by count descending")

	// Second day extends the series and keeps old index entries.
	require.NoError(t, agg.WriteStats("2024-05-02", stats))
	rows, err = st.ReadRows("stats/country/us")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteMovers(t *testing.T) {
	st := store.New(t.TempDir())
	agg := New(st, testLogger())

	movers := NewMovers()
	movers.Add("alice-a", 50, 10)
	movers.Add("bob-b", -30, -1.5)

	require.NoError(t, agg.WriteMovers("2024-05-01", movers))

	var doc struct {
		Date string         `json:"date"`
		List []domain.Mover `json:"list"`
	}
	for _, path := range []string{
		"movers/value/winner/2024-05-01",
		"movers/value/winner/latest",
		"movers/value/loser/latest",
		"movers/pct/winner/latest",
		"movers/pct/loser/2024-05-01",
	} {
		ok, err := st.ReadJSON(path, &doc)
		require.NoError(t, err)
		require.True(t, ok, path)
		assert.Equal(t, "2024-05-01", doc.Date)
		require.Len(t, doc.List, 1, path)
	}

	rows, err := st.ReadRows("movers/_list")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"2024-05-01", "alice-a", 50.0, "bob-b", -30.0}, rows[0])
}

func TestWriteMoversEmptyDay(t *testing.T) {
	st := store.New(t.TempDir())
	require.NoError(t, New(st, testLogger()).WriteMovers("2024-05-01", NewMovers()))

	rows, err := st.ReadRows("movers/_list")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0][1], "no winner leaves the digest fields empty")
	assert.Nil(t, rows[0][3])
}

func TestWriteFilters(t *testing.T) {
	st := store.New(t.TempDir())
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	profiles := map[string]domain.Info{
		"alice-a": {URI: "alice-a", Gender: "f", BirthDate: "1990-06-01", Citizenship: "FR",
			Industry: []string{"Technology"}, SelfMade: &domain.SelfMade{Is: true}},
		"bob-b":   {URI: "bob-b", Gender: "m", BirthDate: "1940-01-01", Citizenship: "FR"},
		"carol-c": {URI: "carol-c", Gender: "f", Deceased: true, Citizenship: "DE"},
	}
	index := map[string]domain.IndexEntry{}
	for uri, info := range profiles {
		require.NoError(t, st.WriteJSON("profile/"+uri+"/info", info))
		index[uri] = domain.IndexEntry{Name: info.URI, Networth: 1500}
	}
	index["carol-c"] = domain.IndexEntry{Name: "carol-c", Networth: 950}
	require.NoError(t, st.WriteJSON("profile/_index", index))

	reg, err := registry.Load(st, testLogger())
	require.NoError(t, err)

	require.NoError(t, New(st, testLogger()).WriteFilters(reg, now))

	read := func(path string) []string {
		var uris []string
		_, err := st.ReadJSON(path, &uris)
		require.NoError(t, err)
		return uris
	}

	assert.Equal(t, []string{"alice-a", "carol-c"}, read("filter/woman"))
	assert.Equal(t, []string{"alice-a"}, read("filter/young"))
	assert.Equal(t, []string{"bob-b"}, read("filter/old"))
	assert.Equal(t, []string{"alice-a"}, read("filter/selfMade"))
	assert.Equal(t, []string{"carol-c"}, read("filter/deceased"))
	assert.Equal(t, []string{"carol-c"}, read("filter/dropped"))
	assert.Equal(t, []string{"alice-a", "bob-b"}, read("filter/country/fr"))
	assert.Equal(t, []string{"alice-a"}, read("filter/industry/technology"))

	catIndex := map[string]string{}
	_, err = st.ReadJSON("filter/country/_index", &catIndex)
	require.NoError(t, err)
	assert.Equal(t, "France", catIndex["fr"])

	global := map[string]string{}
	_, err = st.ReadJSON("filter/_index", &global)
	require.NoError(t, err)
	assert.Contains(t, global, "woman")
	assert.Contains(t, global, "country")
}
