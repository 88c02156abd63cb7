// Package aggregate turns one day's reconciled data into the denormalized
// views the frontend reads: per-country and per-industry stat buckets with
// their time series, the daily winners/losers lists, and the global filter
// indexes derived from the full registry.
package aggregate

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gosimple/slug"

	"rtbcli/internal/country"
	"rtbcli/internal/domain"
	"rtbcli/internal/store"
)

// moverListSize caps the winners/losers lists.
const moverListSize = 10

// Aggregator writes the derived views through the flat-file store.
type Aggregator struct {
	store *store.Store
	log   *slog.Logger
}

// New creates an aggregator.
func New(st *store.Store, log *slog.Logger) *Aggregator {
	return &Aggregator{store: st, log: log}
}

// listedBucket is one row of a category's _list snapshot.
type listedBucket struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// WriteStats appends one time-series row per accumulated bucket and rewrites
// each category's _index (slug to display label) and _list (buckets sorted
// by count descending).
func (a *Aggregator) WriteStats(date string, stats *Stats) error {
	for _, category := range stats.Categories() {
		buckets := stats.Buckets(category)

		index := map[string]string{}
		if _, err := a.store.ReadJSON("stats/"+category+"/_index", &index); err != nil {
			return err
		}

		listed := make([]listedBucket, 0, len(buckets))
		for key, b := range buckets {
			k := slug.Make(key)
			label := b.Label
			if category == "country" {
				label = country.Name(key)
			}
			index[k] = label

			row := []any{date, b.Count, domain.Round3(b.Total), domain.Round3(b.AvgPct()), b.First}
			if err := a.store.AppendRow("stats/"+category+"/"+k, row...); err != nil {
				return err
			}
			listed = append(listed, listedBucket{
				Key:   k,
				Label: label,
				Count: b.Count,
				Total: domain.Round3(b.Total),
			})
		}

		sort.Slice(listed, func(i, j int) bool {
			if listed[i].Count != listed[j].Count {
				return listed[i].Count > listed[j].Count
			}
			return listed[i].Key < listed[j].Key
		})

		if err := a.store.WriteJSON("stats/"+category+"/_index", index); err != nil {
			return err
		}
		if err := a.store.WriteJSON("stats/"+category+"/_list", listed); err != nil {
			return err
		}

		a.log.Info("stat buckets written",
			slog.String("category", category),
			slog.Int("buckets", len(buckets)))
	}
	return nil
}

// WriteMovers writes the day's winners and losers for both change bases,
// refreshes the latest pointers and appends the day's top movers to the
// rolling digest.
func (a *Aggregator) WriteMovers(date string, movers *Movers) error {
	bases := map[string][]domain.Mover{
		"value": movers.value,
		"pct":   movers.pct,
	}
	for base, all := range bases {
		sides := map[string][]domain.Mover{
			"winner": winners(all, moverListSize),
			"loser":  losers(all, moverListSize),
		}
		for side, list := range sides {
			doc := struct {
				Date string         `json:"date"`
				List []domain.Mover `json:"list"`
			}{Date: date, List: list}
			dir := fmt.Sprintf("movers/%s/%s/", base, side)
			if err := a.store.WriteJSON(dir+date, doc); err != nil {
				return err
			}
			if err := a.store.WriteJSON(dir+"latest", doc); err != nil {
				return err
			}
		}
	}

	// Digest: the single biggest winner and loser of the day (value basis).
	digest := []any{date, nil, nil, nil, nil}
	if w := winners(movers.value, 1); len(w) > 0 {
		digest[1], digest[2] = w[0].URI, w[0].Value
	}
	if l := losers(movers.value, 1); len(l) > 0 {
		digest[3], digest[4] = l[0].URI, l[0].Value
	}
	if err := a.store.AppendRow("movers/_list", digest...); err != nil {
		return err
	}

	a.log.Info("movers written",
		slog.String("date", date),
		slog.Int("movers", movers.Len()))
	return nil
}
