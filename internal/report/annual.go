// Package report implements the corrective and derivation batch jobs that
// operate on the same store as the daily update: annual rollups, the
// demographic stats, the monthly top-10 digest and the delete-day repair.
package report

import (
	"fmt"
	"log/slog"

	"rtbcli/internal/domain"
	"rtbcli/internal/history"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

// RankReport summarizes a profile's rank over one year. Max is the best
// (numerically smallest) rank of the year, Min the worst.
type RankReport struct {
	Latest  *int `json:"latest"`
	First   *int `json:"first"`
	Diff    int  `json:"diff"`
	Average *int `json:"average"`
	Max     *int `json:"max"`
	Min     *int `json:"min"`
	Range   *int `json:"range"`
}

// WorthReport summarizes a profile's net worth over one year.
type WorthReport struct {
	Latest  float64 `json:"latest"`
	First   float64 `json:"first"`
	Diff    float64 `json:"diff"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
	Range   float64 `json:"range"`
}

// AnnualReport is the per-year entry of a profile's annual document.
type AnnualReport struct {
	Rank     RankReport  `json:"rank"`
	Networth WorthReport `json:"networth"`
}

// Annual slices every profile's ledger to the given year and merges the
// year's rollup into profile/<uri>/annual. It returns the number of
// profiles that had rows for the year.
func Annual(st *store.Store, reg *registry.Registry, year int, log *slog.Logger) (int, error) {
	ledger := history.New(st)
	updated := 0

	for _, uri := range reg.URIs() {
		rows, err := ledger.ReadYear(uri, year)
		if err != nil {
			return updated, err
		}
		if len(rows) == 0 {
			continue
		}

		annual := map[string]AnnualReport{}
		if _, err := st.ReadJSON("profile/"+uri+"/annual", &annual); err != nil {
			return updated, err
		}
		annual[fmt.Sprintf("%04d", year)] = buildReport(rows)

		if err := st.WriteJSON("profile/"+uri+"/annual", annual); err != nil {
			return updated, err
		}
		updated++
	}

	log.Info("annual report written",
		slog.Int("year", year),
		slog.Int("profiles", updated))
	return updated, nil
}

func buildReport(rows []domain.HistoryRow) AnnualReport {
	first, last := rows[0], rows[len(rows)-1]

	var report AnnualReport
	report.Rank = rankReport(rows, first, last)

	worthSum, worthMax, worthMin := 0.0, rows[0].Networth, rows[0].Networth
	for _, r := range rows {
		worthSum += r.Networth
		if r.Networth > worthMax {
			worthMax = r.Networth
		}
		if r.Networth < worthMin {
			worthMin = r.Networth
		}
	}
	report.Networth = WorthReport{
		Latest:  last.Networth,
		First:   first.Networth,
		Diff:    domain.Round3(last.Networth - first.Networth),
		Average: domain.Round3(worthSum / float64(len(rows))),
		Max:     domain.Round3(worthMax),
		Min:     domain.Round3(worthMin),
		Range:   domain.Round3(worthMax - worthMin),
	}
	return report
}

func rankReport(rows []domain.HistoryRow, first, last domain.HistoryRow) RankReport {
	report := RankReport{
		Latest: last.Rank,
		First:  first.Rank,
	}

	// Days below the floor carry no rank and are excluded.
	sum, n := 0, 0
	var best, worst *int
	for _, r := range rows {
		if r.Rank == nil {
			continue
		}
		v := *r.Rank
		sum += v
		n++
		if best == nil || v < *best {
			best = &v
		}
		if worst == nil || v > *worst {
			worst = &v
		}
	}
	if n == 0 {
		return report
	}

	avg := sum / n
	report.Average = &avg
	report.Max = best
	report.Min = worst
	rng := *worst - *best
	report.Range = &rng
	if first.Rank != nil && last.Rank != nil {
		report.Diff = *first.Rank - *last.Rank
	}
	return report
}
