package report

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rtbcli/internal/domain"
	"rtbcli/internal/history"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

// DeleteDay removes one calendar date from every dependent file: each
// profile's history ledger, every stat bucket time series, the movers files
// and digest, the dated ranked list and the available-days index. All other
// dates are left untouched.
func DeleteDay(st *store.Store, reg *registry.Registry, date string, log *slog.Logger) error {
	if _, err := time.Parse(domain.DateFormat, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	ledger := history.New(st)
	for _, uri := range reg.URIs() {
		if err := ledger.DeleteDate(uri, date); err != nil {
			return err
		}
	}

	if err := deleteFromStatSeries(st, date); err != nil {
		return err
	}
	if err := deleteFromMovers(st, date); err != nil {
		return err
	}

	if err := st.Remove("list/rtb/" + date); err != nil {
		return err
	}

	var days []string
	if _, err := st.ReadJSON("availableDays", &days); err != nil {
		return err
	}
	kept := days[:0]
	for _, d := range days {
		if d != date {
			kept = append(kept, d)
		}
	}
	if len(kept) != len(days) {
		if err := st.WriteJSON("availableDays", kept); err != nil {
			return err
		}
	}

	log.Info("day deleted",
		slog.String("date", date),
		slog.Int("profiles", reg.Len()))
	return nil
}

// deleteFromStatSeries rewrites every bucket time series without the date.
// Plain stat documents (agePyramid and friends) are files, not category
// directories, and are skipped.
func deleteFromStatSeries(st *store.Store, date string) error {
	categories, err := st.List("stats")
	if err != nil {
		return err
	}
	for _, category := range categories {
		if !st.IsDir("stats/" + category) {
			continue
		}
		keys, err := st.List("stats/" + category)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if strings.HasPrefix(key, "_") {
				continue
			}
			if err := rewriteWithoutDate(st, "stats/"+category+"/"+key, date); err != nil {
				return err
			}
		}
	}
	return nil
}

func deleteFromMovers(st *store.Store, date string) error {
	for _, base := range []string{"value", "pct"} {
		for _, side := range []string{"winner", "loser"} {
			if err := st.Remove(fmt.Sprintf("movers/%s/%s/%s", base, side, date)); err != nil {
				return err
			}
		}
	}
	return rewriteWithoutDate(st, "movers/_list", date)
}

func rewriteWithoutDate(st *store.Store, path, date string) error {
	rows, err := st.ReadRows(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	kept := make([][]any, 0, len(rows))
	for _, r := range rows {
		if store.StringField(r[0]) != date {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rows) {
		return nil
	}
	return st.WriteRows(path, kept)
}
