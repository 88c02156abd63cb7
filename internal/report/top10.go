package report

import (
	"fmt"
	"log/slog"
	"time"

	"rtbcli/internal/domain"
	"rtbcli/internal/store"
)

type top10Row struct {
	Rank     *int    `json:"rank"`
	URI      string  `json:"uri"`
	Networth float64 `json:"networth"`
}

type top10Profile struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Top10 walks the recorded days month by month, picks the last available
// day of each month and writes the month's top ten list rows plus a profile
// lookup to stats/top10.
func Top10(st *store.Store, log *slog.Logger) error {
	var days []string
	if _, err := st.ReadJSON("availableDays", &days); err != nil {
		return err
	}
	if len(days) == 0 {
		return fmt.Errorf("available days: %w", domain.ErrNotFound)
	}

	first, err := time.Parse(domain.DateFormat, days[0])
	if err != nil {
		return fmt.Errorf("parse first day: %w", err)
	}
	last, err := time.Parse(domain.DateFormat, days[len(days)-1])
	if err != nil {
		return fmt.Errorf("parse last day: %w", err)
	}

	profiles := map[string]top10Profile{}
	months := map[string][]top10Row{}

	// Walk first-of-month cursors so a partial trailing month is included.
	first = time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC)
	for cursor := first; !cursor.After(last); cursor = cursor.AddDate(0, 1, 0) {
		monthEnd := time.Date(cursor.Year(), cursor.Month()+1, 0, 0, 0, 0, 0, time.UTC)
		day := latestDayUpTo(days, monthEnd.Format(domain.DateFormat))
		if day == "" {
			continue
		}

		var list domain.RankedList
		ok, err := st.ReadJSON("list/rtb/"+day, &list)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		rows := make([]top10Row, 0, 10)
		for _, entry := range list.List {
			if len(rows) == 10 {
				break
			}
			rows = append(rows, top10Row{
				Rank:     entry.Rank,
				URI:      entry.URI,
				Networth: entry.Networth,
			})
			if _, seen := profiles[entry.URI]; !seen {
				profiles[entry.URI] = top10Profile{Name: entry.Name}
			}
		}
		months[monthEnd.Format("2006-01")] = rows
	}

	// Second pass for images, one info read per distinct profile.
	for uri, p := range profiles {
		var info domain.Info
		if ok, err := st.ReadJSON("profile/"+uri+"/info", &info); err != nil {
			return err
		} else if ok {
			p.Image = info.Image
			profiles[uri] = p
		}
	}

	doc := struct {
		Profiles map[string]top10Profile `json:"profiles"`
		List     map[string][]top10Row   `json:"list"`
	}{Profiles: profiles, List: months}

	if err := st.WriteJSON("stats/top10", doc); err != nil {
		return err
	}
	log.Info("top 10 digest written", slog.Int("months", len(months)))
	return nil
}

// latestDayUpTo returns the last recorded day not after limit, or "".
// availableDays is maintained in append order, which is date order.
func latestDayUpTo(days []string, limit string) string {
	best := ""
	for _, d := range days {
		if d <= limit && d > best {
			best = d
		}
	}
	return best
}
