package aggregate

import (
	"log/slog"
	"sort"
	"time"

	"github.com/gosimple/slug"

	"rtbcli/internal/country"
	"rtbcli/internal/domain"
	"rtbcli/internal/registry"
)

// Age bands for the young/old boolean filters.
const (
	youngAge = 50
	oldAge   = 80
)

// Labels for the global filter index.
var filterLabels = map[string]string{
	"woman":    "Women",
	"young":    "Under 50",
	"old":      "Over 80",
	"selfMade": "Self-made",
	"deceased": "Deceased",
	"dropped":  "Below one billion",
	"country":  "Country of citizenship",
	"industry": "Industry",
}

// WriteFilters re-derives every filter index from the full registry, not
// just today's delta, so corrective edits to profile documents are picked up
// on the next run.
func (a *Aggregator) WriteFilters(reg *registry.Registry, now time.Time) error {
	flat := map[string][]string{
		"woman":    {},
		"young":    {},
		"old":      {},
		"selfMade": {},
		"deceased": {},
		"dropped":  {},
	}
	keyed := map[string]map[string]keyedEntry{
		"country":  {},
		"industry": {},
	}

	for _, uri := range reg.URIs() {
		var info domain.Info
		ok, err := a.store.ReadJSON("profile/"+uri+"/info", &info)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		if info.Gender == "f" {
			flat["woman"] = append(flat["woman"], uri)
		}
		if info.Deceased {
			flat["deceased"] = append(flat["deceased"], uri)
		} else if age := domain.Age(info.BirthDate, now); age != nil {
			if *age < youngAge {
				flat["young"] = append(flat["young"], uri)
			} else if *age > oldAge {
				flat["old"] = append(flat["old"], uri)
			}
		}
		if info.SelfMade != nil && info.SelfMade.Is {
			flat["selfMade"] = append(flat["selfMade"], uri)
		}
		if entry, ok := reg.Entry(uri); ok && entry.Networth < domain.RankFloor {
			flat["dropped"] = append(flat["dropped"], uri)
		}

		if info.Citizenship != "" {
			addKeyed(keyed["country"], info.Citizenship, country.Name(info.Citizenship), uri)
		}
		for _, ind := range info.Industry {
			addKeyed(keyed["industry"], ind, ind, uri)
		}
	}

	for name, uris := range flat {
		sort.Strings(uris)
		if err := a.store.WriteJSON("filter/"+name, uris); err != nil {
			return err
		}
	}

	for category, entries := range keyed {
		index := map[string]string{}
		for k, e := range entries {
			sort.Strings(e.uris)
			index[k] = e.label
			if err := a.store.WriteJSON("filter/"+category+"/"+k, e.uris); err != nil {
				return err
			}
		}
		if err := a.store.WriteJSON("filter/"+category+"/_index", index); err != nil {
			return err
		}
	}

	if err := a.store.WriteJSON("filter/_index", filterLabels); err != nil {
		return err
	}

	a.log.Info("filter indexes rebuilt", slog.Int("profiles", reg.Len()))
	return nil
}

type keyedEntry struct {
	label string
	uris  []string
}

func addKeyed(m map[string]keyedEntry, key, label, uri string) {
	k := slug.Make(key)
	e := m[k]
	if e.label == "" {
		e.label = label
	}
	e.uris = append(e.uris, uri)
	m[k] = e
}
