package report

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"rtbcli/internal/domain"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

// The ten self-made score labels, indexed by score minus one.
var selfMadeLabels = []string{
	"Inherited and no increase",
	"Inherited and managing",
	"Inherited and helping to increase",
	"Inherited and meaningful increase",
	"Inherited small, become big",
	"Hired hand or hands-off investor",
	"Self-made from moneyed background",
	"Self-made from middle-class",
	"Self-made from little to nothing",
	"Self-made with major obstacles",
}

var childrenBands = []string{"none", "one", "two", "three", "four", "5-to-10", "over-10"}

type scatterPoint struct {
	X    int     `json:"x"`
	Y    float64 `json:"y"`
	URI  string  `json:"uri"`
	Name string  `json:"name"`
}

// Demographics rebuilds the demographic stat documents (age pyramid, age vs
// net worth scatter, marital status, children, self-made scores) from the
// full registry. Deceased profiles are skipped.
func Demographics(st *store.Store, reg *registry.Registry, now time.Time, log *slog.Logger) error {
	selfMade := map[string]int{}
	for _, label := range selfMadeLabels {
		selfMade[label] = 0
	}

	pyramid := map[string]map[string]int{"m": {}, "f": {}}
	for _, g := range []string{"m", "f"} {
		for decade := 10; decade <= 90; decade += 10 {
			pyramid[g][fmt.Sprintf("%d", decade)] = 0
		}
	}

	scatter := map[string][]scatterPoint{"m": {}, "f": {}}
	marital := map[string]int{}
	childrenFull := map[string]int{}
	childrenShort := map[string]int{}
	for _, band := range childrenBands {
		childrenShort[band] = 0
	}

	for _, uri := range reg.URIs() {
		var info domain.Info
		ok, err := st.ReadJSON("profile/"+uri+"/info", &info)
		if err != nil {
			return err
		}
		if !ok || info.Deceased {
			continue
		}

		if info.SelfMade != nil && info.SelfMade.Rank >= 1 && info.SelfMade.Rank <= len(selfMadeLabels) {
			selfMade[selfMadeLabels[info.SelfMade.Rank-1]]++
		}

		if info.Gender != "" && info.BirthDate != "" {
			if age := domain.Age(info.BirthDate, now); age != nil {
				decade := *age / 10 * 10
				if buckets, ok := pyramid[info.Gender]; ok {
					if _, ok := buckets[fmt.Sprintf("%d", decade)]; ok {
						buckets[fmt.Sprintf("%d", decade)]++
					}

					var latest domain.Snapshot
					if ok, err := st.ReadJSON("profile/"+uri+"/latest", &latest); err != nil {
						return err
					} else if ok && latest.Networth >= domain.RankFloor {
						scatter[info.Gender] = append(scatter[info.Gender], scatterPoint{
							X:    decade,
							Y:    latest.Networth,
							URI:  uri,
							Name: info.Name,
						})
					}
				}
			}
		}

		// The feed packs multiple statuses into one comma separated field;
		// each status counts into its own bucket.
		for _, status := range strings.Split(info.MaritalStatus, ",") {
			if status = strings.TrimSpace(status); status != "" {
				marital[slug.Make(status)]++
			}
		}

		if info.Children != nil {
			n := *info.Children
			childrenFull[fmt.Sprintf("%d", n)]++
			childrenShort[childrenBand(n)]++
		}
	}

	documents := map[string]any{
		"stats/selfMade":      selfMade,
		"stats/agePyramid":    pyramid,
		"stats/scatter":       scatter,
		"stats/maritalStatus": marital,
		"stats/children": map[string]any{
			"full":  childrenFull,
			"short": childrenShort,
		},
	}
	for path, doc := range documents {
		if err := st.WriteJSON(path, doc); err != nil {
			return err
		}
	}

	log.Info("demographic stats written", slog.Int("profiles", reg.Len()))
	return nil
}

func childrenBand(n int) string {
	switch {
	case n > 10:
		return "over-10"
	case n > 4:
		return "5-to-10"
	case n >= 0 && n < 5:
		return childrenBands[n]
	default:
		return "none"
	}
}
