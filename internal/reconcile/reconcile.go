// Package reconcile implements the daily update: it fetches the ranking
// feed, merges every record into the profile store and history ledger,
// computes day-over-day changes, builds the day's ranked list and hands the
// accumulated stats and movers to the aggregator.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"rtbcli/internal/aggregate"
	"rtbcli/internal/country"
	"rtbcli/internal/domain"
	"rtbcli/internal/feed"
	"rtbcli/internal/history"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

const (
	listName  = "rtb"
	listLabel = "Real-time billionaires"
)

// Reconciler runs the daily pipeline against one content root.
type Reconciler struct {
	store     *store.Store
	registry  *registry.Registry
	ledger    *history.Ledger
	client    *feed.Client
	blacklist map[string]bool
	log       *slog.Logger
}

// Result carries the day's outputs for the aggregation step.
type Result struct {
	Date    string
	List    domain.RankedList
	Stats   *aggregate.Stats
	Movers  *aggregate.Movers
	Skipped int
}

// New creates a reconciler.
func New(st *store.Store, reg *registry.Registry, client *feed.Client, blacklist []string, log *slog.Logger) *Reconciler {
	bl := make(map[string]bool, len(blacklist))
	for _, uri := range blacklist {
		bl[strings.ToLower(uri)] = true
	}
	return &Reconciler{
		store:     st,
		registry:  reg,
		ledger:    history.New(st),
		client:    client,
		blacklist: bl,
		log:       log,
	}
}

// Run executes one reconciliation pass. It refuses to run twice for the
// same calendar date (ErrAlreadyUpdated) and aborts before any write when
// the feed fetch fails.
func (r *Reconciler) Run(ctx context.Context, now time.Time) (*Result, error) {
	today := now.UTC().Format(domain.DateFormat)

	marker, err := r.store.ReadText("latest")
	if err != nil {
		return nil, err
	}
	if marker != "" && strings.HasPrefix(marker, today) {
		return nil, fmt.Errorf("run for %s: %w", today, domain.ErrAlreadyUpdated)
	}

	persons, err := r.client.FetchList(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ranking feed: %w", err)
	}
	r.log.Info("feed fetched", slog.Int("records", len(persons)), slog.String("date", today))

	// The persisted list, the neighbor cross-references and the bucket First
	// pointers all derive from processing order, so the feed is sorted here
	// rather than trusted to arrive rank-ordered.
	sortPersons(persons)

	result := &Result{
		Date:   today,
		List:   domain.RankedList{Date: today, List: []domain.ListEntry{}},
		Stats:  aggregate.NewStats(),
		Movers: aggregate.NewMovers(),
	}

	for _, p := range persons {
		if err := r.processPerson(p, today, now, result); err != nil {
			return nil, fmt.Errorf("process %s: %w", p.URI, err)
		}
	}

	if err := r.writeNeighbors(today, result.List.List); err != nil {
		return nil, err
	}
	if err := r.writeList(today, &result.List); err != nil {
		return nil, err
	}
	if err := r.appendAvailableDay(today); err != nil {
		return nil, err
	}
	if err := r.registry.Save(); err != nil {
		return nil, err
	}
	if err := r.store.WriteText("latest", now.UTC().Format(time.RFC3339)); err != nil {
		return nil, err
	}
	if err := r.store.WriteText("updated", today); err != nil {
		return nil, err
	}

	r.log.Info("reconciliation complete",
		slog.String("date", today),
		slog.Int("ranked", result.List.Count),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// sortPersons orders feed records by ascending rank, unranked records after
// the ranked block by descending net worth.
func sortPersons(persons []feed.Person) {
	rankOf := func(p feed.Person) int {
		if p.Rank > 0 {
			return p.Rank
		}
		return math.MaxInt
	}
	sort.SliceStable(persons, func(i, j int) bool {
		ri, rj := rankOf(persons[i]), rankOf(persons[j])
		if ri != rj {
			return ri < rj
		}
		return persons[i].FinalWorth > persons[j].FinalWorth
	})
}

func (r *Reconciler) processPerson(p feed.Person, today string, now time.Time, result *Result) error {
	uri := r.registry.Resolve(strings.ToLower(p.URI))
	if uri == "" {
		// First appearance: the incoming URI becomes canonical. A stale
		// alias entry (dangling or cyclic chain) is dropped first so a URI
		// is never canonical and aliased at the same time.
		uri = strings.ToLower(p.URI)
		if r.registry.DropAlias(uri) {
			r.log.Warn("dropped stale alias entry", slog.String("uri", uri))
		}
	}
	if r.blacklist[uri] {
		result.Skipped++
		return nil
	}

	name := p.PersonName
	if name == "" {
		name = p.LastName
	}
	if name == "" {
		name = uri
	}

	networth := domain.Round3(p.FinalWorth)
	var rank *int
	if networth >= domain.RankFloor && p.Rank > 0 {
		v := p.Rank
		rank = &v
	}

	var prev domain.Snapshot
	hadPrev, err := r.store.ReadJSON("profile/"+uri+"/latest", &prev)
	if err != nil {
		return err
	}

	// Change is nil on a profile's first day and on unchanged net worth.
	// The percentage uses the previous day's value as denominator.
	var change *domain.Change
	if hadPrev && prev.Networth != networth {
		value := domain.Round3(networth - prev.Networth)
		pct := 0.0
		if prev.Networth != 0 {
			pct = domain.Round3(value / prev.Networth * 100)
		}
		change = &domain.Change{Value: value, Pct: pct, Date: today}
	}

	if err := r.writeDocuments(uri, name, p, today, networth, rank, change); err != nil {
		return err
	}

	r.registry.Upsert(uri, domain.IndexEntry{
		Name:     name,
		Rank:     rank,
		Networth: networth,
		Updated:  today,
	})

	citizenship := country.Alpha2(p.CountryOfCitizenship)

	if rank != nil {
		result.List.List = append(result.List.List, domain.ListEntry{
			URI:         uri,
			Name:        name,
			Rank:        rank,
			Networth:    networth,
			Change:      change,
			Gender:      p.Gender,
			Age:         domain.Age(p.BirthDateISO(), now),
			Citizenship: citizenship,
			Industry:    p.Industries,
			Source:      p.Sources(),
		})
		result.List.Count++
		result.List.Total = domain.Round3(result.List.Total + networth)
		if p.Gender == "f" {
			result.List.Woman++
		}
	}

	// Stats and movers accumulate every processed profile, whether or not
	// it clears the rank floor.
	var pct *float64
	if change != nil {
		pct = &change.Pct
		result.Movers.Add(uri, change.Value, change.Pct)
	}
	result.Stats.Add("country", citizenship, citizenship, uri, networth, pct)
	for _, industry := range p.Industries {
		result.Stats.Add("industry", industry, industry, uri, networth, pct)
	}
	return nil
}

// writeDocuments refreshes a profile's stored documents. The identity
// document is only written on first sight so manually enriched fields
// survive the daily run; bio and asset documents are always refreshed.
func (r *Reconciler) writeDocuments(uri, name string, p feed.Person, today string, networth float64, rank *int, change *domain.Change) error {
	infoPath := "profile/" + uri + "/info"
	if !r.store.Exists(infoPath) {
		info := domain.Info{
			URI:         uri,
			Name:        name,
			Gender:      p.Gender,
			BirthDate:   p.BirthDateISO(),
			Citizenship: country.Alpha2(p.CountryOfCitizenship),
			Industry:    p.Industries,
			Source:      p.Sources(),
			Image:       p.SquareImage,
		}
		if err := r.store.WriteJSON(infoPath, info); err != nil {
			return err
		}
	}

	bio := struct {
		Bio   []string `json:"bio"`
		About []string `json:"about"`
	}{Bio: p.Bios, About: p.Abouts}
	if err := r.store.WriteJSON("profile/"+uri+"/bio", bio); err != nil {
		return err
	}
	if err := r.store.WriteJSON("profile/"+uri+"/assets", p.FinancialAssets); err != nil {
		return err
	}

	snapshot := domain.Snapshot{
		Date:          today,
		Rank:          rank,
		Networth:      networth,
		Change:        change,
		PrivateWorth:  domain.Round3(p.PrivateAssetsWorth),
		ArchivedWorth: domain.Round3(p.ArchivedWorth),
	}
	if err := r.store.WriteJSON("profile/"+uri+"/latest", snapshot); err != nil {
		return err
	}
	if err := r.store.WriteText("profile/"+uri+"/updated", today); err != nil {
		return err
	}

	row := domain.HistoryRow{Date: today, Rank: rank, Networth: networth}
	if change != nil {
		row.ChangeValue = change.Value
		row.ChangePct = change.Pct
	}
	return r.ledger.Append(uri, row)
}

// writeNeighbors records each ranked profile's direct neighbors. Entries in
// the ranked list all clear the floor, so adjacency within the list is the
// neighbor relation.
func (r *Reconciler) writeNeighbors(today string, entries []domain.ListEntry) error {
	for i, e := range entries {
		n := domain.RankNeighbors{Date: today, Rank: e.Rank}
		if i > 0 {
			n.Prev = entries[i-1].URI
		}
		if i+1 < len(entries) {
			n.Next = entries[i+1].URI
		}
		if err := r.store.WriteJSON("profile/"+e.URI+"/rank", n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) writeList(today string, list *domain.RankedList) error {
	if err := r.store.WriteJSON("list/"+listName+"/"+today, list); err != nil {
		return err
	}
	if err := r.store.WriteJSON("list/"+listName+"/latest", list); err != nil {
		return err
	}
	index := map[string]string{}
	if _, err := r.store.ReadJSON("list/_index", &index); err != nil {
		return err
	}
	index[listName] = listLabel
	return r.store.WriteJSON("list/_index", index)
}

func (r *Reconciler) appendAvailableDay(today string) error {
	var days []string
	if _, err := r.store.ReadJSON("availableDays", &days); err != nil {
		return err
	}
	for _, d := range days {
		if d == today {
			return nil
		}
	}
	days = append(days, today)
	return r.store.WriteJSON("availableDays", days)
}
