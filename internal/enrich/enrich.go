// Package enrich fetches extended profile detail (residence, marital
// status, education, self-made classification) from the secondary feed.
// Requests run on a bounded worker group behind a rate limiter and the run
// waits for every in-flight write before reporting, so no update is lost.
package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"golang.org/x/time/rate"

	"rtbcli/internal/config"
	"rtbcli/internal/domain"
	"rtbcli/internal/feed"
	"rtbcli/internal/registry"
	"rtbcli/internal/store"
)

// Enricher runs one enrichment pass over the registry.
type Enricher struct {
	store    *store.Store
	registry *registry.Registry
	client   *feed.Client
	cfg      config.EnrichConfig
	log      *slog.Logger

	// Reset ignores the re-fetch threshold and considers every profile.
	Reset bool
}

// New creates an enricher.
func New(st *store.Store, reg *registry.Registry, client *feed.Client, cfg config.EnrichConfig, log *slog.Logger) *Enricher {
	return &Enricher{store: st, registry: reg, client: client, cfg: cfg, log: log}
}

// Run selects profiles whose last enrichment is older than the refresh
// threshold, capped at the per-run request budget, fetches their detail
// documents and patches the stored info. It returns the number of profiles
// enriched. Individual fetch failures are logged and skipped; they do not
// abort the batch.
func (e *Enricher) Run(ctx context.Context, now time.Time) (int, error) {
	candidates, err := e.selectCandidates(now)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		e.log.Info("no profiles due for enrichment")
		return 0, nil
	}

	limiter := rate.NewLimiter(rate.Limit(e.cfg.RPS), 1)
	pool := pond.NewPool(max(e.cfg.Workers, 1))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)

	var enriched atomic.Int64
	var mu sync.Mutex // serializes info document writes

	for _, uri := range candidates {
		group.Submit(func() {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			detail, err := e.client.FetchDetail(ctx, uri)
			if err != nil {
				e.log.Warn("enrichment fetch failed",
					slog.String("uri", uri),
					slog.Any("error", err))
				return
			}

			mu.Lock()
			defer mu.Unlock()
			if err := e.applyDetail(uri, detail, now); err != nil {
				e.log.Warn("enrichment write failed",
					slog.String("uri", uri),
					slog.Any("error", err))
				return
			}
			enriched.Add(1)
		})
	}

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return int(enriched.Load()), err
	}

	e.log.Info("enrichment run complete",
		slog.Int("candidates", len(candidates)),
		slog.Int64("enriched", enriched.Load()))
	return int(enriched.Load()), ctx.Err()
}

func (e *Enricher) selectCandidates(now time.Time) ([]string, error) {
	cutoff := now.AddDate(0, 0, -e.cfg.RefreshDays).Format(domain.DateFormat)

	var candidates []string
	for _, uri := range e.registry.URIs() {
		if len(candidates) == e.cfg.Budget {
			break
		}
		var info domain.Info
		ok, err := e.store.ReadJSON("profile/"+uri+"/info", &info)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if e.Reset || info.Enriched == "" || info.Enriched < cutoff {
			candidates = append(candidates, uri)
		}
	}
	return candidates, nil
}

func (e *Enricher) applyDetail(uri string, detail *feed.Detail, now time.Time) error {
	var info domain.Info
	if _, err := e.store.ReadJSON("profile/"+uri+"/info", &info); err != nil {
		return err
	}

	patch := domain.InfoPatch{
		Children: detail.NumberOfChildren,
		Deceased: detail.Deceased,
	}
	if residence := firstNonEmpty(detail.Residence, detail.City); residence != "" {
		patch.Residence = &residence
	}
	if detail.MaritalStatus != "" {
		patch.MaritalStatus = &detail.MaritalStatus
	}
	if detail.SelfMade != nil {
		patch.SelfMade = &domain.SelfMade{Is: *detail.SelfMade, Rank: detail.SelfMadeRank}
	}
	if education := formatEducation(detail.Educations); education != "" {
		patch.Education = &education
	}

	patch.Apply(&info)
	info.Enriched = now.UTC().Format(domain.DateFormat)
	if err := e.store.WriteJSON("profile/"+uri+"/info", info); err != nil {
		return err
	}
	return e.writeRelated(uri, detail.RelatedEntities)
}

// writeRelated records the detail feed's cross-references, keeping only
// persons that resolve to a tracked profile.
func (e *Enricher) writeRelated(uri string, entities []feed.RelatedEntity) error {
	related := []domain.Related{}
	for _, r := range entities {
		if r.Type != "person" {
			continue
		}
		canonical := e.registry.Resolve(strings.ToLower(r.URI))
		if canonical == "" || canonical == uri {
			continue
		}
		related = append(related, domain.Related{
			URI:  canonical,
			Name: r.Name,
			Type: r.RelationshipType,
		})
	}
	return e.store.WriteJSON("profile/"+uri+"/related", related)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatEducation(educations []feed.Education) string {
	parts := make([]string, 0, len(educations))
	for _, ed := range educations {
		switch {
		case ed.Degree != "" && ed.School != "":
			parts = append(parts, ed.Degree+", "+ed.School)
		case ed.School != "":
			parts = append(parts, ed.School)
		case ed.Degree != "":
			parts = append(parts, ed.Degree)
		}
	}
	return strings.Join(parts, "; ")
}
