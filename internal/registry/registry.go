// Package registry maintains the profile index (canonical URI to current
// snapshot summary) and the alias table redirecting retired URIs. The
// registry is an explicit handle loaded through the store; there is no
// package-level cache, callers reload when they need fresh state.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"rtbcli/internal/domain"
	"rtbcli/internal/history"
	"rtbcli/internal/store"
)

const (
	indexPath = "profile/_index"
	aliasPath = "profile/_alias"

	// maxAliasHops bounds alias chain resolution. This is a fixed cap, not
	// cycle detection; a cyclic table resolves to "" once the cap is hit.
	maxAliasHops = 20
)

// Registry is the in-memory view of the profile index and alias table.
type Registry struct {
	store *store.Store
	log   *slog.Logger

	index map[string]domain.IndexEntry
	alias map[string]string
}

// Load reads the index and alias table from the store.
func Load(st *store.Store, log *slog.Logger) (*Registry, error) {
	r := &Registry{store: st, log: log}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads both tables, discarding unsaved in-memory changes.
func (r *Registry) Reload() error {
	r.index = map[string]domain.IndexEntry{}
	r.alias = map[string]string{}
	if _, err := r.store.ReadJSON(indexPath, &r.index); err != nil {
		return fmt.Errorf("load profile index: %w", err)
	}
	if _, err := r.store.ReadJSON(aliasPath, &r.alias); err != nil {
		return fmt.Errorf("load alias table: %w", err)
	}
	return nil
}

// Save persists both tables.
func (r *Registry) Save() error {
	if err := r.store.WriteJSON(indexPath, r.index); err != nil {
		return fmt.Errorf("save profile index: %w", err)
	}
	if err := r.store.WriteJSON(aliasPath, r.alias); err != nil {
		return fmt.Errorf("save alias table: %w", err)
	}
	return nil
}

// Len returns the number of canonical profiles.
func (r *Registry) Len() int {
	return len(r.index)
}

// Has reports whether uri is a canonical profile.
func (r *Registry) Has(uri string) bool {
	_, ok := r.index[uri]
	return ok
}

// Entry returns the index entry for a canonical URI.
func (r *Registry) Entry(uri string) (domain.IndexEntry, bool) {
	e, ok := r.index[uri]
	return e, ok
}

// URIs returns all canonical URIs in sorted order.
func (r *Registry) URIs() []string {
	uris := make([]string, 0, len(r.index))
	for uri := range r.index {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Resolve follows the alias chain until it reaches a canonical URI, for at
// most maxAliasHops steps. It returns "" for an empty URI, an unknown URI or
// a chain that does not terminate within the cap.
func (r *Registry) Resolve(uri string) string {
	if uri == "" {
		return ""
	}
	for hops := 0; hops < maxAliasHops; hops++ {
		if _, ok := r.index[uri]; ok {
			return uri
		}
		next, ok := r.alias[uri]
		if !ok {
			return ""
		}
		uri = next
	}
	return ""
}

// Upsert merges an entry into the index, creating the profile on first
// sight. Changes are in-memory until Save.
func (r *Registry) Upsert(uri string, entry domain.IndexEntry) {
	r.index[uri] = entry
}

// DropAlias removes an alias entry, reporting whether it existed. Callers
// use it to repair dangling or cyclic alias chains before re-canonicalizing
// a URI; changes are in-memory until Save.
func (r *Registry) DropAlias(uri string) bool {
	if _, ok := r.alias[uri]; !ok {
		return false
	}
	delete(r.alias, uri)
	return true
}

// Rename moves a profile to a new canonical URI: the storage folder is
// moved, the info document's identity rewritten, the index key replaced and
// an alias from -> to recorded. Aliases that pointed at the old URI are
// repaired to point at the new one.
func (r *Registry) Rename(from, to string) error {
	if _, ok := r.index[to]; ok {
		return fmt.Errorf("rename %s: target %s: %w", from, to, domain.ErrAlreadyExists)
	}
	if _, ok := r.alias[to]; ok {
		return fmt.Errorf("rename %s: target %s is an alias: %w", from, to, domain.ErrAliasConflict)
	}
	entry, ok := r.index[from]
	if !ok {
		return fmt.Errorf("rename %s: %w", from, domain.ErrNotFound)
	}

	if err := r.store.Rename("profile/"+from, "profile/"+to); err != nil {
		return err
	}

	var info domain.Info
	if ok, err := r.store.ReadJSON("profile/"+to+"/info", &info); err != nil {
		return err
	} else if ok {
		info.URI = to
		if err := r.store.WriteJSON("profile/"+to+"/info", info); err != nil {
			return err
		}
	}

	delete(r.index, from)
	r.index[to] = entry
	r.alias[from] = to
	for k, v := range r.alias {
		if v == from {
			r.alias[k] = to
		}
	}

	r.log.Info("profile renamed",
		slog.String("from", from),
		slog.String("to", to))

	return r.Save()
}

// Merge absorbs one profile into another: history rows are concatenated by
// date (the target's rows win on duplicates), the source folder is removed,
// its index entry dropped and an alias recorded. The target's enrichment
// stamp is cleared so the next enrichment pass re-fetches detail data.
func (r *Registry) Merge(from, to string) error {
	if from == to {
		return fmt.Errorf("merge: source and target are the same profile")
	}
	if _, ok := r.index[from]; !ok {
		return fmt.Errorf("merge %s: %w", from, domain.ErrNotFound)
	}
	if _, ok := r.index[to]; !ok {
		return fmt.Errorf("merge into %s: %w", to, domain.ErrNotFound)
	}

	ledger := history.New(r.store)
	rows, err := ledger.Read(from)
	if err != nil {
		return err
	}
	duplicates, err := ledger.Concat(to, rows)
	if err != nil {
		return err
	}
	for _, d := range duplicates {
		r.log.Warn("duplicate history date during merge, keeping target row",
			slog.String("from", from),
			slog.String("to", to),
			slog.String("date", d))
	}

	var info domain.Info
	if ok, err := r.store.ReadJSON("profile/"+to+"/info", &info); err != nil {
		return err
	} else if ok && info.Enriched != "" {
		info.Enriched = ""
		if err := r.store.WriteJSON("profile/"+to+"/info", info); err != nil {
			return err
		}
	}

	if err := r.store.RemoveAll("profile/" + from); err != nil {
		return err
	}
	delete(r.index, from)
	r.alias[from] = to

	r.log.Info("profiles merged",
		slog.String("from", from),
		slog.String("to", to),
		slog.Int("rows", len(rows)))

	return r.Save()
}
