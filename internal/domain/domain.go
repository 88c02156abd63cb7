// Package domain defines the data model shared by the pipeline components:
// profile documents, daily snapshots, history rows, ranked lists, movers and
// the error taxonomy used across the batch jobs.
package domain

import (
	"math"
	"time"
)

// RankFloor is the net worth threshold (in millions) below which a profile
// is excluded from ranked lists. Profiles under the floor keep their history
// but carry a null rank.
const RankFloor = 1000.0

// DateFormat is the calendar date layout used in file names, history rows
// and snapshot documents.
const DateFormat = "2006-01-02"

// SelfMade describes the self-made classification of a profile as reported
// by the detail feed.
type SelfMade struct {
	Is   bool `json:"_is"`
	Rank int  `json:"rank,omitempty"`
}

// Info is the per-profile identity document stored at profile/<uri>/info.
// Fields past Deceased are filled in by the enrichment job and must not be
// clobbered by the daily update.
type Info struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Gender      string   `json:"gender,omitempty"`
	BirthDate   string   `json:"birthDate,omitempty"`
	Citizenship string   `json:"citizenship,omitempty"`
	Industry    []string `json:"industry,omitempty"`
	Source      []string `json:"source,omitempty"`
	Image       string   `json:"image,omitempty"`
	Deceased    bool     `json:"deceased,omitempty"`
	Family      bool     `json:"family,omitempty"`

	SelfMade      *SelfMade `json:"selfMade,omitempty"`
	Residence     string    `json:"residence,omitempty"`
	MaritalStatus string    `json:"maritalStatus,omitempty"`
	Children      *int      `json:"children,omitempty"`
	Education     string    `json:"education,omitempty"`

	// Enriched is the date of the last successful detail fetch. Cleared on
	// merge so the next enrichment run re-fetches the combined profile.
	Enriched string `json:"enriched,omitempty"`
}

// InfoPatch carries the optional fields the enrichment feed may supply.
// Nil fields leave the stored document untouched.
type InfoPatch struct {
	SelfMade      *SelfMade
	Residence     *string
	MaritalStatus *string
	Children      *int
	Education     *string
	Deceased      *bool
}

// Apply merges the patch into the info document.
func (p InfoPatch) Apply(info *Info) {
	if p.SelfMade != nil {
		info.SelfMade = p.SelfMade
	}
	if p.Residence != nil {
		info.Residence = *p.Residence
	}
	if p.MaritalStatus != nil {
		info.MaritalStatus = *p.MaritalStatus
	}
	if p.Children != nil {
		info.Children = p.Children
	}
	if p.Education != nil {
		info.Education = *p.Education
	}
	if p.Deceased != nil {
		info.Deceased = *p.Deceased
	}
}

// Change is the day-over-day net worth delta. Pct uses the previous day's
// net worth as denominator.
type Change struct {
	Value float64 `json:"value"`
	Pct   float64 `json:"pct"`
	Date  string  `json:"date"`
}

// Snapshot is the latest per-profile state, stored at profile/<uri>/latest
// and mirrored by the most recent history row.
type Snapshot struct {
	Date          string  `json:"date"`
	Rank          *int    `json:"rank"`
	Networth      float64 `json:"networth"`
	Change        *Change `json:"change"`
	PrivateWorth  float64 `json:"privateWorth,omitempty"`
	ArchivedWorth float64 `json:"archivedWorth,omitempty"`
}

// HistoryRow is one immutable ledger line: date, rank, net worth and the
// change against the previous recorded day. A nil rank means the profile was
// below the rank floor that day.
type HistoryRow struct {
	Date        string
	Rank        *int
	Networth    float64
	ChangeValue float64
	ChangePct   float64
}

// IndexEntry is the registry's denormalized view of a profile.
type IndexEntry struct {
	Name     string  `json:"name"`
	Rank     *int    `json:"rank"`
	Networth float64 `json:"networth"`
	Updated  string  `json:"updated"`
}

// ListEntry is one row of a ranked list, denormalized for the frontend.
type ListEntry struct {
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	Rank        *int     `json:"rank"`
	Networth    float64  `json:"networth"`
	Change      *Change  `json:"change,omitempty"`
	Gender      string   `json:"gender,omitempty"`
	Age         *int     `json:"age,omitempty"`
	Citizenship string   `json:"citizenship,omitempty"`
	Industry    []string `json:"industry,omitempty"`
	Source      []string `json:"source,omitempty"`
}

// RankedList is the per-date list document. Count equals len(List) and Total
// sums Networth over the entries, rounded to 3 decimals.
type RankedList struct {
	Date  string      `json:"date"`
	Count int         `json:"count"`
	Woman int         `json:"woman"`
	Total float64     `json:"total"`
	List  []ListEntry `json:"list"`
}

// Related is one entry of a profile's related document, cross-referencing
// another tracked profile.
type Related struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Mover is a (uri, delta) pair used by the daily winners/losers lists.
type Mover struct {
	URI   string  `json:"uri"`
	Value float64 `json:"value"`
}

// RankNeighbors cross-references the profiles directly above and below a
// profile in the ranked list. Only neighbors above the rank floor qualify.
type RankNeighbors struct {
	Date string `json:"date"`
	Rank *int   `json:"rank"`
	Prev string `json:"prev,omitempty"`
	Next string `json:"next,omitempty"`
}

// Round3 rounds a monetary amount to 3 decimals, the precision used
// throughout the persisted documents.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Age returns the age in full years for a birth date in DateFormat at the
// given reference time, or nil when the birth date is absent or malformed.
func Age(birthDate string, now time.Time) *int {
	if birthDate == "" {
		return nil
	}
	born, err := time.Parse(DateFormat, birthDate)
	if err != nil {
		return nil
	}
	years := now.Year() - born.Year()
	if now.YearDay() < born.YearDay() {
		years--
	}
	if years < 0 {
		return nil
	}
	return &years
}
