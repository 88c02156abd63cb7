// Package feed fetches the remote ranking list and the per-profile detail
// documents. The list fetch retries with exponential backoff and validates
// each record; a response missing the expected envelope is reported as
// malformed rather than crashing the run.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"

	"rtbcli/internal/config"
	"rtbcli/internal/domain"
)

// Person is one record of the ranking feed.
type Person struct {
	URI                  string   `json:"uri" validate:"required"`
	PersonName           string   `json:"personName"`
	LastName             string   `json:"lastName"`
	Rank                 int      `json:"rank"`
	FinalWorth           float64  `json:"finalWorth" validate:"gte=0"`
	PrivateAssetsWorth   float64  `json:"privateAssetsWorth"`
	ArchivedWorth        float64  `json:"archivedWorth"`
	CountryOfCitizenship string   `json:"countryOfCitizenship"`
	Gender               string   `json:"gender"`
	BirthDate            int64    `json:"birthDate"`
	Timestamp            int64    `json:"timestamp"`
	Industries           []string `json:"industries"`
	Source               string   `json:"source"`
	SquareImage          string   `json:"squareImage"`
	Bios                 []string `json:"bios"`
	Abouts               []string `json:"abouts"`

	FinancialAssets []FinancialAsset `json:"financialAssets"`
}

// FinancialAsset is one publicly traded holding of a profile.
type FinancialAsset struct {
	Exchange       string  `json:"exchange,omitempty"`
	Ticker         string  `json:"ticker,omitempty"`
	CompanyName    string  `json:"companyName,omitempty"`
	NumberOfShares float64 `json:"numberOfShares,omitempty"`
	SharePrice     float64 `json:"sharePrice,omitempty"`
	CurrencyCode   string  `json:"currencyCode,omitempty"`
	ExchangeRate   float64 `json:"exchangeRate,omitempty"`
}

// BirthDateISO converts the feed's millisecond epoch birth date to a
// calendar date, or "" when absent.
func (p Person) BirthDateISO() string {
	if p.BirthDate == 0 {
		return ""
	}
	return time.UnixMilli(p.BirthDate).UTC().Format(domain.DateFormat)
}

// Sources splits the feed's comma separated wealth-source label field.
func (p Person) Sources() []string {
	if p.Source == "" {
		return nil
	}
	parts := strings.Split(p.Source, ",")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Detail is the enrichment payload of the secondary per-profile feed.
type Detail struct {
	Residence        string          `json:"residenceMsa"`
	City             string          `json:"city"`
	MaritalStatus    string          `json:"maritalStatus"`
	NumberOfChildren *int            `json:"numberOfChildren"`
	SelfMade         *bool           `json:"selfMade"`
	SelfMadeRank     int             `json:"selfMadeRank"`
	Deceased         *bool           `json:"deceased"`
	Educations       []Education     `json:"educations"`
	RelatedEntities  []RelatedEntity `json:"relatedEntities"`
}

// RelatedEntity is one cross-reference of the detail feed, pointing at
// another tracked subject.
type RelatedEntity struct {
	Type             string `json:"type"`
	URI              string `json:"uri"`
	Name             string `json:"name"`
	RelationshipType string `json:"relationshipType"`
}

// Education is one schooling record of the detail feed.
type Education struct {
	School string `json:"school"`
	Degree string `json:"degree"`
}

type listEnvelope struct {
	PersonList *struct {
		PersonsLists []Person `json:"personsLists"`
	} `json:"personList"`
}

type detailEnvelope struct {
	Person *Detail `json:"person"`
}

// Client talks to the remote feeds.
type Client struct {
	http      *http.Client
	listURL   string
	detailURL string
	maxTries  uint
	validate  *validator.Validate
	log       *slog.Logger
}

// NewClient creates a feed client from configuration.
func NewClient(cfg config.FeedConfig, log *slog.Logger) *Client {
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		listURL:   cfg.ListURL,
		detailURL: cfg.DetailURL,
		maxTries:  uint(max(cfg.MaxRetries, 1)),
		validate:  validator.New(),
		log:       log,
	}
}

// FetchList retrieves the full ranking feed. Transport and server errors are
// retried with exponential backoff; a response without the expected
// personList envelope fails immediately with ErrMalformedFeed. Records
// failing validation are skipped with a warning.
func (c *Client) FetchList(ctx context.Context) ([]Person, error) {
	env, err := backoff.Retry(ctx, func() (*listEnvelope, error) {
		var env listEnvelope
		if err := c.getJSON(ctx, c.listURL, &env); err != nil {
			return nil, err
		}
		if env.PersonList == nil {
			return nil, backoff.Permanent(domain.ErrMalformedFeed)
		}
		return &env, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return nil, err
	}

	persons := make([]Person, 0, len(env.PersonList.PersonsLists))
	for _, p := range env.PersonList.PersonsLists {
		if err := c.validate.Struct(p); err != nil {
			c.log.Warn("skipping invalid feed record",
				slog.String("uri", p.URI),
				slog.Any("error", err))
			continue
		}
		persons = append(persons, p)
	}
	return persons, nil
}

// FetchDetail retrieves the enrichment document for one profile.
func (c *Client) FetchDetail(ctx context.Context, uri string) (*Detail, error) {
	var env detailEnvelope
	target := c.detailURL + "/" + url.PathEscape(uri)
	if err := c.getJSON(ctx, target, &env); err != nil {
		return nil, fmt.Errorf("%w: detail %s: %v", domain.ErrRequestFailed, uri, err)
	}
	if env.Person == nil {
		return nil, fmt.Errorf("%w: detail %s: empty payload", domain.ErrMalformedFeed, uri)
	}
	return env.Person, nil
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", domain.ErrRequestFailed, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
