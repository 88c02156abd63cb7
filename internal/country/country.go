// Package country maps between feed-provided country names and ISO alpha-2
// codes, and resolves codes back to display names for bucket labels.
package country

import (
	"strings"

	"github.com/pariz/gountries"
)

// The gountries dataset is immutable, so a shared query is safe.
var query = gountries.New()

// Alpha2 resolves a country name to its upper-case ISO alpha-2 code, or ""
// when the name is unknown.
func Alpha2(name string) string {
	if name == "" {
		return ""
	}
	if c, err := query.FindCountryByName(name); err == nil {
		return c.Alpha2
	}
	if len(name) == 2 {
		if c, err := query.FindCountryByAlpha(name); err == nil {
			return c.Alpha2
		}
	}
	return ""
}

// Name resolves an ISO alpha-2 code to its short display name. Unknown codes
// fall back to the upper-cased code itself.
func Name(alpha2 string) string {
	if c, err := query.FindCountryByAlpha(alpha2); err == nil {
		return c.Name.Common
	}
	return strings.ToUpper(alpha2)
}
