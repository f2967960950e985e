// Package phone normalizes raw contact numbers into the international
// format the telephony provider requires.
package phone

import "strings"

// Normalize applies the provider formatting rules in order: strip
// whitespace; keep numbers already in international form; replace a
// national trunk prefix ("0") with the country calling code; otherwise
// assume the number is domestic and prepend the code.
//
// countryCode must include the leading "+", e.g. "+27".
func Normalize(raw, countryCode string) string {
	n := strings.Join(strings.Fields(raw), "")
	switch {
	case n == "":
		return ""
	case strings.HasPrefix(n, "+"):
		return n
	case strings.HasPrefix(n, "0"):
		return countryCode + n[1:]
	default:
		// No trunk prefix and no "+": still assumed domestic.
		return countryCode + n
	}
}
