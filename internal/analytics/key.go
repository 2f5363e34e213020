package analytics

import (
	"net/url"
	"strings"
)

// Cache key kinds. Distinct kinds occupy disjoint key namespaces.
const (
	KindSummary   = "summary"
	KindUserStats = "userstats"
)

// scopeAll is the app-scope segment used when a summary spans all of the
// caller's apps.
const scopeAll = "all"

// DeriveKey maps a query's semantic parameters plus the caller identity
// to a canonical cache key. Pure and total: same inputs always produce
// the same key, and inputs differing in any segment produce different
// keys. Each segment is escaped so values containing the separator
// cannot collide with a differently-split key. Absent optional values
// are passed as "" so absence normalizes identically across calls.
//
// The caller segment is always last. For ownership-scoped kinds it must
// carry the requesting user's identity, so entries for two different
// owners can never share a key.
func DeriveKey(kind, callerID string, parts ...string) string {
	segs := make([]string, 0, len(parts)+2)
	segs = append(segs, kind)
	for _, p := range parts {
		segs = append(segs, url.QueryEscape(p))
	}
	segs = append(segs, url.QueryEscape(callerID))
	return strings.Join(segs, ":")
}
