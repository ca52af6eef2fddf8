package core

// mapping.go suggests which uploaded column plays each semantic role.
//
// Suggestion is a two-pass search per role:
//  1. Substring pass: the first column (in upload order) whose normalized
//     name contains any of the role's aliases.
//  2. Fallback: the column with the smallest edit distance to the role's
//     primary alias, earliest column on ties.
//
// Columns whose name normalizes to nothing are never suggested.
//
// Users may override any suggestion; overrides are never re-suggested.

import (
	"strings"
	"unicode"
)

// Role is a fixed semantic column role of a load sheet.
type Role string

// Required roles, in the order they are presented for mapping.
const (
	RoleSlotpath      Role = "slotpath"
	RolePointName     Role = "pointName"
	RoleHandle        Role = "handle"
	RoleType          Role = "type"
	RoleField         Role = "field"
	RoleDeviceName    Role = "deviceName"
	RoleCanonicalType Role = "canonicalType"
	RoleSuffix        Role = "suffix"
)

// Roles introduced during enrichment.
const (
	RoleFacets Role = "facets"
	RoleOut    Role = "out"
)

// Roles lists the required roles in presentation order.
var Roles = []Role{
	RoleSlotpath,
	RolePointName,
	RoleHandle,
	RoleType,
	RoleField,
	RoleDeviceName,
	RoleCanonicalType,
	RoleSuffix,
}

// roleAliases are normalized header fragments per role. The first alias is
// the primary one used by the edit-distance fallback.
var roleAliases = map[Role][]string{
	RoleSlotpath:      {"slotpath", "slotpathdecoded", "slot", "path"},
	RolePointName:     {"pointname", "point", "name"},
	RoleHandle:        {"handle", "id"},
	RoleType:          {"type", "pointtype"},
	RoleField:         {"addtoskyspark", "addtosky", "field"},
	RoleDeviceName:    {"devicename", "device"},
	RoleCanonicalType: {"canonicaltype", "canonical"},
	RoleSuffix:        {"suffix"},
}

// Mapping assigns a source column to each role. An unmapped role holds the
// empty string, and every consumer treats its values as blank.
type Mapping map[Role]string

// Column returns the column mapped to r, or "".
func (m Mapping) Column(r Role) string {
	if m == nil {
		return ""
	}
	return m[r]
}

// Clone returns a copy of m.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// With returns a copy of m with r mapped to col.
func (m Mapping) With(r Role, col string) Mapping {
	out := m.Clone()
	out[r] = col
	return out
}

// Merge returns a copy of m with every entry of overrides applied, including
// overrides to the empty string.
func (m Mapping) Merge(overrides Mapping) Mapping {
	out := m.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Unmapped lists required roles without a column, in presentation order.
func (m Mapping) Unmapped() []Role {
	var out []Role
	for _, r := range Roles {
		if m.Column(r) == "" {
			out = append(out, r)
		}
	}
	return out
}

// SuggestMapping proposes a column for each required role.
func SuggestMapping(columns []string) Mapping {
	normalized := make([]string, len(columns))
	for i, c := range columns {
		normalized[i] = normalizeHeader(c)
	}

	m := make(Mapping, len(Roles))
	for _, role := range Roles {
		m[role] = suggestColumn(columns, normalized, roleAliases[role])
	}
	return m
}

func suggestColumn(columns, normalized []string, aliases []string) string {
	for i, n := range normalized {
		if n == "" {
			continue
		}
		for _, alias := range aliases {
			if strings.Contains(n, alias) {
				return columns[i]
			}
		}
	}

	best := ""
	bestDist := -1
	for i, n := range normalized {
		if n == "" {
			continue
		}
		d := levenshtein(n, aliases[0])
		if bestDist < 0 || d < bestDist {
			best, bestDist = columns[i], d
		}
	}
	return best
}

// normalizeHeader lowercases s and drops every character outside [a-z0-9].
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// levenshtein returns the edit distance between a and b using two rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
