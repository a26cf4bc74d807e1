package nim

import "strings"

// FallbackRule routes a model name containing Contains (case-insensitive) to
// Model. Rules are evaluated in order; the first match wins.
type FallbackRule struct {
	Contains string
	Model    string
}

// ModelTable maps caller model names to upstream NIM model IDs.
//
// Deployments differ in policy: some run a single catch-all default, others a
// keyword ladder routing model families to size tiers. Both are expressed
// through configuration rather than code.
type ModelTable struct {
	// Aliases holds exact caller-name → upstream-ID mappings.
	Aliases map[string]string
	// Fallbacks is the ordered substring ladder applied on alias miss.
	Fallbacks []FallbackRule
	// Default is returned when no alias or fallback rule matches.
	Default string
}

// Resolve maps a caller-supplied model name to an upstream model ID.
// Resolution is total: unknown names fall through the ladder to Default.
func (t ModelTable) Resolve(name string) string {
	if id, ok := t.Aliases[name]; ok {
		return id
	}

	lower := strings.ToLower(name)
	for _, rule := range t.Fallbacks {
		if rule.Contains != "" && strings.Contains(lower, strings.ToLower(rule.Contains)) {
			return rule.Model
		}
	}

	return t.Default
}
