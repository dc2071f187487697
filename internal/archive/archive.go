package archive

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"armts/internal/model"
)

// KeyScheme decides which rules the archive treats as duplicates.
type KeyScheme string

const (
	// Unordered keys a rule by the sorted set of its conditions, so A=>B and
	// B=>A collapse into one entry.
	Unordered KeyScheme = "unordered"
	// Sided keys antecedent and consequent separately.
	Sided KeyScheme = "sided"
)

func ParseKeyScheme(raw string) (KeyScheme, error) {
	switch KeyScheme(strings.ToLower(strings.TrimSpace(raw))) {
	case "", Unordered:
		return Unordered, nil
	case Sided:
		return Sided, nil
	default:
		return "", fmt.Errorf("unsupported key scheme: %s", raw)
	}
}

type Entry struct {
	Key        string        `json:"key"`
	Rule       model.Rule    `json:"full_rule"`
	Antecedent model.Rule    `json:"antecedent"`
	Consequent model.Rule    `json:"consequent"`
	Metrics    model.Metrics `json:"metrics"`
	Fitness    float64       `json:"fitness"`
	Window     model.Window  `json:"window"`
}

// Archive keeps every distinct rule with positive fitness, in insertion
// order. Entries are never removed or modified. Safe for concurrent use.
type Archive struct {
	scheme KeyScheme

	mu      sync.RWMutex
	entries []Entry
	keys    map[string]struct{}
}

func New(scheme KeyScheme) *Archive {
	if scheme == "" {
		scheme = Unordered
	}
	return &Archive{
		scheme: scheme,
		keys:   make(map[string]struct{}),
	}
}

func (a *Archive) Scheme() KeyScheme {
	return a.scheme
}

// Key returns the canonical identity of a rule under the archive's scheme.
func (a *Archive) Key(rule, antecedent, consequent model.Rule) string {
	if a.scheme == Sided {
		return canonical(antecedent) + "=>" + canonical(consequent)
	}
	return canonical(rule)
}

// Accept stores the entry unless its fitness is not positive or an entry
// with the same key exists. It reports whether the entry was stored.
func (a *Archive) Accept(e Entry) bool {
	if !(e.Fitness > 0) {
		return false
	}
	key := a.Key(e.Rule, e.Antecedent, e.Consequent)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.keys[key]; exists {
		return false
	}
	e.Key = key
	e.Rule = e.Rule.Clone()
	e.Antecedent = e.Antecedent.Clone()
	e.Consequent = e.Consequent.Clone()
	a.keys[key] = struct{}{}
	a.entries = append(a.entries, e)
	return true
}

func (a *Archive) Contains(rule, antecedent, consequent model.Rule) bool {
	key := a.Key(rule, antecedent, consequent)

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.keys[key]
	return ok
}

func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.entries)
}

// Ranked returns a copy of the entries by descending fitness. Equal fitness
// keeps insertion order.
func (a *Archive) Ranked() []Entry {
	a.mu.RLock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	a.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Fitness > out[j].Fitness
	})
	return out
}

// Best returns the highest ranked entry.
func (a *Archive) Best() (Entry, bool) {
	ranked := a.Ranked()
	if len(ranked) == 0 {
		return Entry{}, false
	}
	return ranked[0], true
}

func canonical(r model.Rule) string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		parts = append(parts, c.String())
	}
	sort.Strings(parts)
	return "[" + strings.Join(parts, ", ") + "]"
}
