// Package tagging infers search keywords for product listings from their
// name and description.
package tagging

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// Tagger maps tag names to keyword lists and matches them as whole words.
type Tagger struct {
	mu       sync.RWMutex
	rules    map[string][]string
	patterns map[string]*regexp.Regexp
}

var defaultRules = map[string][]string{
	"Wireless":        {"wireless", "cordless"},
	"Bluetooth":       {"bluetooth"},
	"Organic":         {"organic", "natural", "herbal"},
	"Cotton":          {"cotton"},
	"Leather":         {"leather"},
	"Waterproof":      {"waterproof", "water resistant", "splash proof"},
	"Rechargeable":    {"rechargeable", "usb c", "battery powered"},
	"Kids":            {"kids", "baby", "toddler", "children"},
	"Gaming":          {"gaming", "gamer", "rgb", "controller"},
	"Smart":           {"smart", "wifi", "app controlled"},
	"Stainless Steel": {"stainless"},
	"Handmade":        {"handmade", "handcrafted"},
	"Eco Friendly":    {"eco friendly", "biodegradable", "reusable"},
}

// New creates a tagger loaded with the default product rules.
func New() *Tagger {
	t := &Tagger{
		rules:    make(map[string][]string, len(defaultRules)),
		patterns: make(map[string]*regexp.Regexp, len(defaultRules)),
	}
	for tag, keywords := range defaultRules {
		t.AddRule(tag, keywords)
	}
	return t
}

// AddRule registers or replaces the keywords for tag.
func (t *Tagger) AddRule(tag string, keywords []string) {
	normalized := make([]string, 0, len(keywords))
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = models.NormalizeText(kw)
		if kw == "" {
			continue
		}
		normalized = append(normalized, kw)
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(quoted) == 0 {
		delete(t.rules, tag)
		delete(t.patterns, tag)
		return
	}
	t.rules[tag] = normalized
	t.patterns[tag] = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// RemoveRule drops tag.
func (t *Tagger) RemoveRule(tag string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rules, tag)
	delete(t.patterns, tag)
}

// GetRules returns a copy of the rule table.
func (t *Tagger) GetRules() map[string][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]string, len(t.rules))
	for tag, keywords := range t.rules {
		out[tag] = append([]string(nil), keywords...)
	}
	return out
}

// InferTags returns the tags whose keywords occur in name or description,
// sorted by tag name. It never returns nil.
func (t *Tagger) InferTags(name, description string) []string {
	text := models.NormalizeText(name + " " + description)
	tags := make([]string, 0)
	if text == "" {
		return tags
	}

	t.mu.RLock()
	for tag, re := range t.patterns {
		if re.MatchString(text) {
			tags = append(tags, tag)
		}
	}
	t.mu.RUnlock()

	sort.Strings(tags)
	return tags
}

// Merge appends inferred tags to existing ones, dropping case-insensitive
// duplicates and keeping first-seen order.
func Merge(existing, inferred []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(existing)+len(inferred))

	for _, list := range [][]string{existing, inferred} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			lower := strings.ToLower(tag)
			if tag == "" || seen[lower] {
				continue
			}
			seen[lower] = true
			result = append(result, tag)
		}
	}
	return result
}
