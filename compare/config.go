// Package compare computes a semantic diff between two matched FIX
// messages, honoring an include/exclude tag policy and per-tag value
// normalization, per spec §4.3.
package compare

import (
	"regexp"
	"strings"

	"github.com/coinbase-samples/fix-conformance-harness/fixtag"
)

// Replacement is one ordered regex substitution applied during
// normalization, after trimming.
type Replacement struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Normalizer trims a value (if TrimSpace is set) and then applies ordered
// regex replacements before two values are compared.
type Normalizer struct {
	TrimSpace    bool
	Replacements []Replacement
}

// Apply runs the normalizer's rules against value in order.
func (n Normalizer) Apply(value string) string {
	out := value
	if n.TrimSpace {
		out = strings.TrimSpace(out)
	}
	for _, r := range n.Replacements {
		out = r.Pattern.ReplaceAllString(out, r.Replacement)
	}
	return out
}

// Config controls which tags compare and how their values normalize,
// matching spec §3's CompareConfig entity.
type Config struct {
	// DefaultInclude, when non-empty, restricts comparison to this tag set
	// (before exclusion) for any msgType without its own override.
	DefaultInclude map[fixtag.Tag]bool
	// DefaultExclude is always subtracted, regardless of include.
	DefaultExclude map[fixtag.Tag]bool
	// PerMsgTypeInclude/PerMsgTypeExclude override the defaults for a
	// specific msgType.
	PerMsgTypeInclude map[string]map[fixtag.Tag]bool
	PerMsgTypeExclude map[string]map[fixtag.Tag]bool
	// ExcludeTimeLikeTags adds tag 60 (TransactTime) to the exclude set.
	ExcludeTimeLikeTags bool
	// Normalizers maps a tag to the Normalizer applied to both sides
	// before comparing values.
	Normalizers map[fixtag.Tag]Normalizer
}

// NewConfig returns a Config with the spec §4.3 default exclude set
// ({8, 9, 10, 34, 52, 122}) and empty maps ready for population.
func NewConfig() *Config {
	defaultExclude := make(map[fixtag.Tag]bool, len(fixtag.DefaultExcludeTags))
	for _, t := range fixtag.DefaultExcludeTags {
		if t == fixtag.TransactTime {
			continue // TransactTime is conditionally excluded via ExcludeTimeLikeTags
		}
		defaultExclude[t] = true
	}
	return &Config{
		DefaultExclude:    defaultExclude,
		PerMsgTypeInclude: make(map[string]map[fixtag.Tag]bool),
		PerMsgTypeExclude: make(map[string]map[fixtag.Tag]bool),
		Normalizers:       make(map[fixtag.Tag]Normalizer),
	}
}

// tagsToCompare implements the set algebra from spec §4.3:
//
//	combined  = expectedTags ∪ actualTags
//	include   = perMsgTypeInclude[msgType] ?? defaultInclude
//	exclude   = defaultExclude ∪ (excludeTimeLikeTags ? {60} : {}) ∪ perMsgTypeExclude[msgType]
//	result    = (include == ∅ ? combined : combined ∩ include) \ exclude
func (c *Config) tagsToCompare(msgType string, expectedTags, actualTags []fixtag.Tag) []fixtag.Tag {
	combined := make(map[fixtag.Tag]bool, len(expectedTags)+len(actualTags))
	for _, t := range expectedTags {
		combined[t] = true
	}
	for _, t := range actualTags {
		combined[t] = true
	}

	include := c.PerMsgTypeInclude[msgType]
	if include == nil {
		include = c.DefaultInclude
	}

	exclude := make(map[fixtag.Tag]bool, len(c.DefaultExclude)+1)
	for t := range c.DefaultExclude {
		exclude[t] = true
	}
	if c.ExcludeTimeLikeTags {
		exclude[fixtag.TransactTime] = true
	}
	for t := range c.PerMsgTypeExclude[msgType] {
		exclude[t] = true
	}

	var candidates map[fixtag.Tag]bool
	if len(include) == 0 {
		candidates = combined
	} else {
		candidates = make(map[fixtag.Tag]bool)
		for t := range combined {
			if include[t] {
				candidates[t] = true
			}
		}
	}

	out := make([]fixtag.Tag, 0, len(candidates))
	for t := range candidates {
		if !exclude[t] {
			out = append(out, t)
		}
	}
	sortTags(out)
	return out
}

func sortTags(tags []fixtag.Tag) {
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j-1] > tags[j]; j-- {
			tags[j-1], tags[j] = tags[j], tags[j-1]
		}
	}
}
