// Package rules maps files to categories. Ordered custom rules are
// evaluated first, by descending priority with first match winning; when no
// custom rule matches, a built-in extension table decides.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// CategoryOther is the fallback when nothing matches.
const CategoryOther = "Other"

// Rule is one custom categorization rule. Exactly one of the two variants
// applies: a rule with a compiled pattern matches on filename, otherwise it
// matches on extension.
type Rule interface {
	// Category is the category assigned on a match.
	Category() string
	// Priority orders evaluation; higher runs first.
	Priority() int
	// Matches reports whether the rule applies to the entry.
	Matches(entry types.FileEntry) bool
}

// ExtensionRule matches files by extension.
type ExtensionRule struct {
	category   string
	priority   int
	extensions map[string]struct{}
}

// NewExtensionRule creates a rule matching any of the given extensions
// (with or without leading dot, case-insensitive).
func NewExtensionRule(category string, priority int, extensions ...string) (*ExtensionRule, error) {
	if category == "" {
		return nil, fmt.Errorf("rule category cannot be empty")
	}
	if len(extensions) == 0 {
		return nil, fmt.Errorf("extension rule for %q has no extensions", category)
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &ExtensionRule{category: category, priority: priority, extensions: exts}, nil
}

// Category implements Rule.
func (r *ExtensionRule) Category() string { return r.category }

// Priority implements Rule.
func (r *ExtensionRule) Priority() int { return r.priority }

// Matches implements Rule.
func (r *ExtensionRule) Matches(entry types.FileEntry) bool {
	_, ok := r.extensions[entry.Extension]
	return ok
}

// PatternRule matches files by a regular expression over the filename.
type PatternRule struct {
	category string
	priority int
	pattern  *regexp.Regexp
}

// NewPatternRule creates a rule matching filenames against the pattern.
// An invalid pattern is rejected at construction, not at match time.
func NewPatternRule(category string, priority int, pattern string) (*PatternRule, error) {
	if category == "" {
		return nil, fmt.Errorf("rule category cannot be empty")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filename pattern for %q: %w", category, err)
	}
	return &PatternRule{category: category, priority: priority, pattern: re}, nil
}

// Category implements Rule.
func (r *PatternRule) Category() string { return r.category }

// Priority implements Rule.
func (r *PatternRule) Priority() int { return r.priority }

// Matches implements Rule.
func (r *PatternRule) Matches(entry types.FileEntry) bool {
	return r.pattern.MatchString(entry.Name)
}

// Categorizer assigns categories. It is immutable after construction and
// safe for concurrent use.
type Categorizer struct {
	rules []Rule
}

// NewCategorizer creates a Categorizer with the given custom rules. Rules
// are stably sorted by descending priority, so rules of equal priority keep
// their insertion order.
func NewCategorizer(customRules ...Rule) *Categorizer {
	rules := make([]Rule, len(customRules))
	copy(rules, customRules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority() > rules[j].Priority()
	})
	return &Categorizer{rules: rules}
}

// Categorize returns the category for the entry: the first matching custom
// rule in priority order, else the built-in extension table, else Other.
func (c *Categorizer) Categorize(entry types.FileEntry) string {
	for _, rule := range c.rules {
		if rule.Matches(entry) {
			return rule.Category()
		}
	}

	if category, ok := extensionTable[entry.Extension]; ok {
		return category
	}
	return CategoryOther
}

// extensionTable maps known extensions to built-in categories.
var extensionTable = buildExtensionTable(map[string][]string{
	"Documents": {
		".pdf", ".doc", ".docx", ".odt", ".rtf", ".txt", ".md", ".tex",
		".xls", ".xlsx", ".ods", ".ppt", ".pptx", ".odp", ".epub",
	},
	"Images": {
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp",
		".svg", ".ico", ".heic", ".raw", ".psd",
	},
	"Audio": {
		".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a", ".wma", ".opus",
	},
	"Video": {
		".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm", ".m4v", ".mpg", ".mpeg",
	},
	"Archives": {
		".zip", ".tar", ".gz", ".bz2", ".xz", ".7z", ".rar", ".tgz", ".zst", ".iso",
	},
	"Code": {
		".go", ".py", ".js", ".ts", ".c", ".h", ".cpp", ".hpp", ".rs",
		".java", ".rb", ".sh", ".pl", ".php", ".swift", ".kt", ".scala",
		".html", ".css", ".sql",
	},
	"Data": {
		".json", ".yaml", ".yml", ".toml", ".xml", ".csv", ".tsv",
		".parquet", ".db", ".sqlite",
	},
	"Applications": {
		".exe", ".msi", ".dmg", ".pkg", ".deb", ".rpm", ".apk", ".appimage",
	},
	"Fonts": {
		".ttf", ".otf", ".woff", ".woff2",
	},
})

func buildExtensionTable(categories map[string][]string) map[string]string {
	table := make(map[string]string)
	for category, exts := range categories {
		for _, ext := range exts {
			table[ext] = category
		}
	}
	return table
}
