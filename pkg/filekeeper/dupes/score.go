package dupes

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// junkDirs are directory names that suggest a throwaway copy.
var junkDirs = map[string]struct{}{
	"tmp": {}, "temp": {}, "cache": {}, ".cache": {},
	"downloads": {}, "download": {}, "trash": {}, ".trash": {},
	"recycle": {}, "recycled": {}, "$recycle.bin": {},
}

// projectDirs are directory names that suggest a deliberate home.
var projectDirs = map[string]struct{}{
	"src": {}, "projects": {}, "project": {}, "work": {},
	"documents": {}, "docs": {}, "photos": {}, "music": {},
	"archive": {}, "library": {},
}

// copySuffix matches names like "report copy.pdf", "report (2).pdf",
// "report_2.pdf", and "report - copy.pdf".
var copySuffix = regexp.MustCompile(`(?i)([ _-]copy|[ _]?\(\d+\)|_\d+)$`)

// score assigns a retention score to a file under the given strategy.
// Higher is better; the highest-scored member of a group is recommended
// for keeping.
func score(f types.FileEntry, strategy Strategy) int64 {
	switch strategy {
	case StrategyNewest:
		return f.Modified.Unix()

	case StrategyOldest:
		return -f.Modified.Unix()

	case StrategyBestLocation:
		return locationScore(f.Path)

	case StrategyBestName:
		return nameScore(f.Name)

	default:
		return 0
	}
}

// locationScore rewards paths under purposeful directories and penalizes
// junk locations. Each ancestor contributes once.
func locationScore(path string) int64 {
	var s int64
	for _, segment := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
		lower := strings.ToLower(segment)
		if _, ok := junkDirs[lower]; ok {
			s -= 100
		}
		if _, ok := projectDirs[lower]; ok {
			s += 50
		}
	}
	return s
}

// nameScore rewards short, clean filenames. Copy-style suffixes carry a
// heavy penalty so "report.pdf" beats "report (1).pdf" and "report copy.pdf".
func nameScore(name string) int64 {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	var s int64 = -int64(len(stem))
	if copySuffix.MatchString(stem) {
		s -= 1000
	}
	return s
}
