// Package dupes finds duplicate files by content digest, scores which copy
// of each group to keep, and deletes the rest with backups and rollback
// recording.
package dupes

import (
	"context"
	"fmt"
	"sort"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/hasher"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/logging"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

var logger = logging.Get("dupes")

// Strategy selects which member of a duplicate group to recommend keeping.
type Strategy string

const (
	// StrategyNewest keeps the most recently modified copy.
	StrategyNewest Strategy = "newest"
	// StrategyOldest keeps the least recently modified copy.
	StrategyOldest Strategy = "oldest"
	// StrategyBestLocation keeps the copy in the most purposeful-looking
	// directory, penalizing temp and download folders.
	StrategyBestLocation Strategy = "best_location"
	// StrategyBestName keeps the copy with the cleanest filename,
	// penalizing "copy" and numeric suffixes.
	StrategyBestName Strategy = "best_name"
)

// ParseStrategy parses a strategy name, defaulting to newest for "".
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyNewest:
		return StrategyNewest, nil
	case StrategyOldest, StrategyBestLocation, StrategyBestName:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown retention strategy %q", s)
	}
}

// Finder groups files by content digest. It is safe for concurrent use.
type Finder struct {
	hasher *hasher.Hasher
}

// NewFinder creates a Finder using the given hasher.
func NewFinder(h *hasher.Hasher) *Finder {
	return &Finder{hasher: h}
}

// FindWithScoring groups the files into duplicate groups and scores each
// group's members under the given strategy. Files with distinct sizes are
// never hashed (they cannot be duplicates), zero-size files are ignored,
// and groups of one are not reported. Hashing failures are skipped with a
// log record; they never abort the search.
func (f *Finder) FindWithScoring(ctx context.Context, files []types.FileEntry, strategy Strategy) ([]types.DuplicateGroup, error) {
	strategy, err := ParseStrategy(string(strategy))
	if err != nil {
		return nil, err
	}

	// Cheap pre-filter: only sizes that occur more than once can hold
	// duplicates.
	bySize := make(map[int64][]types.FileEntry)
	for _, file := range files {
		if file.Size == 0 {
			continue
		}
		bySize[file.Size] = append(bySize[file.Size], file)
	}

	var candidates []types.FileEntry
	for _, group := range bySize {
		if len(group) > 1 {
			candidates = append(candidates, group...)
		}
	}
	logger.Debug("duplicate candidates after size filter",
		"files", len(files), "candidates", len(candidates))

	// Grouping requires equal size AND equal digest.
	type groupKey struct {
		size   int64
		digest string
	}
	byContent := make(map[groupKey][]types.FileEntry)
	for _, r := range f.hasher.DigestAll(ctx, candidates) {
		if r.Err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("skipping unhashable file", "path", r.Entry.Path, "error", r.Err)
			continue
		}
		key := groupKey{size: r.Entry.Size, digest: r.Digest}
		byContent[key] = append(byContent[key], r.Entry)
	}

	var groups []types.DuplicateGroup
	for key, members := range byContent {
		if len(members) < 2 {
			continue
		}
		sortMembers(members)
		groups = append(groups, types.DuplicateGroup{
			Digest:          key.digest,
			Files:           members,
			RecommendedKeep: recommendKeep(members, strategy),
			WastedBytes:     key.size * int64(len(members)-1),
		})
	}

	// Largest waste first; deterministic output.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].WastedBytes != groups[j].WastedBytes {
			return groups[i].WastedBytes > groups[j].WastedBytes
		}
		return groups[i].Digest < groups[j].Digest
	})

	return groups, nil
}

// sortMembers orders group members deterministically: shorter path first,
// then lexicographic.
func sortMembers(members []types.FileEntry) {
	sort.Slice(members, func(i, j int) bool {
		if len(members[i].Path) != len(members[j].Path) {
			return len(members[i].Path) < len(members[j].Path)
		}
		return members[i].Path < members[j].Path
	})
}

// recommendKeep returns the path of the highest-scored member. Members are
// pre-sorted, so on a score tie the shorter, lexically earlier path wins.
func recommendKeep(members []types.FileEntry, strategy Strategy) string {
	best := 0
	bestScore := score(members[0], strategy)
	for i := 1; i < len(members); i++ {
		if s := score(members[i], strategy); s > bestScore {
			best, bestScore = i, s
		}
	}
	return members[best].Path
}
