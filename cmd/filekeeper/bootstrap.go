package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mwhitney/filekeeper/pkg/filekeeper/config"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/hashcache"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/hasher"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/hostid"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/integrity"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/manifest"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/output"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/pathval"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/rules"
	"github.com/mwhitney/filekeeper/pkg/filekeeper/types"
)

// buildValidator constructs the path validator from the effective
// configuration. Every path the engine touches goes through it.
func buildValidator() (*pathval.Validator, error) {
	mode, err := pathval.ParseMode(viper.GetString("validation.mode"))
	if err != nil {
		return nil, err
	}

	var opts []pathval.Option
	if roots := viper.GetStringSlice("validation.allowed_roots"); len(roots) > 0 {
		expanded := make([]string, len(roots))
		for i, root := range roots {
			if expanded[i], err = config.ExpandPath(root); err != nil {
				return nil, err
			}
		}
		opts = append(opts, pathval.WithAllowedRoots(expanded...))
	}

	return pathval.New(mode, opts...)
}

// buildStore opens the manifest store at the configured directory.
func buildStore() (*manifest.Store, error) {
	dir := viper.GetString("manifest.path")
	if dir == "" {
		dir = filepath.Join(config.DataDir(), "manifests")
	} else {
		var err error
		if dir, err = config.ExpandPath(dir); err != nil {
			return nil, err
		}
	}
	return manifest.NewStore(dir)
}

// buildIntegrity constructs the manifest integrity service bound to this
// machine's identity.
func buildIntegrity() *integrity.Service {
	return integrity.NewService(integrity.NewMachineKeyProvider(hostid.Collect()))
}

// buildHasher constructs the content hasher, with the digest cache when it
// can be opened. A cache failure degrades to uncached hashing, in which
// case the returned cache is nil.
func buildHasher() (*hasher.Hasher, *hashcache.Cache, func(), error) {
	opts := []hasher.Option{
		hasher.WithConcurrency(viper.GetInt("hash.concurrency")),
	}

	if sizeStr := viper.GetString("hash.max_file_size"); sizeStr != "" {
		maxSize, err := types.ParseSize(sizeStr)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid hash.max_file_size: %w", err)
		}
		opts = append(opts, hasher.WithMaxFileSize(maxSize))
	}

	var cache *hashcache.Cache
	cleanup := func() {}
	cacheDir := viper.GetString("hash.cache_path")
	if cacheDir == "" {
		cacheDir = filepath.Join(config.CacheDir(), "digests")
	}
	if c, err := hashcache.Open(cacheDir); err != nil {
		printVerbose("digest cache unavailable, hashing without cache: %v", err)
	} else {
		cache = c
		opts = append(opts, hasher.WithCache(cache))
		cleanup = func() { _ = cache.Close() }
	}

	return hasher.New(opts...), cache, cleanup, nil
}

// buildCategorizer constructs the categorizer with any custom rules from
// the "rules" config section layered over the built-in extension table.
func buildCategorizer() (*rules.Categorizer, error) {
	var specs []rules.Spec
	if err := viper.UnmarshalKey("rules", &specs); err != nil {
		return nil, fmt.Errorf("invalid rules configuration: %w", err)
	}
	custom, err := rules.FromSpecs(specs)
	if err != nil {
		return nil, err
	}
	return rules.NewCategorizer(custom...), nil
}

// getFormatter returns the output formatter selected by -o.
func getFormatter() (output.Formatter, error) {
	return output.Get(viper.GetString("output"))
}
