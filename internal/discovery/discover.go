package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cybertec-postgresql/pgsplit/internal/errors"
	"github.com/cybertec-postgresql/pgsplit/internal/logger"
	"github.com/cybertec-postgresql/pgsplit/internal/source"
)

// Discover recursively finds all SQL files in the given directory, sorted by
// relative path so that numbered migrations run in order
func Discover(rootPath string) ([]DiscoveredFile, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Check if directory exists
	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", absRoot)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	var files []DiscoveredFile

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Skip directories we can't access
			if os.IsPermission(err) {
				logger.Warnf("skipping %s: %v", path, err)
				return nil
			}
			return err
		}

		if info.IsDir() || !IsSQLFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		files = append(files, DiscoveredFile{
			Path:         path,
			RelativePath: filepath.ToSlash(relPath),
			Kind:         FileKindLocal,
			ModTime:      info.ModTime(),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	slices.SortFunc(files, func(a, b DiscoveredFile) int {
		return strings.Compare(a.RelativePath, b.RelativePath)
	})
	return files, nil
}

/*
 * Resolve turns command-line inputs into the list of scripts to process, in
 * the order given.  Directories and s3:// prefixes expand to the *.sql files
 * below them; "-" reads stdin and may appear once.  A location that appears
 * more than once is processed once.
 */
func Resolve(ctx context.Context, inputs []string, cfg *source.Config) ([]DiscoveredFile, error) {
	var files []DiscoveredFile
	seen := make(map[string]bool)
	add := func(f DiscoveredFile) {
		if !seen[f.Path] {
			seen[f.Path] = true
			files = append(files, f)
		}
	}

	for _, input := range inputs {
		switch kind := ClassifyPath(input); kind {
		case FileKindStdin:
			add(DiscoveredFile{Path: source.Stdio, RelativePath: "<stdin>", Kind: kind})

		case FileKindHTTP:
			add(DiscoveredFile{Path: input, RelativePath: input, Kind: kind})

		case FileKindS3:
			if !source.IsS3Prefix(input) {
				add(DiscoveredFile{Path: input, RelativePath: input, Kind: kind})
				continue
			}
			urls, err := source.ListS3(ctx, input, ".sql", cfg)
			if err != nil {
				return nil, errors.NewSourceError(input, err)
			}
			if len(urls) == 0 {
				logger.Warnf("no .sql objects under %s", input)
			}
			for _, u := range urls {
				add(DiscoveredFile{Path: u, RelativePath: u, Kind: kind})
			}

		default:
			local, err := resolveLocal(source.LocalPath(input))
			if err != nil {
				return nil, errors.NewSourceError(input, err)
			}
			if len(local) == 0 {
				logger.Warnf("no .sql files found in %s", input)
			}
			for _, f := range local {
				add(f)
			}
		}
	}
	return files, nil
}

// resolveLocal expands a local path to the file itself or the SQL files of a directory
func resolveLocal(path string) ([]DiscoveredFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		files, err := Discover(path)
		if err != nil {
			return nil, err
		}
		// Report directory entries relative to what the user typed
		for i := range files {
			files[i].RelativePath = filepath.ToSlash(filepath.Join(path, files[i].RelativePath))
		}
		return files, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return []DiscoveredFile{{
		Path:         abs,
		RelativePath: filepath.ToSlash(path),
		Kind:         FileKindLocal,
		ModTime:      info.ModTime(),
	}}, nil
}
