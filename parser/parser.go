package parser

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mihiraki/models"
)

// NumberedPages lists the raster images in rootDir that carry a page key,
// sorted ascending by that key. Files with a raster extension but no digits
// in their name are returned in skipped so the caller can log them.
func NumberedPages(rootDir string) (pages []models.PageFile, skipped []string, err error) {
	expandedPath, err := ExpandPath(rootDir)
	if err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(expandedPath)
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)
		if !IsRasterExt(ext) {
			continue
		}

		key := ExtractPageKey(name)
		if key == NoKey {
			skipped = append(skipped, name)
			continue
		}

		pages = append(pages, models.PageFile{
			Path:       filepath.Join(expandedPath, name),
			Name:       name,
			Ext:        ext,
			PageNumber: key,
		})
	}

	// Stable so equal keys keep directory (lexical) order
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})

	return pages, skipped, nil
}

// ExpandPath expands ~ to the user's home directory, or returns the path as-is
func ExpandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
