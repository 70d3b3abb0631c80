package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// MigrationsDir can be overridden in tests or by the application
	MigrationsDir = "scripts/migrations"
)

// GetSchema returns the concatenated schema: every .sql file under the
// migrations directory, applied in lexical order. The directory is resolved
// relative to the working directory, with fallbacks for tests run from
// package directories.
func GetSchema() (string, error) {
	searchDirs := []string{
		MigrationsDir,
		filepath.Join("..", "..", MigrationsDir),
		filepath.Join("..", MigrationsDir),
	}

	for _, dir := range searchDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var files []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
				continue
			}
			files = append(files, entry.Name())
		}
		if len(files) == 0 {
			continue
		}
		sort.Strings(files)

		var sb strings.Builder
		for _, name := range files {
			content, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 - listed from the migrations dir above
			if err != nil {
				return "", fmt.Errorf("failed to read migration %s: %w", name, err)
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		return sb.String(), nil
	}

	return "", fmt.Errorf("no migration files found under %s", MigrationsDir)
}
