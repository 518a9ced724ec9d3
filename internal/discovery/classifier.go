package discovery

import (
	"path/filepath"
	"strings"

	"github.com/cybertec-postgresql/pgsplit/internal/source"
)

// ClassifyPath determines where a location is read from
func ClassifyPath(path string) FileKind {
	switch source.DetectScheme(path) {
	case source.SchemeStdio:
		return FileKindStdin
	case source.SchemeHTTP, source.SchemeHTTPS:
		return FileKindHTTP
	case source.SchemeS3:
		return FileKindS3
	default:
		return FileKindLocal
	}
}

// IsSQLFile returns true if the file name has a .sql extension
func IsSQLFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".sql")
}
