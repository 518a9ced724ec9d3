package discovery

import "time"

// DiscoveredFile represents one script to process
type DiscoveredFile struct {
	Path         string    // Location to open: absolute path, "-" or URL
	RelativePath string    // Name used in reports
	Kind         FileKind  // Where the script comes from
	ModTime      time.Time // Last modification time, local files only
}

// FileKind indicates where a script is read from
type FileKind int

const (
	FileKindLocal FileKind = iota // file on disk
	FileKindStdin                 // "-"
	FileKindHTTP                  // http:// or https:// URL
	FileKindS3                    // s3:// object
)

// String returns a string representation of FileKind
func (fk FileKind) String() string {
	switch fk {
	case FileKindLocal:
		return "local"
	case FileKindStdin:
		return "stdin"
	case FileKindHTTP:
		return "http"
	case FileKindS3:
		return "s3"
	default:
		return "unknown"
	}
}
