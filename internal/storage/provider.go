// Package storage is the file-system abstraction for the import inbox.
package storage

// FileMeta describes one Markdown file. List fills it from a stat, without
// reading the content.
type FileMeta struct {
	Path string
	Size int64
}

// Provider is the interface for inbox file operations. Every path is
// relative to the provider root and may not escape it.
type Provider interface {
	// List returns metadata for every .md file directly inside dir.
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
	// Exists reports whether path exists.
	Exists(path string) bool
	// Root returns the absolute inbox directory.
	Root() string
}
