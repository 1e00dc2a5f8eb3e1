package timeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source is the resolved byte source for one sourceRef. Exactly one of Path
// or Data is set: Path when the media already lives on disk, Data when the
// collaborator hands over in-memory bytes.
type Source struct {
	Path string
	Data []byte
}

// Empty reports whether the source carries neither a path nor bytes.
func (s Source) Empty() bool {
	return s.Path == "" && len(s.Data) == 0
}

// Resolver maps a sourceRef onto media bytes. Implementations are supplied by
// the editing collaborator; the pipeline never fetches media itself.
type Resolver interface {
	Resolve(ctx context.Context, sourceRef string) (Source, error)
}

// DirResolver resolves sourceRefs as file names under a root directory. It is
// the default resolver for CLI-driven exports where the project file refers
// to media relative to itself.
type DirResolver struct {
	Root string
}

// Resolve returns the on-disk path for ref, rejecting escapes from the root.
func (r DirResolver) Resolve(_ context.Context, sourceRef string) (Source, error) {
	sourceRef = strings.TrimSpace(sourceRef)
	if sourceRef == "" {
		return Source{}, fmt.Errorf("resolve source: empty source ref")
	}
	path := sourceRef
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, path)
	}
	cleaned := filepath.Clean(path)
	if r.Root != "" && !filepath.IsAbs(sourceRef) {
		rel, err := filepath.Rel(r.Root, cleaned)
		if err != nil || strings.HasPrefix(rel, "..") {
			return Source{}, fmt.Errorf("resolve source %q: escapes media root", sourceRef)
		}
	}
	if _, err := os.Stat(cleaned); err != nil {
		return Source{}, fmt.Errorf("resolve source %q: %w", sourceRef, err)
	}
	return Source{Path: cleaned}, nil
}
