package live

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	// Frame decoders for DirectorySource.
	_ "image/jpeg"
	_ "image/png"
)

// FrameSource produces the frames the loop consumes, one at a time.
type FrameSource interface {
	// Next returns the next frame, or io.EOF once the source is drained.
	Next(ctx context.Context) (image.Image, error)
}

// DirectorySource replays image files from a directory in name order. It
// stands in for a camera when enrolling or recognizing from recorded
// frames.
type DirectorySource struct {
	dir   string
	files []string
	pos   int
}

// NewDirectorySource lists the frame files under dir. Files that are not
// PNG or JPEG by extension are ignored.
func NewDirectorySource(dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	return &DirectorySource{dir: dir, files: files}, nil
}

// Len returns the number of frames the source will produce.
func (s *DirectorySource) Len() int {
	return len(s.files)
}

func (s *DirectorySource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.files) {
		return nil, io.EOF
	}

	name := s.files[s.pos]
	s.pos++

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open frame %s: %w", name, err)
	}
	defer f.Close()

	frame, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", name, err)
	}
	return frame, nil
}
