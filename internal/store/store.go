// Package store implements the append-only sample store backing enrollment
// and training. Samples live in one directory per person, one PNG per
// sample, written at capture time; the directory tree is the only
// persistence, so reopening the store re-derives people and counts from
// disk.
package store

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-station/internal/imgproc"
)

// Sample is one normalized grayscale face sample owned by exactly one person.
// Immutable once written.
type Sample struct {
	Person    string
	Seq       int
	SessionID string
	At        time.Time
	Image     *image.Gray
}

// personRecord keeps one person's samples in capture order.
type personRecord struct {
	name    string
	samples []Sample
	nextSeq int
}

// sampleRef locates a session's sample for the discard path.
type sampleRef struct {
	person string
	seq    int
	path   string
}

// Store is the append-only sample store. It tolerates one writer and one
// concurrent reader; samples are immutable once appended, so a mutex around
// the bookkeeping maps is all the synchronization appends need.
type Store struct {
	mu       sync.RWMutex
	dir      string
	people   map[string]*personRecord
	sessions map[string][]sampleRef
}

// Open opens the sample store rooted at dir, creating the directory when
// missing and loading any samples already on disk.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		people:   make(map[string]*personRecord),
		sessions: make(map[string][]sampleRef),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// load scans the directory tree: one subdirectory per person, PNG files in
// sequence order.
func (s *Store) load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read sample directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		person := entry.Name()

		files, err := os.ReadDir(filepath.Join(s.dir, person))
		if err != nil {
			return fmt.Errorf("failed to read person directory %s: %w", person, err)
		}

		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".png") {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)

		rec := &personRecord{name: person, nextSeq: 1}
		for _, name := range names {
			path := filepath.Join(s.dir, person, name)
			data, err := os.ReadFile(path) //nolint:gosec // path built from scanned entries
			if err != nil {
				return fmt.Errorf("failed to read sample %s: %w", path, err)
			}
			img, err := imgproc.DecodeGray(data)
			if err != nil {
				return fmt.Errorf("failed to decode sample %s: %w", path, err)
			}

			seq := parseSeq(name, len(rec.samples)+1)
			rec.samples = append(rec.samples, Sample{
				Person: person,
				Seq:    seq,
				At:     entryModTime(files, name),
				Image:  img,
			})
			rec.nextSeq = max(rec.nextSeq, seq+1)
		}
		if len(rec.samples) > 0 {
			s.people[person] = rec
		}
	}

	return nil
}

// parseSeq recovers the sequence number from a sample file name such as
// "0042.png". Sequence numbers survive restarts so a discarded sample can
// never cause a later capture to overwrite an existing file.
func parseSeq(name string, fallback int) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	seq, err := strconv.Atoi(base)
	if err != nil || seq < 1 {
		return fallback
	}
	return seq
}

// entryModTime finds the modification time for a directory entry by name.
func entryModTime(files []os.DirEntry, name string) time.Time {
	for _, e := range files {
		if e.Name() == name {
			if info, err := e.Info(); err == nil {
				return info.ModTime()
			}
		}
	}
	return time.Time{}
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Add appends a sample for a person, creating the person on first use.
// The person name must already be canonical (see CanonicalName). The sample
// is written to disk before it becomes visible to readers.
func (s *Store) Add(person, sessionID string, img *image.Gray, at time.Time) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.people[person]
	if !ok {
		if err := os.MkdirAll(filepath.Join(s.dir, person), 0750); err != nil {
			return Sample{}, fmt.Errorf("failed to create person directory: %w", err)
		}
		rec = &personRecord{name: person, nextSeq: 1}
		s.people[person] = rec
	}

	seq := rec.nextSeq
	path := filepath.Join(s.dir, person, fmt.Sprintf("%04d.png", seq))

	data, err := imgproc.EncodePNG(img)
	if err != nil {
		return Sample{}, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return Sample{}, fmt.Errorf("failed to write sample: %w", err)
	}

	sample := Sample{
		Person:    person,
		Seq:       seq,
		SessionID: sessionID,
		At:        at,
		Image:     img,
	}
	rec.samples = append(rec.samples, sample)
	rec.nextSeq++

	if sessionID != "" {
		s.sessions[sessionID] = append(s.sessions[sessionID], sampleRef{
			person: person,
			seq:    seq,
			path:   path,
		})
	}

	return sample, nil
}

// People returns the distinct person names, lexicographically sorted.
// This ordering is the sole source of label determinism at training time.
func (s *Store) People() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.people))
	for name := range s.people {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Samples returns one person's samples in capture order.
func (s *Store) Samples(person string) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.people[person]
	if !ok {
		return nil
	}
	out := make([]Sample, len(rec.samples))
	copy(out, rec.samples)
	return out
}

// All returns every sample ordered by person name, then capture order.
func (s *Store) All() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.people))
	for name := range s.people {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Sample
	for _, name := range names {
		out = append(out, s.people[name].samples...)
	}
	return out
}

// Count returns the number of samples stored for a person.
func (s *Store) Count(person string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.people[person]
	if !ok {
		return 0
	}
	return len(rec.samples)
}

// TotalSamples returns the number of samples across all people.
func (s *Store) TotalSamples() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, rec := range s.people {
		total += len(rec.samples)
	}
	return total
}

// DiscardSession removes exactly the samples appended under one capture
// session, on disk and in memory. A person whose samples all came from the
// discarded session is removed entirely. Samples from other sessions are
// never touched.
func (s *Store) DiscardSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	if len(refs) == 0 {
		return nil
	}

	discard := make(map[string]map[int]bool)
	for _, ref := range refs {
		if discard[ref.person] == nil {
			discard[ref.person] = make(map[int]bool)
		}
		discard[ref.person][ref.seq] = true
		if err := os.Remove(ref.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove session sample: %w", err)
		}
	}

	for person, seqs := range discard {
		rec, ok := s.people[person]
		if !ok {
			continue
		}
		kept := rec.samples[:0]
		for _, sample := range rec.samples {
			if !seqs[sample.Seq] {
				kept = append(kept, sample)
			}
		}
		rec.samples = kept

		if len(rec.samples) == 0 {
			delete(s.people, person)
			// Best-effort cleanup; an empty directory is harmless.
			_ = os.Remove(filepath.Join(s.dir, person))
		}
	}

	return nil
}

// SessionCount returns the number of samples recorded under a session.
func (s *Store) SessionCount(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[sessionID])
}
