// Package tempstore allocates per-request scratch directories under a
// single root and guarantees their removal. Every download owns exactly
// one Scratch; no scratch directory outlives its owning request.
package tempstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// Scratch is a request-scoped temp directory. The ID partitions the
// filesystem namespace so concurrent downloads never collide.
type Scratch struct {
	ID  string
	Dir string
}

func (s *Store) NewScratch() (*Scratch, error) {
	id := uuid.New().String()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{ID: id, Dir: dir}, nil
}

// Remove deletes the scratch directory and everything in it. Safe to
// call more than once.
func (sc *Scratch) Remove() {
	if err := os.RemoveAll(sc.Dir); err != nil {
		logrus.WithField("dir", sc.Dir).Errorf("scratch cleanup failed: %v", err)
	}
}

// StartJanitor sweeps scratch directories older than maxAge on every
// tick. Handlers remove their own scratch on every exit path; the
// janitor only recovers directories orphaned by a crashed process.
// The returned func stops the janitor.
func (s *Store) StartJanitor(interval, maxAge time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.sweep(maxAge)
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}

func (s *Store) sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		logrus.Errorf("janitor: could not read temp root: %v", err)
		return
	}

	now := time.Now()
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		stale := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(stale); err != nil {
			logrus.Errorf("janitor: could not remove %s: %v", stale, err)
			continue
		}
		logrus.WithField("dir", stale).Info("janitor: cleaned up stale scratch")
	}
}
