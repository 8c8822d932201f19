// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package storage

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"camkeep/pkg/log"
	"camkeep/pkg/recid"
)

const gigabyte = 1_000_000_000

// DiskUsage reports the recordings tree's measured size against the
// configured maximum, in bytes.
type DiskUsage struct {
	UsedBytes int64
	Percent   float64
	MaxGB     float64
}

type diskCache struct {
	usage      DiskUsage
	lastUpdate time.Time
}

// Pruner enforces the configured on-disk retention budget for one
// recordings tree: it caches a recursive byte count and, once usage
// crosses 99% of the configured maximum, deletes the oldest
// day-partition.
type Pruner struct {
	recordingsDir  string
	maxDiskUsageGB float64

	usageFn func(string) (int64, error)

	mu    sync.Mutex
	cache *diskCache

	updateMu sync.Mutex

	log *log.Logger
}

// NewPruner returns a Pruner rooted at recordingsDir, enforcing
// maxDiskUsageGB as the retention budget.
func NewPruner(recordingsDir string, maxDiskUsageGB float64, logger *log.Logger) *Pruner {
	return &Pruner{
		recordingsDir:  recordingsDir,
		maxDiskUsageGB: maxDiskUsageGB,
		usageFn:        recursiveSize,
		log:            logger,
	}
}

// recursiveSize sums the size of every regular file under path.
func recursiveSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	return total, nil
}

// CheckCapacity compares the configured maximum against the host
// filesystem's real capacity at recordingsDir and returns a
// human-readable warning when the budget cannot possibly fit — no
// amount of pruning fixes a max_disk_usage larger than the partition
// it lives on. Returns "" when the configuration looks sane.
func (p *Pruner) CheckCapacity() (string, error) {
	stat, err := disk.Usage(p.recordingsDir)
	if err != nil {
		return "", fmt.Errorf("stat filesystem for %q: %w", p.recordingsDir, err)
	}
	maxBytes := p.maxDiskUsageGB * gigabyte
	if maxBytes > float64(stat.Total) {
		return fmt.Sprintf(
			"configured max_disk_usage (%.0f GB) exceeds filesystem capacity (%.0f GB) at %q",
			p.maxDiskUsageGB, float64(stat.Total)/gigabyte, p.recordingsDir,
		), nil
	}
	return "", nil
}

// Usage returns the cached usage if younger than maxAge; otherwise it
// acquires the update lock, rechecks (double-checked locking), and
// recomputes by walking recordingsDir.
func (p *Pruner) Usage(maxAge time.Duration) (DiskUsage, error) {
	cutoff := time.Now().Add(-maxAge)

	if u, ok := p.cached(cutoff); ok {
		return u, nil
	}

	p.updateMu.Lock()
	defer p.updateMu.Unlock()

	if u, ok := p.cached(cutoff); ok {
		return u, nil
	}

	used, err := p.usageFn(p.recordingsDir)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("calculate disk usage: %w", err)
	}

	var percent float64
	maxBytes := p.maxDiskUsageGB * gigabyte
	switch {
	case maxBytes > 0:
		percent = float64(used) * 100 / maxBytes
	case used != 0:
		percent = math.Inf(1)
	}

	usage := DiskUsage{UsedBytes: used, Percent: percent, MaxGB: p.maxDiskUsageGB}

	p.mu.Lock()
	p.cache = &diskCache{usage: usage, lastUpdate: time.Now()}
	p.mu.Unlock()

	return usage, nil
}

func (p *Pruner) cached(cutoff time.Time) (DiskUsage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cache != nil && p.cache.lastUpdate.After(cutoff) {
		return p.cache.usage, true
	}
	return DiskUsage{}, false
}

const dayPruneDepth = 3

// prune checks cached usage (tolerating up to 10 minutes of staleness);
// if it is above 99%, it deletes the oldest day-partition under
// recordingsDir, descending into the lexically smallest child at each
// of the year/month/day levels. An empty intermediate directory is
// removed and the walk restarts at the root, so chains of emptiness left
// behind by a prior prune are cleaned up in the same call.
func (p *Pruner) prune() error {
	usage, err := p.Usage(10 * time.Minute)
	if err != nil {
		return err
	}
	if usage.Percent <= 99 {
		return nil
	}

	path := p.recordingsDir
	depth := 1
	for depth <= dayPruneDepth {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("read directory %q: %w", path, err)
		}

		if len(entries) == 0 {
			if depth == 1 {
				// recordingsDir itself is empty: nothing to prune.
				return nil
			}
			if err := os.RemoveAll(path); err != nil {
				return fmt.Errorf("remove empty directory %q: %w", path, err)
			}
			path = p.recordingsDir
			depth = 1
			continue
		}

		names := dirNames(entries)
		if len(names) == 0 {
			return fmt.Errorf("%w: %q contains no directories", errUnexpectedFile, path)
		}
		sort.Strings(names)
		path = filepath.Join(path, names[0])
		depth++
	}

	if p.log != nil {
		p.log.Info().Msgf("pruning storage: deleting %v", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove directory %q: %w", path, err)
	}
	return nil
}

// PruneLoop runs prune on a fixed interval until ctx is cancelled. After
// every successful prune, afterPrune is invoked so a caller can couple
// other retention (e.g. the event database) to whatever recording ended
// up being the oldest survivor; afterPrune may be nil.
func (p *Pruner) PruneLoop(ctx context.Context, interval time.Duration, afterPrune func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if err := p.prune(); err != nil {
				if p.log != nil {
					p.log.Error().Msgf("could not prune storage: %v", err)
				}
				continue
			}
			if afterPrune != nil {
				afterPrune()
			}
		}
	}
}

var errUnexpectedFile = fmt.Errorf("unexpected file where a directory was expected")

func dirNames(entries []os.DirEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// OldestRecording returns the timestamp of the chronologically first
// surviving recording under recordingsDir, descending the same
// lexically-smallest-child path prune uses. Couples event-database
// retention to recording retention: the top-level retention loop prunes
// storage, then prunes the event database up to whatever this returns.
func OldestRecording(recordingsDir string) (recid.UnixNano, bool, error) {
	path := recordingsDir
	for i := 0; i < dayPruneDepth; i++ {
		entries, err := os.ReadDir(path)
		if err != nil {
			if os.IsNotExist(err) {
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("read directory %q: %w", path, err)
		}
		names := dirNames(entries)
		if len(names) == 0 {
			return 0, false, nil
		}
		sort.Strings(names)
		path = filepath.Join(path, names[0])
	}

	monitorEntries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read directory %q: %w", path, err)
	}

	var smallest string
	for _, m := range monitorEntries {
		if !m.IsDir() {
			continue
		}
		recEntries, err := os.ReadDir(filepath.Join(path, m.Name()))
		if err != nil {
			continue
		}
		for _, r := range recEntries {
			if !r.IsDir() {
				continue
			}
			if smallest == "" || r.Name() < smallest {
				smallest = r.Name()
			}
		}
	}
	if smallest == "" {
		return 0, false, nil
	}

	id, err := recid.ParseRecordingID(smallest)
	if err != nil {
		return 0, false, fmt.Errorf("parse recording id %q: %w", smallest, err)
	}
	return id.Nanos(), true, nil
}
