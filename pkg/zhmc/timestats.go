// Zhmc is a client library for the IBM Z Hardware Management Console
// Web Services API.
// Copyright (C) 2025  Matthew Burns
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package zhmc

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// TimeStats is a snapshot of the measurements for one operation.
type TimeStats struct {
	Name  string
	Count int
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Avg returns the average duration, or 0 for an empty entry.
func (s TimeStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// TimeStatsKeeper accumulates per-operation latency statistics for one
// Session. It starts disabled; while disabled, Observe is a no-op so the
// instrumentation costs nothing unless asked for. Safe for concurrent use.
type TimeStatsKeeper struct {
	mu      sync.Mutex
	enabled bool
	stats   map[string]*TimeStats
}

// NewTimeStatsKeeper creates a disabled keeper.
func NewTimeStatsKeeper() *TimeStatsKeeper {
	return &TimeStatsKeeper{stats: make(map[string]*TimeStats)}
}

// Enable turns measurement on.
func (k *TimeStatsKeeper) Enable() {
	k.mu.Lock()
	k.enabled = true
	k.mu.Unlock()
}

// Disable turns measurement off. Existing entries are kept.
func (k *TimeStatsKeeper) Disable() {
	k.mu.Lock()
	k.enabled = false
	k.mu.Unlock()
}

// Enabled reports whether the keeper measures.
func (k *TimeStatsKeeper) Enabled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enabled
}

// Observe records one measurement for the named operation.
func (k *TimeStatsKeeper) Observe(name string, d time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.enabled {
		return
	}
	s, ok := k.stats[name]
	if !ok {
		s = &TimeStats{Name: name, Min: d, Max: d}
		k.stats[name] = s
	}
	s.Count++
	s.Total += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

// Time returns a closure that records the elapsed time since the call when
// invoked. Usage: defer k.Time("GET /api/cpcs")().
func (k *TimeStatsKeeper) Time(name string) func() {
	if !k.Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		k.Observe(name, time.Since(start))
	}
}

// Snapshot returns a copy of all entries, sorted by operation name.
func (k *TimeStatsKeeper) Snapshot() []TimeStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]TimeStats, 0, len(k.stats))
	for _, s := range k.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset discards all entries. The enabled state is unchanged.
func (k *TimeStatsKeeper) Reset() {
	k.mu.Lock()
	k.stats = make(map[string]*TimeStats)
	k.mu.Unlock()
}

// String renders a printable table of the snapshot.
func (k *TimeStatsKeeper) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Time statistics (count, avg, min, max):\n")
	for _, s := range k.Snapshot() {
		fmt.Fprintf(&b, "  %5d  %10s  %10s  %10s  %s\n", s.Count, s.Avg(), s.Min, s.Max, s.Name)
	}
	return b.String()
}
