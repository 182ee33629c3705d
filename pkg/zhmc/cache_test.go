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
	"context"
	"errors"
	"testing"
	"time"
)

func TestNameURICacheSingleListPerWindow(t *testing.T) {
	lists := 0
	c := newNameURICache(time.Minute, false, func(ctx context.Context) (map[string]string, error) {
		lists++
		return map[string]string{"a": "/api/x/1", "b": "/api/x/2"}, nil
	})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := c.Get(ctx, "a"); err != nil {
			t.Fatalf("get a: %v", err)
		}
		if _, err := c.Get(ctx, "b"); err != nil {
			t.Fatalf("get b: %v", err)
		}
	}
	if lists != 1 {
		t.Fatalf("lists = %d, want 1", lists)
	}
	// A miss inside the window is authoritative and must not re-list.
	if _, err := c.Get(ctx, "c"); !errors.Is(err, errNameNotInCache) {
		t.Fatalf("get c: %v, want errNameNotInCache", err)
	}
	if lists != 1 {
		t.Fatalf("lists after miss = %d, want 1", lists)
	}
}

func TestNameURICacheTTLExpiry(t *testing.T) {
	lists := 0
	c := newNameURICache(20*time.Millisecond, false, func(ctx context.Context) (map[string]string, error) {
		lists++
		return map[string]string{"a": "/api/x/1"}, nil
	})
	ctx := context.Background()

	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("get: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if lists != 2 {
		t.Fatalf("lists = %d, want 2", lists)
	}
}

func TestNameURICacheInvalidateAndRefresh(t *testing.T) {
	entries := map[string]string{"a": "/api/x/1"}
	lists := 0
	c := newNameURICache(time.Minute, false, func(ctx context.Context) (map[string]string, error) {
		lists++
		out := make(map[string]string, len(entries))
		for k, v := range entries {
			out[k] = v
		}
		return out, nil
	})
	ctx := context.Background()

	if _, err := c.Get(ctx, "a"); err != nil {
		t.Fatalf("get: %v", err)
	}
	entries["b"] = "/api/x/2"
	c.Invalidate()
	if _, err := c.Get(ctx, "b"); err != nil {
		t.Fatalf("get b after invalidate: %v", err)
	}

	entries["c"] = "/api/x/3"
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if uri, err := c.Get(ctx, "c"); err != nil || uri != "/api/x/3" {
		t.Fatalf("get c = %q, %v", uri, err)
	}
	if lists != 3 {
		t.Fatalf("lists = %d, want 3", lists)
	}
}

func TestNameURICacheUpdateDelete(t *testing.T) {
	c := newNameURICache(time.Minute, false, func(ctx context.Context) (map[string]string, error) {
		return map[string]string{}, nil
	})
	ctx := context.Background()

	c.Update("p1", "/api/partitions/1")
	if uri, err := c.Get(ctx, "p1"); err != nil || uri != "/api/partitions/1" {
		t.Fatalf("get = %q, %v", uri, err)
	}
	// Empty names and URIs are never stored.
	c.Update("", "/api/partitions/2")
	c.Update("p2", "")
	if _, err := c.Get(ctx, "p2"); !errors.Is(err, errNameNotInCache) {
		t.Fatalf("empty-uri entry was stored")
	}
	c.Delete("p1")
	if _, err := c.Get(ctx, "p1"); !errors.Is(err, errNameNotInCache) {
		t.Fatalf("deleted entry still cached")
	}
}

func TestNameURICacheCaseInsensitive(t *testing.T) {
	c := newNameURICache(time.Minute, true, func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"Operator": "/api/users/1"}, nil
	})
	ctx := context.Background()

	for _, name := range []string{"operator", "OPERATOR", "Operator"} {
		if uri, err := c.Get(ctx, name); err != nil || uri != "/api/users/1" {
			t.Fatalf("get %q = %q, %v", name, uri, err)
		}
	}
}
