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
	"strings"
	"sync"
	"time"
)

// errNameNotInCache is internal; managers translate it into NotFoundError.
var errNameNotInCache = errors.New("name not in cache")

// nameURICache maps resource names to URIs for one manager. A population
// lists all entries with minimal properties, so any number of lookups within
// one TTL window costs at most one list call.
type nameURICache struct {
	mu              sync.Mutex
	ttl             time.Duration
	caseInsensitive bool
	uris            map[string]string
	refreshed       time.Time
	// listAll fetches the full name-to-URI mapping from the HMC.
	listAll func(ctx context.Context) (map[string]string, error)
}

func newNameURICache(ttl time.Duration, caseInsensitive bool, listAll func(ctx context.Context) (map[string]string, error)) *nameURICache {
	return &nameURICache{
		ttl:             ttl,
		caseInsensitive: caseInsensitive,
		uris:            make(map[string]string),
		listAll:         listAll,
	}
}

func (c *nameURICache) key(name string) string {
	if c.caseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Get returns the URI for name, repopulating the cache if the entry is
// absent or the TTL has expired.
func (c *nameURICache) Get(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.key(name)
	if time.Since(c.refreshed) < c.ttl {
		if uri, ok := c.uris[key]; ok {
			return uri, nil
		}
		// Within the TTL window a miss is authoritative: creates done
		// through this manager update the cache directly, and one list
		// per window is the contract.
		return "", errNameNotInCache
	}
	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	if uri, ok := c.uris[key]; ok {
		return uri, nil
	}
	return "", errNameNotInCache
}

// Invalidate empties the cache.
func (c *nameURICache) Invalidate() {
	c.mu.Lock()
	c.uris = make(map[string]string)
	c.refreshed = time.Time{}
	c.mu.Unlock()
}

// Refresh empties and repopulates the cache.
func (c *nameURICache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *nameURICache) refreshLocked(ctx context.Context) error {
	entries, err := c.listAll(ctx)
	if err != nil {
		return err
	}
	c.uris = make(map[string]string, len(entries))
	for name, uri := range entries {
		if name == "" {
			continue
		}
		c.uris[c.key(name)] = uri
	}
	c.refreshed = time.Now()
	return nil
}

// Delete removes the entry for name if present.
func (c *nameURICache) Delete(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	delete(c.uris, c.key(name))
	c.mu.Unlock()
}

// Update inserts or replaces the entry for name. Empty names are ignored.
func (c *nameURICache) Update(name, uri string) {
	if name == "" || uri == "" {
		return
	}
	c.mu.Lock()
	c.uris[c.key(name)] = uri
	c.mu.Unlock()
}
