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
	"net/http"
	"testing"
)

// testPartition materializes a partition object whose NIC manager points at
// the fake HMC, without any network call.
func testPartition(t *testing.T, f *fakeHMC) *Partition {
	t.Helper()
	client := NewClient(f.session(t))
	cpc, err := client.Cpcs.ResourceObject("/api/cpcs/1", Properties{"name": "CPC1"})
	if err != nil {
		t.Fatalf("cpc resource object: %v", err)
	}
	p, err := cpc.Partitions.ResourceObject("/api/partitions/1", Properties{"name": "PART1"})
	if err != nil {
		t.Fatalf("partition resource object: %v", err)
	}
	return p
}

func serveNics(f *fakeHMC, nics ...map[string]any) {
	f.handle(http.MethodGet, "/api/partitions/1/nics", func(w http.ResponseWriter, r *http.Request) {
		items := make([]any, len(nics))
		for i, n := range nics {
			items[i] = n
		}
		writeJSON(w, http.StatusOK, map[string]any{"nics": items})
	})
}

func nicProps(id, name string, extra map[string]any) map[string]any {
	props := map[string]any{
		"element-uri": "/api/partitions/1/nics/" + id,
		"element-id":  id,
		"name":        name,
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

func TestMatchFilterAnchoring(t *testing.T) {
	props := func(name string) Properties { return Properties{"name": name} }
	cases := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"foo", "^foo$", true},
		{"foobar", "^foo$", false},
		{"foo", ".+", true},
		{"bar", ".+", true},
		{"foobar", "foo.*", true},
		{"barfoo", "foo.*", false}, // match is anchored at the start
		{"foo", "o", false},
	}
	for _, c := range cases {
		got, err := matchFilter(props(c.name), Filter{"name": c.pattern}, false, "name")
		if err != nil {
			t.Fatalf("matchFilter(%q, %q): %v", c.name, c.pattern, err)
		}
		if got != c.want {
			t.Fatalf("matchFilter(%q, %q) = %v, want %v", c.name, c.pattern, got, c.want)
		}
	}
}

func TestMatchFilterListsAndScalars(t *testing.T) {
	props := Properties{"name": "p1", "status": "active", "si": float64(3)}

	// List values match if any element matches.
	got, err := matchFilter(props, Filter{"status": []string{"stopped", "active"}}, false, "name")
	if err != nil || !got {
		t.Fatalf("list filter = %v, %v", got, err)
	}
	// Non-string values require equality, tolerating int vs float64.
	got, err = matchFilter(props, Filter{"si": 3}, false, "name")
	if err != nil || !got {
		t.Fatalf("numeric filter = %v, %v", got, err)
	}
	got, err = matchFilter(props, Filter{"si": 4}, false, "name")
	if err != nil || got {
		t.Fatalf("numeric mismatch = %v, %v", got, err)
	}
	// A property missing from the bag never matches.
	got, err = matchFilter(props, Filter{"type": "osd"}, false, "name")
	if err != nil || got {
		t.Fatalf("missing prop = %v, %v", got, err)
	}
}

func TestMatchFilterCaseInsensitiveName(t *testing.T) {
	props := Properties{"name": "Operator"}
	got, err := matchFilter(props, Filter{"name": "^operator$"}, true, "name")
	if err != nil || !got {
		t.Fatalf("case-insensitive name match = %v, %v", got, err)
	}
	got, err = matchFilter(props, Filter{"name": "^operator$"}, false, "name")
	if err != nil || got {
		t.Fatalf("case-sensitive name match = %v, %v", got, err)
	}
}

func TestManagerListClientFilter(t *testing.T) {
	f := newFakeHMC(t)
	serveNics(f,
		nicProps("1", "foo", nil),
		nicProps("2", "foobar", nil),
		nicProps("3", "bar", nil),
	)
	p := testPartition(t, f)
	ctx := context.Background()

	cases := []struct {
		pattern string
		want    int
	}{
		{"^foo$", 1},
		{".+", 3},
		{"foo.*", 2},
	}
	for _, c := range cases {
		nics, err := p.Nics.List(ctx, ListOptions{Filter: Filter{"name": c.pattern}})
		if err != nil {
			t.Fatalf("list with %q: %v", c.pattern, err)
		}
		if len(nics) != c.want {
			t.Fatalf("list with %q = %d results, want %d", c.pattern, len(nics), c.want)
		}
	}
}

func TestManagerListIdentityProperties(t *testing.T) {
	f := newFakeHMC(t)
	serveNics(f, nicProps("1", "foo", nil))
	p := testPartition(t, f)

	nics, err := p.Nics.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	n := nics[0]
	props := n.Properties()
	if props["element-uri"] != n.URI() {
		t.Fatalf("uri prop %v != URI %q", props["element-uri"], n.URI())
	}
	if props["name"] != n.Name() {
		t.Fatalf("name prop %v != Name %q", props["name"], n.Name())
	}
	if props["class"] != "nic" || n.ClassName() != "nic" {
		t.Fatalf("class = %v / %q", props["class"], n.ClassName())
	}
	if props["parent"] != p.URI() {
		t.Fatalf("parent = %v", props["parent"])
	}
}

func TestManagerFindCardinality(t *testing.T) {
	f := newFakeHMC(t)
	serveNics(f,
		nicProps("1", "a", map[string]any{"type": "osd"}),
		nicProps("2", "b", map[string]any{"type": "osd"}),
	)
	p := testPartition(t, f)
	ctx := context.Background()

	_, err := p.Nics.Find(ctx, Filter{"type": "^iqd$"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("find zero = %v, want NotFoundError", err)
	}

	_, err = p.Nics.Find(ctx, Filter{"type": "^osd$"})
	var num *NoUniqueMatchError
	if !errors.As(err, &num) {
		t.Fatalf("find two = %v, want NoUniqueMatchError", err)
	}
	if len(num.URIs) != 2 {
		t.Fatalf("NoUniqueMatch URIs = %v", num.URIs)
	}

	n, err := p.Nics.Find(ctx, Filter{"name": "^a$"})
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if n.Name() != "a" {
		t.Fatalf("found %q", n.Name())
	}
}

func TestManagerFindByNameUsesCache(t *testing.T) {
	f := newFakeHMC(t)
	serveNics(f,
		nicProps("1", "a", nil),
		nicProps("2", "b", nil),
	)
	p := testPartition(t, f)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		for _, name := range []string{"a", "b"} {
			n, err := p.Nics.FindByName(ctx, name)
			if err != nil {
				t.Fatalf("find-by-name %q: %v", name, err)
			}
			if n.Name() != name {
				t.Fatalf("found %q, want %q", n.Name(), name)
			}
		}
	}
	if got := f.requestCount(http.MethodGet, "/api/partitions/1/nics"); got != 1 {
		t.Fatalf("list count = %d, want 1 for any number of lookups in one TTL window", got)
	}

	_, err := p.Nics.FindByName(ctx, "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("find-by-name missing = %v, want NotFoundError", err)
	}
}

func TestManagerResourceObject(t *testing.T) {
	f := newFakeHMC(t)
	p := testPartition(t, f)

	// From a bare element id.
	n, err := p.Nics.ResourceObject("9", Properties{"name": "eth0"})
	if err != nil {
		t.Fatalf("resource object: %v", err)
	}
	if n.URI() != "/api/partitions/1/nics/9" {
		t.Fatalf("URI = %q", n.URI())
	}
	props := n.Properties()
	if props["element-id"] != "9" || props["class"] != "nic" || props["parent"] != p.URI() {
		t.Fatalf("identity props = %v", props)
	}

	// Conflicting identity properties are rejected.
	_, err = p.Nics.ResourceObject("/api/partitions/1/nics/9", Properties{"element-id": "8"})
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("conflict = %v, want ConsistencyError", err)
	}
}

func TestManagerServerSideFilter(t *testing.T) {
	f := newFakeHMC(t)
	var gotName string
	f.handle(http.MethodGet, "/api/cpcs/1/partitions", func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		writeJSON(w, http.StatusOK, map[string]any{"partitions": []any{
			map[string]any{"object-uri": "/api/partitions/1", "name": "P1", "status": "active"},
		}})
	})
	client := NewClient(f.session(t))
	cpc, err := client.Cpcs.ResourceObject("/api/cpcs/1", nil)
	if err != nil {
		t.Fatalf("cpc resource object: %v", err)
	}

	ps, err := cpc.Partitions.List(context.Background(), ListOptions{Filter: Filter{"name": "P1"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotName != "P1" {
		t.Fatalf("name query parameter = %q, want P1", gotName)
	}
	if len(ps) != 1 {
		t.Fatalf("results = %d", len(ps))
	}
}

func TestManagerAdditionalPropertiesUnsupported(t *testing.T) {
	f := newFakeHMC(t)
	p := testPartition(t, f)

	_, err := p.Nics.List(context.Background(), ListOptions{AdditionalProperties: []string{"type"}})
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want ConsistencyError", err)
	}
}
