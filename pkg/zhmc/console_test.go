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
	"time"
)

func serveConsole(f *fakeHMC) {
	f.handle(http.MethodGet, "/api/console", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"object-uri": "/api/console", "name": "HMC1", "class": "console",
			"version": "2.16.0",
		})
	})
}

func testConsole(t *testing.T, f *fakeHMC) *Console {
	t.Helper()
	client := NewClient(f.session(t))
	c, err := client.Consoles.Console(context.Background())
	if err != nil {
		t.Fatalf("console: %v", err)
	}
	return c
}

func TestConsoleSingleton(t *testing.T) {
	f := newFakeHMC(t)
	serveConsole(f)
	client := NewClient(f.session(t))
	ctx := context.Background()

	cs, err := client.Consoles.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cs) != 1 || cs[0].URI() != "/api/console" || cs[0].Name() != "HMC1" {
		t.Fatalf("consoles = %v", cs)
	}

	// Find-by-name resolves through the same singleton.
	c, err := client.Consoles.FindByName(ctx, "HMC1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c.URI() != "/api/console" {
		t.Fatalf("URI = %q", c.URI())
	}
	_, err = client.Consoles.FindByName(ctx, "OTHER")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("find other = %v, want NotFoundError", err)
	}
}

func TestConsoleListRejectsAdditionalProperties(t *testing.T) {
	f := newFakeHMC(t)
	serveConsole(f)
	client := NewClient(f.session(t))

	_, err := client.Consoles.List(context.Background(), ListOptions{
		AdditionalProperties: []string{"ec-mcl-description"},
	})
	var cerr *ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("error = %v, want ConsistencyError", err)
	}
}

func TestConsoleGetAuditLog(t *testing.T) {
	f := newFakeHMC(t)
	serveConsole(f)
	var gotBegin, gotEnd string
	f.handle(http.MethodGet, "/api/console/operations/get-audit-log", func(w http.ResponseWriter, r *http.Request) {
		gotBegin = r.URL.Query().Get("begin-time")
		gotEnd = r.URL.Query().Get("end-time")
		writeJSON(w, http.StatusOK, map[string]any{"log-items": []any{
			map[string]any{"event-id": float64(1), "event-message": "user logged on"},
		}})
	})
	c := testConsole(t, f)

	begin := time.UnixMilli(1700000000000)
	items, err := c.GetAuditLog(context.Background(), begin, time.Time{})
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}
	if gotBegin != "1700000000000" {
		t.Fatalf("begin-time = %q", gotBegin)
	}
	if gotEnd != "" {
		t.Fatalf("end-time sent for open window: %q", gotEnd)
	}
	if len(items) != 1 || items[0]["event-message"] != "user logged on" {
		t.Fatalf("items = %v", items)
	}
}

func TestConsoleListPermittedPartitions(t *testing.T) {
	f := newFakeHMC(t)
	serveConsole(f)
	var gotName string
	f.handle(http.MethodGet, "/api/console/operations/list-permitted-partitions", func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		writeJSON(w, http.StatusOK, map[string]any{"partitions": []any{
			map[string]any{
				"object-uri": "/api/partitions/1", "name": "P1",
				"cpc-name": "CPC1", "status": "active",
			},
		}})
	})
	c := testConsole(t, f)

	parts, err := c.ListPermittedPartitions(context.Background(), Filter{"name": "P1"})
	if err != nil {
		t.Fatalf("list permitted: %v", err)
	}
	if gotName != "P1" {
		t.Fatalf("name query = %q", gotName)
	}
	if len(parts) != 1 || parts[0]["cpc-name"] != "CPC1" {
		t.Fatalf("partitions = %v", parts)
	}
}

func TestUserRoleCaseInsensitiveFind(t *testing.T) {
	f := newFakeHMC(t)
	serveConsole(f)
	f.handle(http.MethodGet, "/api/console/user-roles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user-roles": []any{
			map[string]any{"object-uri": "/api/user-roles/1", "name": "Operator Tasks"},
		}})
	})
	c := testConsole(t, f)

	role, err := c.UserRoles.FindByName(context.Background(), "operator tasks")
	if err != nil {
		t.Fatalf("find role: %v", err)
	}
	if role.URI() != "/api/user-roles/1" {
		t.Fatalf("URI = %q", role.URI())
	}
}

func TestUserAddUserRole(t *testing.T) {
	f := newFakeHMC(t)
	serveConsole(f)
	f.handle(http.MethodGet, "/api/console/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"users": []any{
			map[string]any{"object-uri": "/api/users/1", "name": "tester", "type": "standard"},
		}})
	})
	var got map[string]any
	f.handle(http.MethodPost, "/api/users/1/operations/add-user-role", func(w http.ResponseWriter, r *http.Request) {
		got = readJSON(t, r)
		w.WriteHeader(http.StatusNoContent)
	})
	c := testConsole(t, f)

	u, err := c.Users.FindByName(context.Background(), "tester")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if err := u.AddUserRole(context.Background(), "/api/user-roles/1"); err != nil {
		t.Fatalf("add role: %v", err)
	}
	if got["user-role-uri"] != "/api/user-roles/1" {
		t.Fatalf("body = %v", got)
	}
}
