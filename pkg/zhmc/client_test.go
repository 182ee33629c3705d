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
	"net/http"
	"testing"
)

func TestClientQueryAPIVersion(t *testing.T) {
	f := newFakeHMC(t)
	f.handle(http.MethodGet, "/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"api-major-version": 2, "api-minor-version": 40,
			"hmc-version": "2.16.0", "hmc-name": "HMC1",
		})
	})
	client := NewClient(f.session(t))

	v, err := client.QueryAPIVersion(context.Background())
	if err != nil {
		t.Fatalf("query version: %v", err)
	}
	if v.APIMajorVersion != 2 || v.APIMinorVersion != 40 {
		t.Fatalf("api version = %d.%d", v.APIMajorVersion, v.APIMinorVersion)
	}
	if v.HMCVersion != "2.16.0" || v.HMCName != "HMC1" {
		t.Fatalf("hmc = %q %q", v.HMCName, v.HMCVersion)
	}
	// The version query must not have triggered a logon.
	if f.logons() != 0 {
		t.Fatalf("logons = %d, want 0", f.logons())
	}
}

func TestClientGetInventory(t *testing.T) {
	f := newFakeHMC(t)
	var got map[string]any
	f.handle(http.MethodPost, "/api/services/inventory", func(w http.ResponseWriter, r *http.Request) {
		got = readJSON(t, r)
		writeJSON(w, http.StatusOK, []any{
			map[string]any{"class": "cpc", "object-uri": "/api/cpcs/1", "name": "CPC1"},
			map[string]any{"class": "partition", "object-uri": "/api/partitions/1", "name": "P1"},
		})
	})
	client := NewClient(f.session(t))

	inv, err := client.GetInventory(context.Background(), []string{"cpc", "partition"})
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	res, _ := got["resources"].([]any)
	if len(res) != 2 || res[0] != "cpc" {
		t.Fatalf("request resources = %v", got["resources"])
	}
	if len(inv) != 2 || inv[0]["class"] != "cpc" || inv[1]["name"] != "P1" {
		t.Fatalf("inventory = %v", inv)
	}
}
