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

func partitionUsageDefs() map[string]MetricGroupDefinition {
	return map[string]MetricGroupDefinition{
		"partition-usage": {
			Name: "partition-usage",
			Metrics: []MetricDefinition{
				{Name: "processor-usage", Type: "integer", Index: 0, Unit: "percent"},
				{Name: "network-usage", Type: "integer", Index: 1, Unit: "percent"},
				{Name: "storage-usage", Type: "double", Index: 2, Unit: "percent"},
				{Name: "power-consumption-watts", Type: "long", Index: 3, Unit: "watts"},
			},
		},
	}
}

func serveMetricsContext(f *fakeHMC, metricsBody string) {
	f.handle(http.MethodPost, "/api/services/metrics/context", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"metrics-context-uri": "/api/services/metrics/context/1",
			"metric-group-infos": []any{
				map[string]any{
					"group-name": "partition-usage",
					"metric-infos": []any{
						map[string]any{"metric-name": "processor-usage", "metric-type": "integer", "metric-unit": "percent"},
						map[string]any{"metric-name": "network-usage", "metric-type": "integer", "metric-unit": "percent"},
						map[string]any{"metric-name": "storage-usage", "metric-type": "double", "metric-unit": "percent"},
						map[string]any{"metric-name": "power-consumption-watts", "metric-type": "long", "metric-unit": "watts"},
					},
				},
			},
		})
	})
	f.handle(http.MethodGet, "/api/services/metrics/context/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metricsBody))
	})
	f.handle(http.MethodDelete, "/api/services/metrics/context/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

const partitionUsageBody = "\"partition-usage\"\n" +
	"\"/api/partitions/1\"\n" +
	"1504613590000\n" +
	"12,3,44.5,80\n" +
	"\n" +
	"\"/api/partitions/2\"\n" +
	"1504613590000\n" +
	"0,0,0.0,40\n" +
	"\n" +
	"\n"

func TestMetricsContextLifecycle(t *testing.T) {
	f := newFakeHMC(t)
	serveMetricsContext(f, partitionUsageBody)
	client := NewClient(f.session(t))
	ctx := context.Background()

	mc, err := client.MetricsContexts.Create(ctx, Properties{
		"anticipated-frequency-seconds": 15,
		"metric-groups":                 []string{"partition-usage"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if mc.URI() != "/api/services/metrics/context/1" {
		t.Fatalf("URI = %q", mc.URI())
	}
	defs := mc.GroupDefinitions()
	if len(defs) != 1 || defs[0].Name != "partition-usage" {
		t.Fatalf("group definitions = %v", defs)
	}
	for i, want := range []string{"processor-usage", "network-usage", "storage-usage", "power-consumption-watts"} {
		md := defs[0].Metrics[i]
		if md.Name != want || md.Index != i {
			t.Fatalf("metric %d = %+v, want %q", i, md, want)
		}
	}

	resp, err := mc.GetMetricsResponse(ctx)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	if len(resp.Groups) != 1 {
		t.Fatalf("groups = %d", len(resp.Groups))
	}
	g := resp.Groups[0]
	if g.Name != "partition-usage" || len(g.ObjectValues) != 2 {
		t.Fatalf("group = %+v", g)
	}
	ov := g.ObjectValues[0]
	if ov.ResourceURI != "/api/partitions/1" {
		t.Fatalf("resource URI = %q", ov.ResourceURI)
	}
	if !ov.Timestamp.Equal(time.UnixMilli(1504613590000)) {
		t.Fatalf("timestamp = %v", ov.Timestamp)
	}
	if v, _ := ov.Value("processor-usage"); v != int64(12) {
		t.Fatalf("processor-usage = %v (%T)", v, v)
	}
	if v, _ := ov.Value("storage-usage"); v != 44.5 {
		t.Fatalf("storage-usage = %v (%T)", v, v)
	}
	if v, _ := g.ObjectValues[1].Value("power-consumption-watts"); v != int64(40) {
		t.Fatalf("power-consumption-watts = %v (%T)", v, v)
	}

	if err := mc.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.requestCount(http.MethodDelete, "/api/services/metrics/context/1"); got != 1 {
		t.Fatalf("DELETE count = %d", got)
	}
}

func TestParseMetricsResponseTypes(t *testing.T) {
	defs := map[string]MetricGroupDefinition{
		"g": {Name: "g", Metrics: []MetricDefinition{
			{Name: "flag", Type: "boolean", Index: 0},
			{Name: "label", Type: "string", Index: 1},
			{Name: "ratio", Type: "double", Index: 2},
		}},
	}
	body := "\"g\"\n\"/api/cpcs/1\"\n1000\ntrue,\"a,b\",1.5\n\n\n"

	resp, err := ParseMetricsResponse(defs, body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ov := resp.Groups[0].ObjectValues[0]
	if v, _ := ov.Value("flag"); v != true {
		t.Fatalf("flag = %v", v)
	}
	// Commas inside quoted string values do not split fields.
	if v, _ := ov.Value("label"); v != "a,b" {
		t.Fatalf("label = %v", v)
	}
	if v, _ := ov.Value("ratio"); v != 1.5 {
		t.Fatalf("ratio = %v", v)
	}
}

func TestParseMetricsResponseEmpty(t *testing.T) {
	resp, err := ParseMetricsResponse(partitionUsageDefs(), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(resp.Groups) != 0 {
		t.Fatalf("groups = %v", resp.Groups)
	}
}

func TestParseMetricsResponseErrors(t *testing.T) {
	defs := partitionUsageDefs()
	cases := []struct {
		name string
		body string
	}{
		{"unknown group", "\"no-such-group\"\n"},
		{"unquoted group", "partition-usage\n"},
		{"bad timestamp", "\"partition-usage\"\n\"/api/partitions/1\"\nnot-a-number\n1,2,3.0,4\n"},
		{"value count mismatch", "\"partition-usage\"\n\"/api/partitions/1\"\n1000\n1,2\n"},
		{"bad value type", "\"partition-usage\"\n\"/api/partitions/1\"\n1000\nx,2,3.0,4\n"},
		{"truncated object", "\"partition-usage\"\n\"/api/partitions/1\"\n1000\n"},
	}
	for _, c := range cases {
		_, err := ParseMetricsResponse(defs, c.body)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%s: error = %v, want ParseError", c.name, err)
		}
		if perr.Line == 0 {
			t.Fatalf("%s: ParseError carries no line", c.name)
		}
	}
}

func TestClientMetricsResource(t *testing.T) {
	f := newFakeHMC(t)
	f.handle(http.MethodGet, "/api/cpcs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"cpcs": []any{
			map[string]any{"object-uri": "/api/cpcs/1", "name": "CPC1", "status": "active"},
		}})
	})
	f.handle(http.MethodGet, "/api/cpcs/1/partitions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"partitions": []any{
			map[string]any{"object-uri": "/api/partitions/1", "name": "P1", "status": "active"},
		}})
	})
	client := NewClient(f.session(t))
	ctx := context.Background()

	ov := MetricObjectValues{ResourceURI: "/api/partitions/1"}
	r, err := client.MetricsResource(ctx, "partition-usage", ov)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.URI() != "/api/partitions/1" || r.ClassName() != "partition" {
		t.Fatalf("resolved %q/%q", r.URI(), r.ClassName())
	}

	_, err = client.MetricsResource(ctx, "partition-usage", MetricObjectValues{ResourceURI: "/api/partitions/99"})
	var nf *MetricsResourceNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("unknown partition = %v, want MetricsResourceNotFoundError", err)
	}

	_, err = client.MetricsResource(ctx, "partition-usage", MetricObjectValues{ResourceURI: "/api/unknown/1"})
	if !errors.As(err, &nf) {
		t.Fatalf("unknown prefix = %v, want MetricsResourceNotFoundError", err)
	}
}
