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
	"fmt"
	"strconv"
	"strings"
	"time"
)

const metricsContextURI = "/api/services/metrics/context"

// MetricDefinition describes one metric of a metric group.
type MetricDefinition struct {
	Name string
	// Type is the HMC metric type: "boolean", "byte", "short", "integer",
	// "long", "double", "string" or "string-enum".
	Type string
	// Index is the position of the metric in the values lines of a
	// metrics response.
	Index int
	Unit  string
}

// MetricGroupDefinition describes one metric group: its name and the ordered
// metrics it reports.
type MetricGroupDefinition struct {
	Name    string
	Metrics []MetricDefinition
}

// MetricsContextManager creates metrics contexts on the HMC.
type MetricsContextManager struct {
	session *Session
}

func newMetricsContextManager(session *Session) *MetricsContextManager {
	return &MetricsContextManager{session: session}
}

// Create creates a metrics context. The props require
// "anticipated-frequency-seconds" (at least 15) and "metric-groups". The
// response's metric group definitions are cached on the returned context for
// parsing metrics responses.
func (m *MetricsContextManager) Create(ctx context.Context, props Properties) (*MetricsContext, error) {
	result, err := m.session.Post(ctx, metricsContextURI, props)
	if err != nil {
		return nil, err
	}
	uri, _ := result["metrics-context-uri"].(string)
	if uri == "" {
		return nil, &ConsistencyError{Message: "metrics context create response carries no metrics-context-uri"}
	}
	mc := &MetricsContext{
		session:   m.session,
		uri:       uri,
		groupDefs: make(map[string]MetricGroupDefinition),
	}
	infos, _ := result["metric-group-infos"].([]any)
	for _, it := range infos {
		gm, ok := it.(map[string]any)
		if !ok {
			continue
		}
		def := MetricGroupDefinition{}
		def.Name, _ = gm["group-name"].(string)
		metricInfos, _ := gm["metric-infos"].([]any)
		for i, mi := range metricInfos {
			mm, ok := mi.(map[string]any)
			if !ok {
				continue
			}
			md := MetricDefinition{Index: i}
			md.Name, _ = mm["metric-name"].(string)
			md.Type, _ = mm["metric-type"].(string)
			md.Unit, _ = mm["metric-unit"].(string)
			def.Metrics = append(def.Metrics, md)
		}
		mc.groupDefs[def.Name] = def
		mc.groupNames = append(mc.groupNames, def.Name)
	}
	return mc, nil
}

// MetricsContext is one server-side metrics subscription.
type MetricsContext struct {
	session    *Session
	uri        string
	groupDefs  map[string]MetricGroupDefinition
	groupNames []string
}

// URI returns the metrics context URI.
func (mc *MetricsContext) URI() string { return mc.uri }

// GroupDefinitions returns the metric group definitions of the context in
// the order the HMC announced them.
func (mc *MetricsContext) GroupDefinitions() []MetricGroupDefinition {
	out := make([]MetricGroupDefinition, 0, len(mc.groupNames))
	for _, name := range mc.groupNames {
		out = append(out, mc.groupDefs[name])
	}
	return out
}

// GetMetrics returns the raw textual metrics dump of the context.
func (mc *MetricsContext) GetMetrics(ctx context.Context) (string, error) {
	raw, err := mc.session.GetRaw(ctx, mc.uri)
	if err != nil {
		return "", err
	}
	if raw == nil {
		return "", nil
	}
	body, ok := raw.(string)
	if !ok {
		return "", &ParseError{
			Message:       fmt.Sprintf("metrics response body is %T, not text", raw),
			RequestMethod: "GET",
			RequestURI:    mc.uri,
		}
	}
	return body, nil
}

// GetMetricsResponse retrieves the metrics of the context and parses them
// against the cached group definitions.
func (mc *MetricsContext) GetMetricsResponse(ctx context.Context) (*MetricsResponse, error) {
	body, err := mc.GetMetrics(ctx)
	if err != nil {
		return nil, err
	}
	return ParseMetricsResponse(mc.groupDefs, body)
}

// Delete disposes the metrics context on the HMC.
func (mc *MetricsContext) Delete(ctx context.Context) error {
	return mc.session.Delete(ctx, mc.uri)
}

// MetricValue is one named, typed metric value.
type MetricValue struct {
	Name  string
	Value any
}

// MetricObjectValues binds one resource URI to the metric values reported
// for it, in definition order.
type MetricObjectValues struct {
	ResourceURI string
	Timestamp   time.Time
	Metrics     []MetricValue
}

// Value returns the named metric value.
func (ov MetricObjectValues) Value(name string) (any, bool) {
	for _, m := range ov.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// MetricGroupValues holds the object values of one metric group, in
// response order.
type MetricGroupValues struct {
	Name         string
	ObjectValues []MetricObjectValues
}

// MetricsResponse is the parsed view of one textual metrics dump.
type MetricsResponse struct {
	Groups []MetricGroupValues
}

// ParseMetricsResponse parses the textual metrics dump format: per group a
// quoted group name line, then per reported object a quoted resource URI
// line, an epoch-milliseconds timestamp line and a comma-separated values
// line followed by a blank line; a further blank line ends the group.
func ParseMetricsResponse(defs map[string]MetricGroupDefinition, body string) (*MetricsResponse, error) {
	resp := &MetricsResponse{}
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		if line == "" {
			i++
			continue
		}
		name, ok := unquoteLine(line)
		if !ok {
			return nil, metricsParseError(i, "expected quoted metric group name, got %q", line)
		}
		def, ok := defs[name]
		if !ok {
			return nil, metricsParseError(i, "metrics response reports unknown group %q", name)
		}
		i++
		group := MetricGroupValues{Name: name}
		for i < len(lines) {
			line = strings.TrimRight(lines[i], "\r")
			if line == "" {
				i++
				break
			}
			uri, ok := unquoteLine(line)
			if !ok {
				return nil, metricsParseError(i, "expected quoted resource URI, got %q", line)
			}
			i++
			if i >= len(lines) {
				return nil, metricsParseError(i, "metrics response ends inside object section for %q", uri)
			}
			tsLine := strings.TrimRight(lines[i], "\r")
			ms, err := strconv.ParseInt(tsLine, 10, 64)
			if err != nil {
				return nil, metricsParseError(i, "invalid timestamp %q", tsLine)
			}
			i++
			if i >= len(lines) {
				return nil, metricsParseError(i, "metrics response ends inside object section for %q", uri)
			}
			valuesLine := strings.TrimRight(lines[i], "\r")
			values, err := parseMetricValues(def, valuesLine, i)
			if err != nil {
				return nil, err
			}
			i++
			// Object sections are separated by a blank line.
			if i < len(lines) && strings.TrimRight(lines[i], "\r") == "" {
				i++
			}
			group.ObjectValues = append(group.ObjectValues, MetricObjectValues{
				ResourceURI: uri,
				Timestamp:   time.UnixMilli(ms),
				Metrics:     values,
			})
		}
		resp.Groups = append(resp.Groups, group)
	}
	return resp, nil
}

func parseMetricValues(def MetricGroupDefinition, line string, lineNo int) ([]MetricValue, error) {
	fields := splitMetricFields(line)
	if len(fields) != len(def.Metrics) {
		return nil, metricsParseError(lineNo, "group %q reports %d values, definition has %d metrics",
			def.Name, len(fields), len(def.Metrics))
	}
	out := make([]MetricValue, len(fields))
	for i, field := range fields {
		md := def.Metrics[i]
		v, err := parseMetricValue(md.Type, field)
		if err != nil {
			return nil, metricsParseError(lineNo, "metric %q: %v", md.Name, err)
		}
		out[i] = MetricValue{Name: md.Name, Value: v}
	}
	return out, nil
}

func parseMetricValue(metricType, field string) (any, error) {
	switch metricType {
	case "boolean":
		return strconv.ParseBool(field)
	case "byte", "short", "integer", "long":
		return strconv.ParseInt(field, 10, 64)
	case "double":
		return strconv.ParseFloat(field, 64)
	case "string", "string-enum":
		if s, ok := unquoteLine(field); ok {
			return s, nil
		}
		return field, nil
	default:
		return nil, fmt.Errorf("unknown metric type %q", metricType)
	}
}

// splitMetricFields splits a values line on commas, keeping commas inside
// quoted string values intact.
func splitMetricFields(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, b.String())
	return fields
}

func unquoteLine(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func metricsParseError(line int, format string, args ...any) error {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    line + 1,
	}
}

// MetricsResource resolves the resource an object values entry refers to,
// routing by URI shape. An entry whose resource is not found on the HMC
// yields MetricsResourceNotFoundError.
func (c *Client) MetricsResource(ctx context.Context, group string, ov MetricObjectValues) (Resource, error) {
	uri := ov.ResourceURI
	notFound := &MetricsResourceNotFoundError{MetricGroup: group, ResourceURI: uri}

	if strings.HasPrefix(uri, "/api/cpcs/") {
		cpcs, err := c.Cpcs.List(ctx, ListOptions{})
		if err != nil {
			return nil, err
		}
		for _, cpc := range cpcs {
			if cpc.URI() == uri {
				return cpc, nil
			}
		}
		return nil, notFound
	}

	type childLister func(cpc *Cpc) (Resource, error)
	var find childLister
	switch {
	case strings.HasPrefix(uri, "/api/partitions/"):
		find = func(cpc *Cpc) (Resource, error) {
			ps, err := cpc.Partitions.List(ctx, ListOptions{})
			if err != nil {
				return nil, err
			}
			for _, p := range ps {
				if p.URI() == uri {
					return p, nil
				}
			}
			return nil, nil
		}
	case strings.HasPrefix(uri, "/api/logical-partitions/"):
		find = func(cpc *Cpc) (Resource, error) {
			ls, err := cpc.Lpars.List(ctx, ListOptions{})
			if err != nil {
				return nil, err
			}
			for _, l := range ls {
				if l.URI() == uri {
					return l, nil
				}
			}
			return nil, nil
		}
	case strings.HasPrefix(uri, "/api/adapters/"):
		find = func(cpc *Cpc) (Resource, error) {
			as, err := cpc.Adapters.List(ctx, ListOptions{})
			if err != nil {
				return nil, err
			}
			for _, a := range as {
				if a.URI() == uri {
					return a, nil
				}
			}
			return nil, nil
		}
	default:
		return nil, notFound
	}

	cpcs, err := c.Cpcs.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	for _, cpc := range cpcs {
		r, err := find(cpc)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, notFound
}
