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
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// managerCore holds the manager state that is independent of the concrete
// resource type: wire locations, identity property names, and the name-to-URI
// cache shared by all consumers of the manager.
type managerCore struct {
	session *Session
	parent  Resource // nil for top-level managers
	// className is the HMC class of the managed resources ("cpc", ...).
	className string
	// listURI is the collection URI used for list and create.
	listURI string
	// resourceURIBase turns a bare object/element id into a URI.
	resourceURIBase string
	// listResultField is the key of the result array in list responses.
	listResultField string
	uriProp         string // "object-uri" or "element-uri"
	oidProp         string // "object-id" or "element-id"
	nameProp        string
	// queryProps are filter names forwarded as URL query parameters for
	// server-side filtering; everything else filters client-side.
	queryProps []string
	// supportsProperties enables the additional-properties query on list.
	supportsProperties   bool
	caseInsensitiveNames bool
	cache                *nameURICache
}

func newManagerCore(session *Session, parent Resource, className, listURI, resourceURIBase, listResultField, uriProp, oidProp, nameProp string, queryProps []string, supportsProperties, caseInsensitiveNames bool) *managerCore {
	c := &managerCore{
		session:              session,
		parent:               parent,
		className:            className,
		listURI:              listURI,
		resourceURIBase:      resourceURIBase,
		listResultField:      listResultField,
		uriProp:              uriProp,
		oidProp:              oidProp,
		nameProp:             nameProp,
		queryProps:           queryProps,
		supportsProperties:   supportsProperties,
		caseInsensitiveNames: caseInsensitiveNames,
	}
	c.cache = newNameURICache(session.rt.NameURICacheTTL, caseInsensitiveNames, c.listNameURIs)
	return c
}

// ClassName returns the HMC class of the managed resources.
func (c *managerCore) ClassName() string { return c.className }

// Parent returns the parent resource, or nil for top-level managers.
func (c *managerCore) Parent() Resource { return c.parent }

// Session returns the session this manager operates on.
func (c *managerCore) Session() *Session { return c.session }

// InvalidateCache empties the manager's name-to-URI cache.
func (c *managerCore) InvalidateCache() { c.cache.Invalidate() }

// listNameURIs populates the name cache with one minimal list call.
func (c *managerCore) listNameURIs(ctx context.Context) (map[string]string, error) {
	props, err := c.session.Get(ctx, c.listURI)
	if err != nil {
		return nil, err
	}
	items, _ := props[c.listResultField].([]any)
	out := make(map[string]string, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m[c.nameProp].(string)
		uri, _ := m[c.uriProp].(string)
		if name != "" && uri != "" {
			out[name] = uri
		}
	}
	return out, nil
}

// ListOptions tunes a List call.
type ListOptions struct {
	// FullProperties fetches the full property set of every result with a
	// per-resource GET after the list.
	FullProperties bool
	// Filter restricts the result. Names in the manager's query props
	// filter on the server; the rest filter client-side.
	Filter Filter
	// AdditionalProperties asks the list to include these properties in
	// the result. Only valid on managers that support it.
	AdditionalProperties []string
}

// Manager is the generic two-level access point for one kind of resource
// under one parent. Concrete managers embed it and add the operations their
// resource kind supports.
type Manager[R Resource] struct {
	*managerCore
	newResource func(*managerCore, Properties) R
}

func newManager[R Resource](core *managerCore, newRes func(*managerCore, Properties) R) *Manager[R] {
	return &Manager[R]{managerCore: core, newResource: newRes}
}

// List returns the resources of this manager, honoring server-side and
// client-side filters.
func (m *Manager[R]) List(ctx context.Context, opts ListOptions) ([]R, error) {
	if len(opts.AdditionalProperties) > 0 && !m.supportsProperties {
		return nil, &ConsistencyError{
			Message: fmt.Sprintf("%s manager does not support the properties filter on list", m.className),
		}
	}

	query := url.Values{}
	clientFilter := Filter{}
	for k, v := range opts.Filter {
		if m.isQueryProp(k) {
			appendQueryValues(query, k, v)
		} else {
			clientFilter[k] = v
		}
	}
	if len(opts.AdditionalProperties) > 0 {
		query.Set("additional-properties", strings.Join(opts.AdditionalProperties, ","))
	}

	uri := m.listURI
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	props, err := m.session.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	items, _ := props[m.listResultField].([]any)

	var out []R
	for _, it := range items {
		pm, ok := it.(map[string]any)
		if !ok {
			continue
		}
		item := Properties(pm)
		match, merr := matchFilter(item, clientFilter, m.caseInsensitiveNames, m.nameProp)
		if merr != nil {
			return nil, merr
		}
		if !match {
			continue
		}
		r := m.materialize(item)
		out = append(out, r)
	}

	if opts.FullProperties {
		for _, r := range out {
			if err := r.PullFullProperties(ctx); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// FindAll returns all resources matching the filter. A filter consisting of
// exactly the name property is served from the name-to-URI cache without
// listing.
func (m *Manager[R]) FindAll(ctx context.Context, filter Filter) ([]R, error) {
	if len(filter) == 1 {
		if v, ok := filter[m.nameProp]; ok {
			if name, ok := v.(string); ok {
				r, err := m.FindByName(ctx, name)
				if err != nil {
					var nf *NotFoundError
					if errors.As(err, &nf) {
						return nil, nil
					}
					return nil, err
				}
				return []R{r}, nil
			}
		}
	}
	return m.List(ctx, ListOptions{Filter: filter})
}

// Find returns the single resource matching the filter. Zero matches yield
// NotFoundError, two or more NoUniqueMatchError.
func (m *Manager[R]) Find(ctx context.Context, filter Filter) (R, error) {
	var zero R
	rs, err := m.FindAll(ctx, filter)
	if err != nil {
		return zero, err
	}
	switch len(rs) {
	case 0:
		return zero, &NotFoundError{ClassName: m.className, Filter: filter}
	case 1:
		return rs[0], nil
	default:
		uris := make([]string, len(rs))
		for i, r := range rs {
			uris[i] = r.URI()
		}
		return zero, &NoUniqueMatchError{ClassName: m.className, Filter: filter, URIs: uris}
	}
}

// FindByName returns the resource with the given name, using the name-to-URI
// cache.
func (m *Manager[R]) FindByName(ctx context.Context, name string) (R, error) {
	var zero R
	uri, err := m.cache.Get(ctx, name)
	if err != nil {
		if errors.Is(err, errNameNotInCache) {
			return zero, &NotFoundError{ClassName: m.className, Filter: Filter{m.nameProp: name}}
		}
		return zero, err
	}
	return m.ResourceObject(uri, Properties{m.nameProp: name})
}

// ResourceObject materializes a local resource object from a URI or a bare
// object/element id without a network call. Extra properties are merged in;
// identity properties in extra must agree with the derived ones.
func (m *Manager[R]) ResourceObject(uriOrOid string, extra Properties) (R, error) {
	var zero R
	uri := uriOrOid
	if !strings.HasPrefix(uri, "/") {
		uri = m.resourceURIBase + "/" + uriOrOid
	}
	oid := uri[strings.LastIndex(uri, "/")+1:]

	props := Properties{
		m.uriProp: uri,
		m.oidProp: oid,
		"class":   m.className,
	}
	if m.parent != nil {
		props["parent"] = m.parent.URI()
	}
	for k, v := range extra {
		if cur, ok := props[k]; ok && cur != v {
			return zero, &ConsistencyError{
				Message: fmt.Sprintf("property %q value %v conflicts with derived value %v for %s %s",
					k, v, cur, m.className, uri),
			}
		}
		props[k] = v
	}
	return m.newResource(m.managerCore, props), nil
}

// materialize builds a resource from a property bag that carries the URI
// property, filling in the identity properties.
func (m *Manager[R]) materialize(item Properties) R {
	props := item.Copy()
	uri, _ := props[m.uriProp].(string)
	if _, ok := props[m.oidProp]; !ok && uri != "" {
		props[m.oidProp] = uri[strings.LastIndex(uri, "/")+1:]
	}
	if _, ok := props["class"]; !ok {
		props["class"] = m.className
	}
	if m.parent != nil {
		if _, ok := props["parent"]; !ok {
			props["parent"] = m.parent.URI()
		}
	}
	r := m.newResource(m.managerCore, props)
	if name, _ := props[m.nameProp].(string); name != "" && uri != "" {
		m.cache.Update(name, uri)
	}
	return r
}

// createResource creates a resource by POSTing to the collection URI and
// materializes it from the request properties plus the response (which
// carries at least the new URI).
func (m *Manager[R]) createResource(ctx context.Context, props Properties) (R, error) {
	var zero R
	result, err := m.session.Post(ctx, m.listURI, props)
	if err != nil {
		return zero, err
	}
	merged := props.Copy()
	for k, v := range result {
		merged[k] = v
	}
	if _, ok := merged[m.uriProp].(string); !ok {
		return zero, &ConsistencyError{
			Message: fmt.Sprintf("create response for %s carries no %s", m.className, m.uriProp),
		}
	}
	return m.materialize(merged), nil
}

func (m *Manager[R]) isQueryProp(name string) bool {
	for _, q := range m.queryProps {
		if q == name {
			return true
		}
	}
	return false
}

func appendQueryValues(query url.Values, key string, v any) {
	switch vv := v.(type) {
	case []string:
		for _, e := range vv {
			query.Add(key, e)
		}
	case []any:
		for _, e := range vv {
			query.Add(key, fmt.Sprintf("%v", e))
		}
	default:
		query.Add(key, fmt.Sprintf("%v", v))
	}
}

// matchFilter evaluates the client-side filter rules: list values match if
// any element matches; string values are regular expressions matched at the
// start of the property value; other values require equality. A property
// missing from the bag never matches.
func matchFilter(props Properties, filter Filter, caseInsensitiveNames bool, nameProp string) (bool, error) {
	for k, fv := range filter {
		pv, ok := props[k]
		if !ok {
			return false, nil
		}
		ci := caseInsensitiveNames && k == nameProp
		match, err := matchValue(pv, fv, ci)
		if err != nil {
			return false, err
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

func matchValue(pv, fv any, caseInsensitive bool) (bool, error) {
	switch fvv := fv.(type) {
	case []any:
		for _, e := range fvv {
			m, err := matchValue(pv, e, caseInsensitive)
			if err != nil || m {
				return m, err
			}
		}
		return false, nil
	case []string:
		for _, e := range fvv {
			m, err := matchValue(pv, e, caseInsensitive)
			if err != nil || m {
				return m, err
			}
		}
		return false, nil
	case string:
		pvs, ok := pv.(string)
		if !ok {
			return false, nil
		}
		pattern := "^(?:" + fvv + ")"
		if caseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid filter pattern %q: %w", fvv, err)
		}
		return re.MatchString(pvs), nil
	default:
		return looseEqual(pv, fv), nil
	}
}

// looseEqual compares a JSON-decoded property value with a filter value,
// tolerating the int/float64 split.
func looseEqual(pv, fv any) bool {
	if pn, ok := toFloat(pv); ok {
		if fn, ok := toFloat(fv); ok {
			return pn == fn
		}
		return false
	}
	return pv == fv
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
