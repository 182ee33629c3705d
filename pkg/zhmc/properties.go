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

import "fmt"

// Properties is the free-form property bag of an HMC resource, indexed by the
// HMC property names (e.g. "object-uri", "status"). Values are what
// encoding/json produces: string, float64, bool, []any, map[string]any, nil.
// The typed accessors below assert the expected type; the raw map stays
// available for pass-through.
type Properties map[string]any

// Copy returns a shallow copy of the property bag.
func (p Properties) Copy() Properties {
	c := make(Properties, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Filter holds filter arguments for list and find operations. String values
// for string-typed properties are regular expressions matched at the start of
// the value; list values match if any element matches; other values require
// equality.
type Filter map[string]any

// PropString returns the named property asserted to string.
func PropString(p Properties, name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", &ConsistencyError{Message: fmt.Sprintf("property %q not present", name)}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConsistencyError{Message: fmt.Sprintf("property %q is %T, not string", name, v)}
	}
	return s, nil
}

// PropInt returns the named property asserted to an integer. JSON numbers
// arrive as float64; integral values are accepted.
func PropInt(p Properties, name string) (int, error) {
	v, ok := p[name]
	if !ok {
		return 0, &ConsistencyError{Message: fmt.Sprintf("property %q not present", name)}
	}
	n, ok := numberAsInt(v)
	if !ok {
		return 0, &ConsistencyError{Message: fmt.Sprintf("property %q is %T, not an integer", name, v)}
	}
	return n, nil
}

// PropBool returns the named property asserted to bool.
func PropBool(p Properties, name string) (bool, error) {
	v, ok := p[name]
	if !ok {
		return false, &ConsistencyError{Message: fmt.Sprintf("property %q not present", name)}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ConsistencyError{Message: fmt.Sprintf("property %q is %T, not bool", name, v)}
	}
	return b, nil
}

// PropFloat returns the named property asserted to float64.
func PropFloat(p Properties, name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, &ConsistencyError{Message: fmt.Sprintf("property %q not present", name)}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, &ConsistencyError{Message: fmt.Sprintf("property %q is %T, not a number", name, v)}
}

// PropList returns the named property asserted to a list.
func PropList(p Properties, name string) ([]any, error) {
	v, ok := p[name]
	if !ok {
		return nil, &ConsistencyError{Message: fmt.Sprintf("property %q not present", name)}
	}
	l, ok := v.([]any)
	if !ok {
		return nil, &ConsistencyError{Message: fmt.Sprintf("property %q is %T, not a list", name, v)}
	}
	return l, nil
}

// PropStringList returns the named property asserted to a list of strings.
func PropStringList(p Properties, name string) ([]string, error) {
	l, err := PropList(p, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(l))
	for _, e := range l {
		s, ok := e.(string)
		if !ok {
			return nil, &ConsistencyError{Message: fmt.Sprintf("property %q element is %T, not string", name, e)}
		}
		out = append(out, s)
	}
	return out, nil
}

// PropMap returns the named property asserted to a nested object.
func PropMap(p Properties, name string) (Properties, error) {
	v, ok := p[name]
	if !ok {
		return nil, &ConsistencyError{Message: fmt.Sprintf("property %q not present", name)}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &ConsistencyError{Message: fmt.Sprintf("property %q is %T, not an object", name, v)}
	}
	return Properties(m), nil
}
