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
)

const (
	versionURI   = "/api/version"
	inventoryURI = "/api/services/inventory"
)

// Client is the top-level entry point for one HMC. It exposes the managers
// for the resources directly reachable from the API root.
type Client struct {
	session *Session

	// Cpcs manages the CPCs the HMC knows.
	Cpcs *CpcManager
	// Consoles manages the HMC console itself.
	Consoles *ConsoleManager
	// MetricsContexts manages metrics collection contexts.
	MetricsContexts *MetricsContextManager
}

// NewClient returns a Client on the given session.
func NewClient(session *Session) *Client {
	c := &Client{session: session}
	c.Cpcs = newCpcManager(session)
	c.Consoles = newConsoleManager(session)
	c.MetricsContexts = newMetricsContextManager(session)
	return c
}

// Session returns the session this client operates on.
func (c *Client) Session() *Session { return c.session }

// VersionInfo describes the Web Services API and HMC versions.
type VersionInfo struct {
	APIMajorVersion int
	APIMinorVersion int
	HMCVersion      string
	HMCName         string
}

// QueryAPIVersion returns the API and HMC version information. The operation
// does not require a logon.
func (c *Client) QueryAPIVersion(ctx context.Context) (VersionInfo, error) {
	_, result, err := c.session.doRequest(ctx, http.MethodGet, versionURI, nil, false, false)
	if err != nil {
		return VersionInfo{}, err
	}
	props, err := asProperties(result, http.MethodGet, versionURI)
	if err != nil {
		return VersionInfo{}, err
	}
	var v VersionInfo
	v.APIMajorVersion, _ = numberAsInt(props["api-major-version"])
	v.APIMinorVersion, _ = numberAsInt(props["api-minor-version"])
	v.HMCVersion, _ = props["hmc-version"].(string)
	v.HMCName, _ = props["hmc-name"].(string)
	return v, nil
}

// GetInventory returns the inventory of the given resource classes, e.g.
// "cpc" or "partition". The result is one property bag per resource.
func (c *Client) GetInventory(ctx context.Context, resources []string) ([]Properties, error) {
	body := Properties{"resources": resources}
	result, err := c.session.PostRaw(ctx, inventoryURI, body)
	if err != nil {
		return nil, err
	}
	items, ok := result.([]any)
	if !ok {
		return nil, &ParseError{
			Message:       "inventory response is not a JSON array",
			RequestMethod: http.MethodPost,
			RequestURI:    inventoryURI,
		}
	}
	out := make([]Properties, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Properties(m))
		}
	}
	return out, nil
}
