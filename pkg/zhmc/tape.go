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

import "context"

// TapeLibraryManager manages the tape libraries known to the HMC.
type TapeLibraryManager struct {
	*Manager[*TapeLibrary]
}

func newTapeLibraryManager(console *Console) *TapeLibraryManager {
	core := newManagerCore(console.Session(), console, "tape-library",
		"/api/tape-libraries", "/api/tape-libraries", "tape-libraries",
		"object-uri", "object-id", "name",
		[]string{"name", "cpc-uri"}, false, false)
	return &TapeLibraryManager{Manager: newManager(core, newTapeLibrary)}
}

// TapeLibrary is one tape library reachable from a CPC.
type TapeLibrary struct {
	ResourceBase
}

func newTapeLibrary(core *managerCore, props Properties) *TapeLibrary {
	return &TapeLibrary{ResourceBase: newResourceBase(core, props)}
}

// RequestZoning asks the SAN administrator to zone the library to the CPC.
// A CPC without any FCP adapter answers with HTTP 409 reason 487.
func (t *TapeLibrary) RequestZoning(ctx context.Context, props Properties) error {
	_, err := t.postOp(ctx, "request-zoning", props, 0)
	return err
}

// Discover discovers the tape drives of the library. A CPC without a
// management world wide port name answers with HTTP 409 reason 501.
func (t *TapeLibrary) Discover(ctx context.Context, props Properties) (Properties, error) {
	return t.postOp(ctx, "discover", props, 0)
}

// TapeLinkManager manages the tape links defined on the HMC. A tape link
// connects partitions of one CPC to one tape library.
type TapeLinkManager struct {
	*Manager[*TapeLink]
}

func newTapeLinkManager(console *Console) *TapeLinkManager {
	core := newManagerCore(console.Session(), console, "tape-link",
		"/api/tape-links", "/api/tape-links", "tape-links",
		"object-uri", "object-id", "name",
		[]string{"name", "cpc-uri", "tape-library-uri"}, false, false)
	return &TapeLinkManager{Manager: newManager(core, newTapeLink)}
}

// Create creates a tape link. The props require "name", "cpc-uri" and
// "tape-library-uri".
func (m *TapeLinkManager) Create(ctx context.Context, props Properties) (*TapeLink, error) {
	return m.createResource(ctx, props)
}

// TapeLink is one tape link.
type TapeLink struct {
	ResourceBase
}

func newTapeLink(core *managerCore, props Properties) *TapeLink {
	return &TapeLink{ResourceBase: newResourceBase(core, props)}
}
