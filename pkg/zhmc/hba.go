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

// HbaManager manages the HBAs of a partition. HBAs exist on CPCs without
// firmware-managed storage; later machines model them as virtual storage
// resources instead.
type HbaManager struct {
	*Manager[*Hba]
}

func newHbaManager(p *Partition) *HbaManager {
	core := newManagerCore(p.Session(), p, "hba",
		p.URI()+"/hbas", p.URI()+"/hbas", "hbas",
		"element-uri", "element-id", "name",
		nil, false, false)
	return &HbaManager{Manager: newManager(core, newHba)}
}

// Create creates an HBA in the partition. The props require "name" and
// "adapter-port-uri".
func (m *HbaManager) Create(ctx context.Context, props Properties) (*Hba, error) {
	return m.createResource(ctx, props)
}

// Hba is one FCP host bus adapter of a partition.
type Hba struct {
	ResourceBase
}

func newHba(core *managerCore, props Properties) *Hba {
	return &Hba{ResourceBase: newResourceBase(core, props)}
}

// ReassignPort moves the HBA to another FCP adapter port and updates the
// local "adapter-port-uri" accordingly.
func (h *Hba) ReassignPort(ctx context.Context, portURI string) error {
	body := Properties{"adapter-port-uri": portURI}
	if _, err := h.postOp(ctx, "reassign-storage-adapter-port", body, 0); err != nil {
		return err
	}
	h.mu.Lock()
	h.props["adapter-port-uri"] = portURI
	h.mu.Unlock()
	return nil
}
