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

// NicManager manages the NICs of a partition.
type NicManager struct {
	*Manager[*Nic]
}

func newNicManager(p *Partition) *NicManager {
	core := newManagerCore(p.Session(), p, "nic",
		p.URI()+"/nics", p.URI()+"/nics", "nics",
		"element-uri", "element-id", "name",
		nil, false, false)
	return &NicManager{Manager: newManager(core, newNic)}
}

// Create creates a NIC in the partition. The props require "name" and the
// backing adapter reference ("virtual-switch-uri" or
// "network-adapter-port-uri").
func (m *NicManager) Create(ctx context.Context, props Properties) (*Nic, error) {
	return m.createResource(ctx, props)
}

// Nic is one network interface of a partition.
type Nic struct {
	ResourceBase
}

func newNic(core *managerCore, props Properties) *Nic {
	return &Nic{ResourceBase: newResourceBase(core, props)}
}
