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

// VirtualFunctionManager manages the virtual functions of a partition.
type VirtualFunctionManager struct {
	*Manager[*VirtualFunction]
}

func newVirtualFunctionManager(p *Partition) *VirtualFunctionManager {
	core := newManagerCore(p.Session(), p, "virtual-function",
		p.URI()+"/virtual-functions", p.URI()+"/virtual-functions", "virtual-functions",
		"element-uri", "element-id", "name",
		nil, false, false)
	return &VirtualFunctionManager{Manager: newManager(core, newVirtualFunction)}
}

// Create creates a virtual function in the partition. The props require
// "name" and "adapter-uri".
func (m *VirtualFunctionManager) Create(ctx context.Context, props Properties) (*VirtualFunction, error) {
	return m.createResource(ctx, props)
}

// VirtualFunction is one accelerator virtual function of a partition.
type VirtualFunction struct {
	ResourceBase
}

func newVirtualFunction(core *managerCore, props Properties) *VirtualFunction {
	return &VirtualFunction{ResourceBase: newResourceBase(core, props)}
}
