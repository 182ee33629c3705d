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

// VirtualSwitchManager manages the virtual switches of a DPM-mode CPC.
// One virtual switch exists per network adapter port; they are updated,
// never created or deleted.
type VirtualSwitchManager struct {
	*Manager[*VirtualSwitch]
}

func newVirtualSwitchManager(cpc *Cpc) *VirtualSwitchManager {
	core := newManagerCore(cpc.Session(), cpc, "virtual-switch",
		cpc.URI()+"/virtual-switches", "/api/virtual-switches", "virtual-switches",
		"object-uri", "object-id", "name",
		[]string{"name", "type"}, false, false)
	return &VirtualSwitchManager{Manager: newManager(core, newVirtualSwitch)}
}

// VirtualSwitch is one virtual switch of a DPM-mode CPC.
type VirtualSwitch struct {
	ResourceBase
}

func newVirtualSwitch(core *managerCore, props Properties) *VirtualSwitch {
	return &VirtualSwitch{ResourceBase: newResourceBase(core, props)}
}

// GetConnectedNICs returns the URIs of the NICs connected to this virtual
// switch.
func (v *VirtualSwitch) GetConnectedNICs(ctx context.Context) ([]string, error) {
	result, err := v.postOp(ctx, "get-connected-vnics", nil, 0)
	if err != nil {
		return nil, err
	}
	items, _ := result["connected-vnic-uris"].([]any)
	uris := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			uris = append(uris, s)
		}
	}
	return uris, nil
}
