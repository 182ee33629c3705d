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

// StorageGroupManager manages the storage groups defined on the HMC.
// Storage groups are console-owned and reference their CPC by URI.
type StorageGroupManager struct {
	*Manager[*StorageGroup]
}

func newStorageGroupManager(session *Session, console *Console) *StorageGroupManager {
	var parent Resource
	if console != nil {
		parent = console
	}
	core := newManagerCore(session, parent, "storage-group",
		"/api/storage-groups", "/api/storage-groups", "storage-groups",
		"object-uri", "object-id", "name",
		[]string{"name", "cpc-uri", "type", "fulfillment-state"}, true, false)
	return &StorageGroupManager{Manager: newManager(core, newStorageGroup)}
}

// Create creates a storage group. The props require "name", "cpc-uri" and
// "type" ("fcp" or "fc").
func (m *StorageGroupManager) Create(ctx context.Context, props Properties) (*StorageGroup, error) {
	return m.createResource(ctx, props)
}

// StorageGroup is one storage group: a named set of storage volumes
// attachable to partitions of its CPC.
type StorageGroup struct {
	ResourceBase

	// StorageVolumes manages the volumes of the group.
	StorageVolumes *StorageVolumeManager
	// VirtualStorageResources manages the virtual storage resources that
	// realize the group's attachments.
	VirtualStorageResources *VirtualStorageResourceManager
}

func newStorageGroup(core *managerCore, props Properties) *StorageGroup {
	g := &StorageGroup{ResourceBase: newResourceBase(core, props)}
	g.StorageVolumes = newStorageVolumeManager(g)
	g.VirtualStorageResources = newVirtualStorageResourceManager(g)
	return g
}

// AddCandidateAdapterPorts adds FCP adapter ports to the set the group may
// be fulfilled through.
func (g *StorageGroup) AddCandidateAdapterPorts(ctx context.Context, portURIs []string) error {
	body := Properties{"adapter-port-uris": portURIs}
	_, err := g.postOp(ctx, "add-candidate-adapter-ports", body, 0)
	return err
}

// RemoveCandidateAdapterPorts removes FCP adapter ports from the candidate
// set.
func (g *StorageGroup) RemoveCandidateAdapterPorts(ctx context.Context, portURIs []string) error {
	body := Properties{"adapter-port-uris": portURIs}
	_, err := g.postOp(ctx, "remove-candidate-adapter-ports", body, 0)
	return err
}

// ListCandidateAdapterPorts returns the candidate adapter port URIs of the
// group.
func (g *StorageGroup) ListCandidateAdapterPorts(ctx context.Context) ([]string, error) {
	result, err := g.postOp(ctx, "get-candidate-adapter-ports", nil, 0)
	if err != nil {
		return nil, err
	}
	items, _ := result["candidate-adapter-port-uris"].([]any)
	uris := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			uris = append(uris, s)
		}
	}
	return uris, nil
}

// RequestFulfillment asks the storage administrator to fulfill the pending
// volume requests of the group.
func (g *StorageGroup) RequestFulfillment(ctx context.Context) error {
	_, err := g.postOp(ctx, "request-fulfillment", nil, 0)
	return err
}

// StorageVolumeManager manages the volumes of a storage group. Volumes are
// created and deleted through "Modify Storage Group Properties"; this
// manager exposes list and property access.
type StorageVolumeManager struct {
	*Manager[*StorageVolume]
}

func newStorageVolumeManager(g *StorageGroup) *StorageVolumeManager {
	core := newManagerCore(g.Session(), g, "storage-volume",
		g.URI()+"/storage-volumes", g.URI()+"/storage-volumes", "storage-volumes",
		"element-uri", "element-id", "name",
		[]string{"name", "fulfillment-state", "usage"}, false, false)
	return &StorageVolumeManager{Manager: newManager(core, newStorageVolume)}
}

// StorageVolume is one volume of a storage group.
type StorageVolume struct {
	ResourceBase
}

func newStorageVolume(core *managerCore, props Properties) *StorageVolume {
	return &StorageVolume{ResourceBase: newResourceBase(core, props)}
}

// VirtualStorageResourceManager manages the virtual storage resources of a
// storage group.
type VirtualStorageResourceManager struct {
	*Manager[*VirtualStorageResource]
}

func newVirtualStorageResourceManager(g *StorageGroup) *VirtualStorageResourceManager {
	core := newManagerCore(g.Session(), g, "virtual-storage-resource",
		g.URI()+"/virtual-storage-resources", g.URI()+"/virtual-storage-resources", "virtual-storage-resources",
		"element-uri", "element-id", "name",
		[]string{"name"}, false, false)
	return &VirtualStorageResourceManager{Manager: newManager(core, newVirtualStorageResource)}
}

// VirtualStorageResource is one virtual storage resource of a storage
// group: the partition-facing side of a fulfilled attachment.
type VirtualStorageResource struct {
	ResourceBase
}

func newVirtualStorageResource(core *managerCore, props Properties) *VirtualStorageResource {
	return &VirtualStorageResource{ResourceBase: newResourceBase(core, props)}
}
