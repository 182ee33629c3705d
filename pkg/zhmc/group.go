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

// GroupManager manages the custom groups defined on the HMC.
type GroupManager struct {
	*Manager[*Group]
}

func newGroupManager(console *Console) *GroupManager {
	core := newManagerCore(console.Session(), console, "group",
		"/api/groups", "/api/groups", "groups",
		"object-uri", "object-id", "name",
		[]string{"name"}, false, false)
	return &GroupManager{Manager: newManager(core, newGroup)}
}

// Create creates a custom group. The props require "name"; a
// "match-info" entry makes the group pattern-matched instead of manually
// managed.
func (m *GroupManager) Create(ctx context.Context, props Properties) (*Group, error) {
	return m.createResource(ctx, props)
}

// Group is one custom group of managed objects.
type Group struct {
	ResourceBase
}

func newGroup(core *managerCore, props Properties) *Group {
	return &Group{ResourceBase: newResourceBase(core, props)}
}

// AddMember adds the object with the given URI to the group. Only valid
// for manually managed groups.
func (g *Group) AddMember(ctx context.Context, objectURI string) error {
	_, err := g.postOp(ctx, "add-member", Properties{"object-uri": objectURI}, 0)
	return err
}

// RemoveMember removes the object with the given URI from the group.
func (g *Group) RemoveMember(ctx context.Context, objectURI string) error {
	_, err := g.postOp(ctx, "remove-member", Properties{"object-uri": objectURI}, 0)
	return err
}

// ListMembers returns the URIs of the group members.
func (g *Group) ListMembers(ctx context.Context) ([]string, error) {
	props, err := g.Session().Get(ctx, g.URI()+"/members")
	if err != nil {
		return nil, err
	}
	items, _ := props["members"].([]any)
	uris := make([]string, 0, len(items))
	for _, it := range items {
		switch m := it.(type) {
		case string:
			uris = append(uris, m)
		case map[string]any:
			if uri, _ := m["object-uri"].(string); uri != "" {
				uris = append(uris, uri)
			}
		}
	}
	return uris, nil
}
