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
	"sync"

	"zhmc/pkg/notification"
)

// AutoUpdater applies object notifications to registered resource objects,
// so their locally known properties track server state without polling.
// Feed it from a notification.Receiver subscribed to the session's object
// notification topic.
type AutoUpdater struct {
	mu        sync.Mutex
	resources map[string][]Resource
}

// NewAutoUpdater returns an empty updater.
func NewAutoUpdater() *AutoUpdater {
	return &AutoUpdater{resources: make(map[string][]Resource)}
}

// Register enables auto-update on the resource and starts routing its
// notifications to it.
func (u *AutoUpdater) Register(r Resource) {
	r.base().EnableAutoUpdate()
	u.mu.Lock()
	u.resources[r.URI()] = append(u.resources[r.URI()], r)
	u.mu.Unlock()
}

// Unregister disables auto-update on the resource and stops routing.
func (u *AutoUpdater) Unregister(r Resource) {
	r.base().DisableAutoUpdate()
	u.mu.Lock()
	defer u.mu.Unlock()
	regs := u.resources[r.URI()]
	for i, reg := range regs {
		if reg == r {
			u.resources[r.URI()] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
	if len(u.resources[r.URI()]) == 0 {
		delete(u.resources, r.URI())
	}
}

// Run consumes messages until the channel closes or the context is
// cancelled, applying each to the registered resources.
func (u *AutoUpdater) Run(ctx context.Context, msgs <-chan notification.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return nil
			}
			body, err := m.Decode()
			if err != nil {
				return err
			}
			u.Apply(m.Headers, Properties(body))
		}
	}
}

// Apply routes one notification to the registered resources for its URI.
// Property and status change reports are merged into the local properties;
// an inventory-change remove marks the objects as ceased to exist.
func (u *AutoUpdater) Apply(headers map[string]string, body Properties) {
	uri := headers["object-uri"]
	if uri == "" {
		uri = headers["element-uri"]
	}
	if uri == "" {
		return
	}
	targets := u.registered(uri)
	if len(targets) == 0 {
		return
	}

	switch headers["notification-type"] {
	case notification.TypePropertyChange:
		props := changedProperties(body, "property-name", "new-value")
		for _, r := range targets {
			r.base().applyNotification(props)
		}
	case notification.TypeStatusChange:
		props := Properties{}
		for _, report := range changeReports(body) {
			if s, ok := report["new-status"]; ok {
				props["status"] = s
			}
			if v, ok := report["has-unacceptable-status"]; ok {
				props["has-unacceptable-status"] = v
			}
		}
		if len(props) > 0 {
			for _, r := range targets {
				r.base().applyNotification(props)
			}
		}
	case notification.TypeInventoryChange:
		if headers["action"] == "remove" {
			for _, r := range targets {
				r.base().markCeased()
			}
		}
	}
}

func (u *AutoUpdater) registered(uri string) []Resource {
	u.mu.Lock()
	defer u.mu.Unlock()
	regs := u.resources[uri]
	out := make([]Resource, len(regs))
	copy(out, regs)
	return out
}

func changeReports(body Properties) []map[string]any {
	items, _ := body["change-reports"].([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func changedProperties(body Properties, nameKey, valueKey string) Properties {
	props := Properties{}
	for _, report := range changeReports(body) {
		name, _ := report[nameKey].(string)
		if name == "" {
			continue
		}
		props[name] = report[valueKey]
	}
	return props
}
