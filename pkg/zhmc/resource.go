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
	"fmt"
	"sort"
	"sync"
	"time"
)

// Resource is the behavior shared by all HMC resource objects.
type Resource interface {
	// URI returns the canonical resource URI.
	URI() string
	// Name returns the locally known resource name, which may be empty if
	// the object was materialized from a URI alone.
	Name() string
	// ClassName returns the HMC class of the resource.
	ClassName() string
	// Properties returns a copy of the locally known properties.
	Properties() Properties
	// Prop returns the named property, fetching the full property set
	// from the HMC if it is not locally known.
	Prop(ctx context.Context, name string) (any, error)
	// PullFullProperties replaces the local properties with the full set
	// from the HMC.
	PullFullProperties(ctx context.Context) error
	// UpdateProperties writes the given properties to the HMC and merges
	// them into the local set.
	UpdateProperties(ctx context.Context, props Properties) error
	// Delete removes the resource on the HMC and marks the object as
	// ceased to exist.
	Delete(ctx context.Context) error
	// CeasedExistence reports whether the resource is known to no longer
	// exist on the HMC.
	CeasedExistence() bool

	base() *ResourceBase
}

// ResourceBase is the common part of every concrete resource type. It holds
// the locally known property bag and implements the property, update, delete
// and status-wait behavior; concrete types embed it and add their operations.
type ResourceBase struct {
	mgr *managerCore
	uri string

	mu         sync.RWMutex
	props      Properties
	full       bool
	ceased     bool
	autoUpdate bool
}

func newResourceBase(mgr *managerCore, props Properties) ResourceBase {
	uri, _ := props[mgr.uriProp].(string)
	return ResourceBase{mgr: mgr, uri: uri, props: props.Copy()}
}

func (r *ResourceBase) base() *ResourceBase { return r }

// URI returns the canonical resource URI.
func (r *ResourceBase) URI() string { return r.uri }

// ClassName returns the HMC class of the resource.
func (r *ResourceBase) ClassName() string { return r.mgr.className }

// Name returns the locally known resource name, or "" if not known.
func (r *ResourceBase) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, _ := r.props[r.mgr.nameProp].(string)
	return name
}

// Session returns the session the resource lives on.
func (r *ResourceBase) Session() *Session { return r.mgr.session }

// Parent returns the parent resource, or nil for top-level resources.
func (r *ResourceBase) Parent() Resource { return r.mgr.parent }

// CeasedExistence reports whether the resource is known to no longer exist.
func (r *ResourceBase) CeasedExistence() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ceased
}

// Properties returns a copy of the locally known properties.
func (r *ResourceBase) Properties() Properties {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.props.Copy()
}

// GetProperty returns the named property if locally known.
func (r *ResourceBase) GetProperty(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.props[name]
	return v, ok
}

// Prop returns the named property. A locally unknown property triggers one
// full property fetch; a property still absent afterwards is an error.
func (r *ResourceBase) Prop(ctx context.Context, name string) (any, error) {
	if v, ok := r.GetProperty(name); ok {
		return v, nil
	}
	r.mu.RLock()
	full := r.full
	r.mu.RUnlock()
	if !full {
		if err := r.PullFullProperties(ctx); err != nil {
			return nil, err
		}
		if v, ok := r.GetProperty(name); ok {
			return v, nil
		}
	}
	return nil, &ConsistencyError{
		Message: fmt.Sprintf("%s %s has no property %q", r.mgr.className, r.uri, name),
	}
}

// PropString returns the named property as a string.
func (r *ResourceBase) PropString(ctx context.Context, name string) (string, error) {
	v, err := r.Prop(ctx, name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConsistencyError{
			Message: fmt.Sprintf("property %q of %s %s is %T, not a string", name, r.mgr.className, r.uri, v),
		}
	}
	return s, nil
}

// PullFullProperties replaces the local property bag with the full set
// retrieved from the HMC.
func (r *ResourceBase) PullFullProperties(ctx context.Context) error {
	if err := r.checkCeased(); err != nil {
		return err
	}
	props, err := r.mgr.session.Get(ctx, r.uri)
	if err != nil {
		r.markCeasedOnGone(err)
		return err
	}
	r.mu.Lock()
	r.props = props
	r.full = true
	r.mu.Unlock()
	return nil
}

// UpdateProperties writes props to the HMC and merges them into the local
// bag. A rename moves the name cache entry from the old to the new name.
func (r *ResourceBase) UpdateProperties(ctx context.Context, props Properties) error {
	if err := r.checkCeased(); err != nil {
		return err
	}
	if _, err := r.mgr.session.Post(ctx, r.uri, props); err != nil {
		r.markCeasedOnGone(err)
		return err
	}
	r.mu.Lock()
	oldName, _ := r.props[r.mgr.nameProp].(string)
	for k, v := range props {
		r.props[k] = v
	}
	newName, _ := r.props[r.mgr.nameProp].(string)
	r.mu.Unlock()
	if newName != oldName {
		r.mgr.cache.Delete(oldName)
		r.mgr.cache.Update(newName, r.uri)
	}
	return nil
}

// Delete removes the resource on the HMC, evicts its name cache entry and
// marks the object as ceased to exist.
func (r *ResourceBase) Delete(ctx context.Context) error {
	if err := r.checkCeased(); err != nil {
		return err
	}
	if err := r.mgr.session.Delete(ctx, r.uri); err != nil {
		r.markCeasedOnGone(err)
		return err
	}
	r.markCeased()
	return nil
}

// EnableAutoUpdate marks the object as auto-updated; notification-driven
// property and status changes are then applied to the local bag.
func (r *ResourceBase) EnableAutoUpdate() {
	r.mu.Lock()
	r.autoUpdate = true
	r.mu.Unlock()
}

// DisableAutoUpdate stops applying notification-driven changes.
func (r *ResourceBase) DisableAutoUpdate() {
	r.mu.Lock()
	r.autoUpdate = false
	r.mu.Unlock()
}

// AutoUpdateEnabled reports whether the object is auto-updated.
func (r *ResourceBase) AutoUpdateEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autoUpdate
}

// applyNotification merges notification-reported property changes into the
// local bag of an auto-updated object.
func (r *ResourceBase) applyNotification(props Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.autoUpdate {
		return
	}
	for k, v := range props {
		r.props[k] = v
	}
}

func (r *ResourceBase) markCeased() {
	name := r.Name()
	r.mu.Lock()
	r.ceased = true
	r.mu.Unlock()
	r.mgr.cache.Delete(name)
}

// markCeasedOnGone marks the object ceased when the HMC answered 404 with
// the "resource not found" reason; other 404 flavors do not prove the
// resource is gone.
func (r *ResourceBase) markCeasedOnGone(err error) {
	var he *HTTPError
	if asHTTPError(err, &he) && he.HTTPStatus == 404 && he.Reason == ReasonResourceNotFound {
		r.markCeased()
	}
}

func (r *ResourceBase) checkCeased() error {
	if r.CeasedExistence() {
		return &CeasedExistenceError{URI: r.uri}
	}
	return nil
}

// postOp runs one resource operation: POST to a sub-URI of the resource,
// transparently waiting for an asynchronous job when the HMC answers 202.
// A zero timeout uses the session's operation timeout.
func (r *ResourceBase) postOp(ctx context.Context, op string, body Properties, timeout time.Duration) (Properties, error) {
	if err := r.checkCeased(); err != nil {
		return nil, err
	}
	uri := r.uri + "/operations/" + op
	job, result, err := r.mgr.session.StartPost(ctx, uri, body)
	if err != nil {
		r.markCeasedOnGone(err)
		return nil, err
	}
	if job == nil {
		return result, nil
	}
	if timeout == 0 {
		timeout = r.mgr.session.rt.OperationTimeout
	}
	return job.WaitForCompletion(ctx, timeout)
}

// WaitForStatus polls the resource until its "status" property reaches one
// of the expected values. With allowExceptions, the transient exception
// statuses also satisfy the wait. A zero timeout uses the session's status
// timeout.
func (r *ResourceBase) WaitForStatus(ctx context.Context, expected []string, allowExceptions bool, timeout time.Duration) (string, error) {
	want := make(map[string]bool, len(expected)+1)
	for _, s := range expected {
		want[s] = true
	}
	if allowExceptions {
		want["exceptions"] = true
	}
	if timeout == 0 {
		timeout = r.mgr.session.rt.StatusTimeout
	}
	deadline := time.Now().Add(timeout)

	var last string
	for {
		props, err := r.mgr.session.Get(ctx, r.uri+"?properties=status")
		if err != nil {
			// Not every resource supports the properties query; fall
			// back to the full fetch.
			var he *HTTPError
			if asHTTPError(err, &he) && he.HTTPStatus == 400 {
				props, err = r.mgr.session.Get(ctx, r.uri)
			}
			if err != nil {
				return "", err
			}
		}
		status, _ := props["status"].(string)
		last = status
		if want[status] {
			return status, nil
		}
		if time.Now().After(deadline) {
			exp := make([]string, 0, len(want))
			for s := range want {
				exp = append(exp, s)
			}
			sort.Strings(exp)
			return "", &StatusTimeoutError{
				Resource:         r.uri,
				ActualStatus:     last,
				ExpectedStatuses: exp,
				Timeout:          timeout,
			}
		}
		timer := time.NewTimer(r.mgr.session.rt.StatusPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}
