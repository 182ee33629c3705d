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

// AdapterManager manages the adapters of a DPM-mode CPC.
type AdapterManager struct {
	*Manager[*Adapter]
}

func newAdapterManager(cpc *Cpc) *AdapterManager {
	core := newManagerCore(cpc.Session(), cpc, "adapter",
		cpc.URI()+"/adapters", "/api/adapters", "adapters",
		"object-uri", "object-id", "name",
		[]string{"name", "adapter-id", "adapter-family", "type", "status"}, true, false)
	return &AdapterManager{Manager: newManager(core, newAdapter)}
}

// CreateHipersocket creates a Hipersockets adapter on the CPC. Physical
// adapters cannot be created; Hipersockets are the only creatable family.
func (m *AdapterManager) CreateHipersocket(ctx context.Context, props Properties) (*Adapter, error) {
	return m.createResource(ctx, props)
}

// Adapter is one physical or logical adapter of a DPM-mode CPC.
type Adapter struct {
	ResourceBase

	// Ports manages the adapter's network or storage ports.
	Ports *PortManager
}

func newAdapter(core *managerCore, props Properties) *Adapter {
	a := &Adapter{ResourceBase: newResourceBase(core, props)}
	a.Ports = newPortManager(a)
	return a
}

// ChangeAdapterType changes the type of a FICON-family adapter ("fc",
// "fcp" or "not-configured"). Changing to the current type answers with
// HTTP 400 reason 8; adapters outside the FICON family with HTTP 400
// reason 18.
func (a *Adapter) ChangeAdapterType(ctx context.Context, newType string) error {
	body := Properties{"type": newType}
	if _, err := a.postOp(ctx, "change-adapter-type", body, 0); err != nil {
		return err
	}
	a.mu.Lock()
	a.props["type"] = newType
	a.mu.Unlock()
	return nil
}

// ChangeCryptoType changes the crypto type of a crypto-family adapter
// ("accelerator", "cca-coprocessor" or "ep11-coprocessor").
func (a *Adapter) ChangeCryptoType(ctx context.Context, cryptoType string, zeroize *bool) error {
	body := Properties{"crypto-type": cryptoType}
	if zeroize != nil {
		body["zeroize"] = *zeroize
	}
	if _, err := a.postOp(ctx, "change-crypto-type", body, 0); err != nil {
		return err
	}
	a.mu.Lock()
	a.props["crypto-type"] = cryptoType
	a.mu.Unlock()
	return nil
}

// portURIs returns the port URIs of the adapter from its port list
// property, fetching full properties once if neither flavor is locally
// known.
func (a *Adapter) portURIs(ctx context.Context) ([]string, error) {
	for _, pulled := range []bool{false, true} {
		if pulled {
			if err := a.PullFullProperties(ctx); err != nil {
				return nil, err
			}
		}
		for _, prop := range []string{"network-port-uris", "storage-port-uris"} {
			if v, ok := a.GetProperty(prop); ok {
				items, _ := v.([]any)
				uris := make([]string, 0, len(items))
				for _, it := range items {
					if s, ok := it.(string); ok {
						uris = append(uris, s)
					}
				}
				return uris, nil
			}
		}
	}
	return nil, nil
}

// PortManager manages the ports of one adapter. Ports are not listed via a
// collection URI; their URIs come from the adapter's port list property.
type PortManager struct {
	*Manager[*Port]
	adapter *Adapter
}

func newPortManager(a *Adapter) *PortManager {
	core := newManagerCore(a.Session(), a, "port",
		"", a.URI(), "",
		"element-uri", "element-id", "name",
		nil, false, false)
	m := &PortManager{adapter: a}
	core.cache = newNameURICache(a.Session().rt.NameURICacheTTL, false, m.listNameURIs)
	m.Manager = newManager(core, newPort)
	return m
}

// List returns the adapter's ports. With FullProperties or a filter, each
// port's properties are fetched; otherwise ports are materialized from
// their URIs alone.
func (m *PortManager) List(ctx context.Context, opts ListOptions) ([]*Port, error) {
	uris, err := m.adapter.portURIs(ctx)
	if err != nil {
		return nil, err
	}
	fetch := opts.FullProperties || len(opts.Filter) > 0
	var out []*Port
	for _, uri := range uris {
		if !fetch {
			p, err := m.ResourceObject(uri, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
			continue
		}
		props, err := m.session.Get(ctx, uri)
		if err != nil {
			return nil, err
		}
		match, merr := matchFilter(props, opts.Filter, false, m.nameProp)
		if merr != nil {
			return nil, merr
		}
		if !match {
			continue
		}
		out = append(out, m.materialize(props))
	}
	return out, nil
}

func (m *PortManager) listNameURIs(ctx context.Context) (map[string]string, error) {
	uris, err := m.adapter.portURIs(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(uris))
	for _, uri := range uris {
		props, err := m.session.Get(ctx, uri)
		if err != nil {
			return nil, err
		}
		if name, _ := props["name"].(string); name != "" {
			out[name] = uri
		}
	}
	return out, nil
}

// Port is one network or storage port of an adapter. Ports are updated,
// never created or deleted.
type Port struct {
	ResourceBase
}

func newPort(core *managerCore, props Properties) *Port {
	return &Port{ResourceBase: newResourceBase(core, props)}
}
