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
	"strings"
	"time"
)

// WaitOptions tunes the status wait that follows a state-changing operation.
type WaitOptions struct {
	// AllowStatusExceptions accepts the transient "exceptions" status as a
	// terminal state of the wait.
	AllowStatusExceptions bool
	// OperationTimeout bounds the asynchronous job wait. Zero uses the
	// session's operation timeout.
	OperationTimeout time.Duration
	// StatusTimeout bounds the status wait. Zero uses the session's status
	// timeout.
	StatusTimeout time.Duration
}

// CpcManager manages the CPCs known to the HMC.
type CpcManager struct {
	*Manager[*Cpc]
}

func newCpcManager(session *Session) *CpcManager {
	core := newManagerCore(session, nil, "cpc",
		"/api/cpcs", "/api/cpcs", "cpcs",
		"object-uri", "object-id", "name",
		[]string{"name"}, true, false)
	return &CpcManager{Manager: newManager(core, newCpc)}
}

// Cpc is one Central Processor Complex. In DPM mode its children are
// Partitions; in classic mode Lpars and activation profiles.
type Cpc struct {
	ResourceBase

	// Lpars manages the logical partitions (classic mode).
	Lpars *LparManager
	// Partitions manages the partitions (DPM mode).
	Partitions *PartitionManager
	// Adapters manages the physical and logical adapters.
	Adapters *AdapterManager
	// VirtualSwitches manages the virtual switches (DPM mode).
	VirtualSwitches *VirtualSwitchManager
	// ResetActivationProfiles, ImageActivationProfiles,
	// LoadActivationProfiles and GroupProfiles manage the classic-mode
	// activation profile flavors.
	ResetActivationProfiles *ActivationProfileManager
	ImageActivationProfiles *ActivationProfileManager
	LoadActivationProfiles  *ActivationProfileManager
	GroupProfiles           *ActivationProfileManager
}

func newCpc(core *managerCore, props Properties) *Cpc {
	c := &Cpc{ResourceBase: newResourceBase(core, props)}
	c.Lpars = newLparManager(c)
	c.Partitions = newPartitionManager(c)
	c.Adapters = newAdapterManager(c)
	c.VirtualSwitches = newVirtualSwitchManager(c)
	c.ResetActivationProfiles = newActivationProfileManager(c, ProfileTypeReset)
	c.ImageActivationProfiles = newActivationProfileManager(c, ProfileTypeImage)
	c.LoadActivationProfiles = newActivationProfileManager(c, ProfileTypeLoad)
	c.GroupProfiles = newActivationProfileManager(c, ProfileTypeGroup)
	return c
}

// IsDPMEnabled reports whether the CPC runs in DPM mode.
func (c *Cpc) IsDPMEnabled(ctx context.Context) (bool, error) {
	v, err := c.Prop(ctx, "dpm-enabled")
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// Start starts a DPM-mode CPC and waits until it is active.
func (c *Cpc) Start(ctx context.Context, opts WaitOptions) (string, error) {
	if _, err := c.postOp(ctx, "start", nil, opts.OperationTimeout); err != nil {
		return "", err
	}
	return c.WaitForStatus(ctx, []string{"active", "service"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// Stop stops a DPM-mode CPC and waits until it is not active.
func (c *Cpc) Stop(ctx context.Context, opts WaitOptions) (string, error) {
	if _, err := c.postOp(ctx, "stop", nil, opts.OperationTimeout); err != nil {
		return "", err
	}
	return c.WaitForStatus(ctx, []string{"not-operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// Activate activates a classic-mode CPC with the given reset activation
// profile. Force is required when the CPC is operating.
func (c *Cpc) Activate(ctx context.Context, activationProfileName string, force bool, opts WaitOptions) (string, error) {
	body := Properties{"activation-profile-name": activationProfileName}
	if force {
		body["force"] = true
	}
	if _, err := c.postOp(ctx, "activate", body, opts.OperationTimeout); err != nil {
		return "", err
	}
	return c.WaitForStatus(ctx, []string{"operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// Deactivate deactivates a classic-mode CPC.
func (c *Cpc) Deactivate(ctx context.Context, force bool, opts WaitOptions) (string, error) {
	var body Properties
	if force {
		body = Properties{"force": true}
	}
	if _, err := c.postOp(ctx, "deactivate", body, opts.OperationTimeout); err != nil {
		return "", err
	}
	return c.WaitForStatus(ctx, []string{"no-power"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// ImportProfiles imports activation profiles from the given profile area
// (1..4) into the CPC.
func (c *Cpc) ImportProfiles(ctx context.Context, profileArea int) error {
	_, err := c.postOp(ctx, "import-profiles", Properties{"profile-area": profileArea}, 0)
	return err
}

// ExportProfiles exports the CPC's activation profiles to the given profile
// area (1..4).
func (c *Cpc) ExportProfiles(ctx context.Context, profileArea int) error {
	_, err := c.postOp(ctx, "export-profiles", Properties{"profile-area": profileArea}, 0)
	return err
}

// WWPNInfo is one line of the port name list exported for a partition.
type WWPNInfo struct {
	PartitionName string
	AdapterID     string
	DeviceNumber  string
	WWPN          string
}

// GetWWPNs returns the WWPNs of the HBAs of the given DPM partitions.
func (c *Cpc) GetWWPNs(ctx context.Context, partitions []*Partition) ([]WWPNInfo, error) {
	uris := make([]string, len(partitions))
	for i, p := range partitions {
		uris[i] = p.URI()
	}
	result, err := c.postOp(ctx, "export-port-names-list", Properties{"partitions": uris}, 0)
	if err != nil {
		return nil, err
	}
	lines, _ := result["wwpn-list"].([]any)
	out := make([]WWPNInfo, 0, len(lines))
	for _, l := range lines {
		s, ok := l.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		if len(parts) != 4 {
			continue
		}
		out = append(out, WWPNInfo{
			PartitionName: parts[0],
			AdapterID:     parts[1],
			DeviceNumber:  parts[2],
			WWPN:          parts[3],
		})
	}
	return out, nil
}

// SetPowerSave sets the power save mode ("high-performance", "low-power" or
// "custom").
func (c *Cpc) SetPowerSave(ctx context.Context, powerSaving string) error {
	_, err := c.postOp(ctx, "set-cpc-power-save", Properties{"power-saving": powerSaving}, 0)
	return err
}

// SetPowerCapping sets the power capping state and, when enabled, the cap in
// watts.
func (c *Cpc) SetPowerCapping(ctx context.Context, state string, cap *int) error {
	body := Properties{"power-capping-state": state}
	if cap != nil {
		body["power-cap-current"] = *cap
	}
	_, err := c.postOp(ctx, "set-cpc-power-capping", body, 0)
	return err
}

// GetEnergyManagementProperties returns the energy management data of the
// CPC.
func (c *Cpc) GetEnergyManagementProperties(ctx context.Context) (Properties, error) {
	return c.Session().Get(ctx, c.URI()+"/energy-management-data")
}

// ExportDPMConfiguration returns the DPM configuration of the CPC as an
// opaque property bag.
func (c *Cpc) ExportDPMConfiguration(ctx context.Context) (Properties, error) {
	return c.postOp(ctx, "export-dpm-configuration", nil, 0)
}

// ImportDPMConfiguration applies a previously exported DPM configuration.
// The config is forwarded verbatim; it may carry the optional
// "preserve-uris", "preserve-wwpns" and "adapter-mapping" entries.
func (c *Cpc) ImportDPMConfiguration(ctx context.Context, config Properties) (Properties, error) {
	return c.postOp(ctx, "import-dpm-configuration", config, 0)
}

// ListAssociatedStorageGroups returns the storage groups associated with
// this CPC.
func (c *Cpc) ListAssociatedStorageGroups(ctx context.Context) ([]*StorageGroup, error) {
	m := newStorageGroupManager(c.Session(), nil)
	return m.List(ctx, ListOptions{Filter: Filter{"cpc-uri": c.URI()}})
}

// ValidateLUNPath validates that a SCSI load path is reachable from the CPC.
// The props carry the path description (wwpn, lun, host port).
func (c *Cpc) ValidateLUNPath(ctx context.Context, props Properties) (Properties, error) {
	return c.postOp(ctx, "validate-lun-path", props, 0)
}
