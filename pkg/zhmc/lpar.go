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
	"time"
)

// LparManager manages the logical partitions of a classic-mode CPC.
type LparManager struct {
	*Manager[*Lpar]
}

func newLparManager(cpc *Cpc) *LparManager {
	core := newManagerCore(cpc.Session(), cpc, "logical-partition",
		cpc.URI()+"/logical-partitions", "/api/logical-partitions", "logical-partitions",
		"object-uri", "object-id", "name",
		[]string{"name"}, false, false)
	return &LparManager{Manager: newManager(core, newLpar)}
}

// Lpar is one logical partition of a classic-mode CPC. LPARs are defined by
// activation profiles; they are activated and deactivated, not created and
// deleted.
type Lpar struct {
	ResourceBase
}

func newLpar(core *managerCore, props Properties) *Lpar {
	return &Lpar{ResourceBase: newResourceBase(core, props)}
}

// ActivateOptions tunes Lpar.Activate.
type ActivateOptions struct {
	// ActivationProfileName selects the image activation profile. Empty
	// uses the LPAR's next activation profile.
	ActivationProfileName string
	// Force permits activating an LPAR that is currently operating.
	Force bool
	WaitOptions
}

// Activate activates the LPAR and waits until it is operating or
// not-operating. An LPAR without a bootable OS legitimately ends up
// not-operating, so both count as success.
func (l *Lpar) Activate(ctx context.Context, opts ActivateOptions) (string, error) {
	body := Properties{}
	if opts.ActivationProfileName != "" {
		body["activation-profile-name"] = opts.ActivationProfileName
	}
	if opts.Force {
		body["force"] = true
	}
	if _, err := l.postOp(ctx, "activate", body, opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"operating", "not-operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// Deactivate deactivates the LPAR and waits until it is not-activated. Force
// is required when the LPAR is operating.
func (l *Lpar) Deactivate(ctx context.Context, force bool, opts WaitOptions) (string, error) {
	var body Properties
	if force {
		body = Properties{"force": true}
	}
	if _, err := l.postOp(ctx, "deactivate", body, opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"not-activated"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// LoadOptions tunes the standard Lpar.Load.
type LoadOptions struct {
	// LoadAddress is the device number to load from. Empty uses the
	// last-used load address.
	LoadAddress string
	// LoadParameter is passed to the loaded OS.
	LoadParameter string
	// ClearIndicator clears the LPAR memory before the load. Nil means
	// true, the HMC default.
	ClearIndicator *bool
	// StoreStatusIndicator stores CPU status before the load.
	StoreStatusIndicator bool
	// Force permits loading an LPAR that is currently operating.
	Force bool
	WaitOptions
}

// Load performs a standard (channel-attached device) load and waits until
// the LPAR is operating.
func (l *Lpar) Load(ctx context.Context, opts LoadOptions) (string, error) {
	body := Properties{}
	if opts.LoadAddress != "" {
		body["load-address"] = opts.LoadAddress
	}
	if opts.LoadParameter != "" {
		body["load-parameter"] = opts.LoadParameter
	}
	if opts.ClearIndicator != nil && !*opts.ClearIndicator {
		body["clear-indicator"] = false
	}
	if opts.StoreStatusIndicator {
		body["store-status-indicator"] = true
	}
	if opts.Force {
		body["force"] = true
	}
	if _, err := l.postOp(ctx, "load", body, opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// SCSILoadOptions tunes SCSILoad and SCSIDump.
type SCSILoadOptions struct {
	// LoadAddress is the device number of the FCP adapter port. Required.
	LoadAddress string
	// WWPN is the worldwide port name of the target SCSI device. Required.
	WWPN string
	// LUN is the logical unit number of the target SCSI device. Required.
	LUN string
	// LoadParameter is passed to the loaded OS.
	LoadParameter string
	// DiskPartitionID selects the boot partition on the SCSI device.
	DiskPartitionID *int
	// OSSpecificLoadParameters is passed to the loaded OS verbatim.
	OSSpecificLoadParameters string
	// BootRecordLogicalBlockAddress locates the boot record.
	BootRecordLogicalBlockAddress string
	// Force permits the operation while the LPAR is operating.
	Force bool
	WaitOptions
}

func (o SCSILoadOptions) body() Properties {
	body := Properties{
		"load-address":         o.LoadAddress,
		"world-wide-port-name": o.WWPN,
		"logical-unit-number":  o.LUN,
	}
	if o.LoadParameter != "" {
		body["load-parameter"] = o.LoadParameter
	}
	if o.DiskPartitionID != nil {
		body["disk-partition-id"] = *o.DiskPartitionID
	}
	if o.OSSpecificLoadParameters != "" {
		body["operating-system-specific-load-parameters"] = o.OSSpecificLoadParameters
	}
	if o.BootRecordLogicalBlockAddress != "" {
		body["boot-record-logical-block-address"] = o.BootRecordLogicalBlockAddress
	}
	if o.Force {
		body["force"] = true
	}
	return body
}

// SCSILoad loads the LPAR from a SCSI device and waits until it is
// operating.
func (l *Lpar) SCSILoad(ctx context.Context, opts SCSILoadOptions) (string, error) {
	if _, err := l.postOp(ctx, "scsi-load", opts.body(), opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// SCSIDump loads a standalone dump program from a SCSI device and waits
// until the LPAR is operating.
func (l *Lpar) SCSIDump(ctx context.Context, opts SCSILoadOptions) (string, error) {
	if _, err := l.postOp(ctx, "scsi-dump", opts.body(), opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// NVMeLoadOptions tunes NVMeLoad and NVMeDump.
type NVMeLoadOptions struct {
	// LoadAddress is the device number of the NVMe boot device. Required.
	LoadAddress string
	// LoadParameter is passed to the loaded OS.
	LoadParameter string
	// Force permits the operation while the LPAR is operating.
	Force bool
	WaitOptions
}

func (o NVMeLoadOptions) body() Properties {
	body := Properties{"load-address": o.LoadAddress}
	if o.LoadParameter != "" {
		body["load-parameter"] = o.LoadParameter
	}
	if o.Force {
		body["force"] = true
	}
	return body
}

// NVMeLoad loads the LPAR from an NVMe device and waits until it is
// operating.
func (l *Lpar) NVMeLoad(ctx context.Context, opts NVMeLoadOptions) (string, error) {
	if _, err := l.postOp(ctx, "nvme-load", opts.body(), opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// NVMeDump loads a standalone dump program from an NVMe device and waits
// until the LPAR is operating.
func (l *Lpar) NVMeDump(ctx context.Context, opts NVMeLoadOptions) (string, error) {
	if _, err := l.postOp(ctx, "nvme-dump", opts.body(), opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// Stop stops the processors of an operating LPAR and waits until it is
// not-operating.
func (l *Lpar) Stop(ctx context.Context, opts WaitOptions) (string, error) {
	if _, err := l.postOp(ctx, "stop", nil, opts.OperationTimeout); err != nil {
		return "", err
	}
	return l.WaitForStatus(ctx, []string{"not-operating"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// ResetClear resets the LPAR, clearing its memory.
func (l *Lpar) ResetClear(ctx context.Context, force bool, opts WaitOptions) error {
	var body Properties
	if force {
		body = Properties{"force": true}
	}
	_, err := l.postOp(ctx, "reset-clear", body, opts.OperationTimeout)
	return err
}

// PSWRestart performs a PSW restart on the first available processor of the
// LPAR.
func (l *Lpar) PSWRestart(ctx context.Context, timeout time.Duration) error {
	_, err := l.postOp(ctx, "psw-restart", nil, timeout)
	return err
}

// OpenOSMessageChannel opens the operating system message channel and
// returns its notification topic name. An already open channel answers with
// HTTP 409 reason 331.
func (l *Lpar) OpenOSMessageChannel(ctx context.Context, includeRefreshMessages bool) (string, error) {
	body := Properties{"include-refresh-messages": includeRefreshMessages}
	result, err := l.postOp(ctx, "open-os-message-channel", body, 0)
	if err != nil {
		return "", err
	}
	topic, _ := result["topic-name"].(string)
	return topic, nil
}

// SendOSCommand sends a command line to the operating system running in the
// LPAR.
func (l *Lpar) SendOSCommand(ctx context.Context, command string, isPriority bool) error {
	body := Properties{"operating-system-command-text": command}
	if isPriority {
		body["is-priority"] = true
	}
	_, err := l.postOp(ctx, "send-os-cmd", body, 0)
	return err
}
