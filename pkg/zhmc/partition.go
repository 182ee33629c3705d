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
)

// PartitionManager manages the partitions of a DPM-mode CPC.
type PartitionManager struct {
	*Manager[*Partition]
}

func newPartitionManager(cpc *Cpc) *PartitionManager {
	core := newManagerCore(cpc.Session(), cpc, "partition",
		cpc.URI()+"/partitions", "/api/partitions", "partitions",
		"object-uri", "object-id", "name",
		[]string{"name", "status", "type"}, true, false)
	return &PartitionManager{Manager: newManager(core, newPartition)}
}

// Create creates a partition on the CPC. The props require at least "name",
// "initial-memory" and "maximum-memory".
func (m *PartitionManager) Create(ctx context.Context, props Properties) (*Partition, error) {
	return m.createResource(ctx, props)
}

// Partition is one partition of a DPM-mode CPC.
type Partition struct {
	ResourceBase

	// Nics, Hbas and VirtualFunctions manage the partition's I/O
	// attachments.
	Nics             *NicManager
	Hbas             *HbaManager
	VirtualFunctions *VirtualFunctionManager
}

func newPartition(core *managerCore, props Properties) *Partition {
	p := &Partition{ResourceBase: newResourceBase(core, props)}
	p.Nics = newNicManager(p)
	p.Hbas = newHbaManager(p)
	p.VirtualFunctions = newVirtualFunctionManager(p)
	return p
}

// Start starts the partition and waits until it is active.
func (p *Partition) Start(ctx context.Context, opts WaitOptions) (string, error) {
	if _, err := p.postOp(ctx, "start", nil, opts.OperationTimeout); err != nil {
		return "", err
	}
	return p.WaitForStatus(ctx, []string{"active", "degraded"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// Stop stops the partition and waits until it is stopped. Stopping is only
// valid from active/degraded/paused/terminated states; others answer with
// HTTP 409.
func (p *Partition) Stop(ctx context.Context, opts WaitOptions) (string, error) {
	if _, err := p.postOp(ctx, "stop", nil, opts.OperationTimeout); err != nil {
		return "", err
	}
	return p.WaitForStatus(ctx, []string{"stopped"}, opts.AllowStatusExceptions, opts.StatusTimeout)
}

// MountISOImage makes a previously uploaded ISO image available to the
// partition.
func (p *Partition) MountISOImage(ctx context.Context, imageName, insFileName string) error {
	body := Properties{"image-name": imageName, "ins-file-name": insFileName}
	_, err := p.postOp(ctx, "mount-iso-image", body, 0)
	return err
}

// UnmountISOImage removes the mounted ISO image from the partition.
func (p *Partition) UnmountISOImage(ctx context.Context) error {
	_, err := p.postOp(ctx, "unmount-iso-image", nil, 0)
	return err
}

// PSWRestart performs a PSW restart on a processor of the partition.
func (p *Partition) PSWRestart(ctx context.Context) error {
	_, err := p.postOp(ctx, "psw-restart", nil, 0)
	return err
}

// StartDumpProgram loads and starts a standalone dump program in the
// partition. The parms describe the dump program's boot source.
func (p *Partition) StartDumpProgram(ctx context.Context, parms Properties) error {
	_, err := p.postOp(ctx, "start-dump-program", parms, 0)
	return err
}

// OpenOSMessageChannel opens the operating system message channel and
// returns its notification topic name.
func (p *Partition) OpenOSMessageChannel(ctx context.Context, includeRefreshMessages bool) (string, error) {
	body := Properties{"include-refresh-messages": includeRefreshMessages}
	result, err := p.postOp(ctx, "open-os-message-channel", body, 0)
	if err != nil {
		return "", err
	}
	topic, _ := result["topic-name"].(string)
	return topic, nil
}

// SendOSCommand sends a command line to the operating system running in the
// partition.
func (p *Partition) SendOSCommand(ctx context.Context, command string, isPriority bool) error {
	body := Properties{"operating-system-command-text": command}
	if isPriority {
		body["is-priority"] = true
	}
	_, err := p.postOp(ctx, "send-os-cmd", body, 0)
	return err
}
