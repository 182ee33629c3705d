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

// HwMessageManager manages the hardware messages of the console. Hardware
// messages have no display name; the element id stands in for it.
type HwMessageManager struct {
	*Manager[*HwMessage]
}

func newHwMessageManager(console *Console) *HwMessageManager {
	core := newManagerCore(console.Session(), console, "hardware-message",
		console.URI()+"/hardware-messages", console.URI()+"/hardware-messages", "hardware-messages",
		"element-uri", "element-id", "element-id",
		nil, false, false)
	return &HwMessageManager{Manager: newManager(core, newHwMessage)}
}

// HwMessage is one hardware message of the console.
type HwMessage struct {
	ResourceBase
}

func newHwMessage(core *managerCore, props Properties) *HwMessage {
	return &HwMessage{ResourceBase: newResourceBase(core, props)}
}

// RequestService requests IBM service for the problem described by the
// message.
func (h *HwMessage) RequestService(ctx context.Context, props Properties) error {
	_, err := h.postOp(ctx, "request-service", props, 0)
	return err
}

// DeclineService declines IBM service for the problem described by the
// message.
func (h *HwMessage) DeclineService(ctx context.Context) error {
	_, err := h.postOp(ctx, "decline-service", nil, 0)
	return err
}

// GetServiceInformation returns the service details of the message.
func (h *HwMessage) GetServiceInformation(ctx context.Context) (Properties, error) {
	return h.Session().Get(ctx, h.URI()+"/service-information")
}
