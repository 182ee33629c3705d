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

// Activation profile flavors of a classic-mode CPC.
const (
	ProfileTypeReset = "reset"
	ProfileTypeImage = "image"
	ProfileTypeLoad  = "load"
	ProfileTypeGroup = "group"
)

// profileSegment maps a profile flavor to its URI segment, which doubles as
// the result field of the list response.
func profileSegment(profileType string) string {
	if profileType == ProfileTypeGroup {
		return "group-profiles"
	}
	return profileType + "-activation-profiles"
}

func profileClassName(profileType string) string {
	if profileType == ProfileTypeGroup {
		return "group-profile"
	}
	return profileType + "-activation-profile"
}

// ActivationProfileManager manages one flavor of activation profiles of a
// classic-mode CPC.
type ActivationProfileManager struct {
	*Manager[*ActivationProfile]
	profileType string
}

func newActivationProfileManager(cpc *Cpc, profileType string) *ActivationProfileManager {
	segment := profileSegment(profileType)
	core := newManagerCore(cpc.Session(), cpc, profileClassName(profileType),
		cpc.URI()+"/"+segment, cpc.URI()+"/"+segment, segment,
		"element-uri", "element-id", "name",
		[]string{"name"}, false, false)
	return &ActivationProfileManager{
		Manager:     newManager(core, newActivationProfile),
		profileType: profileType,
	}
}

// ProfileType returns the flavor of the managed profiles ("reset", "image",
// "load" or "group").
func (m *ActivationProfileManager) ProfileType() string { return m.profileType }

// ActivationProfile is one activation profile of a classic-mode CPC.
// Profiles exist per LPAR definition; they are updated, never created or
// deleted through this API.
type ActivationProfile struct {
	ResourceBase
}

func newActivationProfile(core *managerCore, props Properties) *ActivationProfile {
	return &ActivationProfile{ResourceBase: newResourceBase(core, props)}
}
