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
	"net/url"
	"strconv"
	"time"
)

const consoleURI = "/api/console"

// ConsoleManager manages the HMC console itself. There is exactly one
// logical console per HMC; List always returns it alone.
type ConsoleManager struct {
	*Manager[*Console]
}

func newConsoleManager(session *Session) *ConsoleManager {
	core := newManagerCore(session, nil, "console",
		consoleURI, consoleURI, "",
		"object-uri", "object-id", "name",
		nil, false, false)
	m := &ConsoleManager{}
	core.cache = newNameURICache(session.rt.NameURICacheTTL, false, m.listNameURIs)
	m.Manager = newManager(core, newConsole)
	return m
}

// List returns the one console of the HMC. The console always comes back
// with its full property set, so FullProperties has no additional effect.
func (m *ConsoleManager) List(ctx context.Context, opts ListOptions) ([]*Console, error) {
	if len(opts.AdditionalProperties) > 0 {
		return nil, &ConsistencyError{
			Message: fmt.Sprintf("%s manager does not support the properties filter on list", m.className),
		}
	}
	c, err := m.Console(ctx)
	if err != nil {
		return nil, err
	}
	match, merr := matchFilter(c.Properties(), opts.Filter, false, m.nameProp)
	if merr != nil {
		return nil, merr
	}
	if !match {
		return nil, nil
	}
	return []*Console{c}, nil
}

// Console returns the console object with its current properties.
func (m *ConsoleManager) Console(ctx context.Context) (*Console, error) {
	props, err := m.session.Get(ctx, consoleURI)
	if err != nil {
		return nil, err
	}
	if _, ok := props[m.uriProp]; !ok {
		props[m.uriProp] = consoleURI
	}
	return m.materialize(props), nil
}

func (m *ConsoleManager) listNameURIs(ctx context.Context) (map[string]string, error) {
	props, err := m.session.Get(ctx, consoleURI)
	if err != nil {
		return nil, err
	}
	name, _ := props[m.nameProp].(string)
	if name == "" {
		return map[string]string{}, nil
	}
	return map[string]string{name: consoleURI}, nil
}

// Console is the HMC console. It owns the HMC-scoped resources: users,
// roles, patterns, password rules, LDAP server definitions, hardware
// messages, groups, storage groups and tape resources.
type Console struct {
	ResourceBase

	Users                 *UserManager
	UserRoles             *UserRoleManager
	UserPatterns          *UserPatternManager
	PasswordRules         *PasswordRuleManager
	LdapServerDefinitions *LdapServerDefinitionManager
	HwMessages            *HwMessageManager
	Groups                *GroupManager
	StorageGroups         *StorageGroupManager
	TapeLibraries         *TapeLibraryManager
	TapeLinks             *TapeLinkManager
}

func newConsole(core *managerCore, props Properties) *Console {
	c := &Console{ResourceBase: newResourceBase(core, props)}
	c.Users = newUserManager(c)
	c.UserRoles = newUserRoleManager(c)
	c.UserPatterns = newUserPatternManager(c)
	c.PasswordRules = newPasswordRuleManager(c)
	c.LdapServerDefinitions = newLdapServerDefinitionManager(c)
	c.HwMessages = newHwMessageManager(c)
	c.Groups = newGroupManager(c)
	c.StorageGroups = newStorageGroupManager(c.Session(), c)
	c.TapeLibraries = newTapeLibraryManager(c)
	c.TapeLinks = newTapeLinkManager(c)
	return c
}

// Restart restarts the HMC. Force is required while users are logged on.
// The session becomes invalid; the next request re-logs on once the HMC is
// back.
func (c *Console) Restart(ctx context.Context, force bool) error {
	var body Properties
	if force {
		body = Properties{"force": true}
	}
	_, err := c.postOp(ctx, "restart", body, 0)
	return err
}

// Shutdown shuts the HMC down. Force is required while users are logged on.
func (c *Console) Shutdown(ctx context.Context, force bool) error {
	var body Properties
	if force {
		body = Properties{"force": true}
	}
	_, err := c.postOp(ctx, "shutdown", body, 0)
	return err
}

// GetAuditLog returns the audit log entries of the given time window. Zero
// times leave the window open on that side.
func (c *Console) GetAuditLog(ctx context.Context, begin, end time.Time) ([]Properties, error) {
	return c.getLog(ctx, "get-audit-log", begin, end)
}

// GetSecurityLog returns the security log entries of the given time window.
func (c *Console) GetSecurityLog(ctx context.Context, begin, end time.Time) ([]Properties, error) {
	return c.getLog(ctx, "get-security-log", begin, end)
}

func (c *Console) getLog(ctx context.Context, op string, begin, end time.Time) ([]Properties, error) {
	query := url.Values{}
	if !begin.IsZero() {
		query.Set("begin-time", strconv.FormatInt(begin.UnixMilli(), 10))
	}
	if !end.IsZero() {
		query.Set("end-time", strconv.FormatInt(end.UnixMilli(), 10))
	}
	uri := c.URI() + "/operations/" + op
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	props, err := c.Session().Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	return propsList(props, "log-items"), nil
}

// ListPermittedPartitions returns minimal property bags for the DPM
// partitions the logged-on user may access, across all managed CPCs.
func (c *Console) ListPermittedPartitions(ctx context.Context, filter Filter) ([]Properties, error) {
	return c.listPermitted(ctx, "list-permitted-partitions", "partitions", filter)
}

// ListPermittedLpars returns minimal property bags for the classic-mode
// LPARs the logged-on user may access, across all managed CPCs.
func (c *Console) ListPermittedLpars(ctx context.Context, filter Filter) ([]Properties, error) {
	return c.listPermitted(ctx, "list-permitted-logical-partitions", "logical-partitions", filter)
}

func (c *Console) listPermitted(ctx context.Context, op, field string, filter Filter) ([]Properties, error) {
	query := url.Values{}
	for k, v := range filter {
		appendQueryValues(query, k, v)
	}
	uri := c.URI() + "/operations/" + op
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	props, err := c.Session().Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	return propsList(props, field), nil
}

func propsList(props Properties, field string) []Properties {
	items, _ := props[field].([]any)
	out := make([]Properties, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, Properties(m))
		}
	}
	return out
}
