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

// User management of the console. User, user role, user pattern, password
// rule and LDAP server definition names are matched case-insensitively by
// the HMC; their managers carry that into the name cache and filters.

// UserManager manages the HMC users.
type UserManager struct {
	*Manager[*User]
}

func newUserManager(console *Console) *UserManager {
	core := newManagerCore(console.Session(), console, "user",
		console.URI()+"/users", "/api/users", "users",
		"object-uri", "object-id", "name",
		[]string{"name"}, false, true)
	return &UserManager{Manager: newManager(core, newUser)}
}

// Create creates an HMC user. The props require at least "name", "type"
// and an authentication setting.
func (m *UserManager) Create(ctx context.Context, props Properties) (*User, error) {
	return m.createResource(ctx, props)
}

// User is one HMC user.
type User struct {
	ResourceBase
}

func newUser(core *managerCore, props Properties) *User {
	return &User{ResourceBase: newResourceBase(core, props)}
}

// AddUserRole grants the given user role to the user.
func (u *User) AddUserRole(ctx context.Context, roleURI string) error {
	_, err := u.postOp(ctx, "add-user-role", Properties{"user-role-uri": roleURI}, 0)
	return err
}

// RemoveUserRole revokes the given user role from the user.
func (u *User) RemoveUserRole(ctx context.Context, roleURI string) error {
	_, err := u.postOp(ctx, "remove-user-role", Properties{"user-role-uri": roleURI}, 0)
	return err
}

// UserRoleManager manages the HMC user roles.
type UserRoleManager struct {
	*Manager[*UserRole]
}

func newUserRoleManager(console *Console) *UserRoleManager {
	core := newManagerCore(console.Session(), console, "user-role",
		console.URI()+"/user-roles", "/api/user-roles", "user-roles",
		"object-uri", "object-id", "name",
		[]string{"name", "type"}, false, true)
	return &UserRoleManager{Manager: newManager(core, newUserRole)}
}

// Create creates a user-defined user role.
func (m *UserRoleManager) Create(ctx context.Context, props Properties) (*UserRole, error) {
	return m.createResource(ctx, props)
}

// UserRole is one HMC user role: a named set of object/task permissions.
type UserRole struct {
	ResourceBase
}

func newUserRole(core *managerCore, props Properties) *UserRole {
	return &UserRole{ResourceBase: newResourceBase(core, props)}
}

// AddPermission grants a permission to the role. The permitted object is a
// resource URI, a class name, or a group URI, typed by permittedObjectType
// ("object" or "object-class").
func (r *UserRole) AddPermission(ctx context.Context, permittedObject, permittedObjectType string, includeMembers, viewOnly bool) error {
	body := Properties{
		"permitted-object":      permittedObject,
		"permitted-object-type": permittedObjectType,
	}
	if includeMembers {
		body["include-members"] = true
	}
	if viewOnly {
		body["view-only-mode"] = true
	}
	_, err := r.postOp(ctx, "add-permission", body, 0)
	return err
}

// RemovePermission revokes a permission from the role.
func (r *UserRole) RemovePermission(ctx context.Context, permittedObject, permittedObjectType string) error {
	body := Properties{
		"permitted-object":      permittedObject,
		"permitted-object-type": permittedObjectType,
	}
	_, err := r.postOp(ctx, "remove-permission", body, 0)
	return err
}

// UserPatternManager manages the HMC user patterns.
type UserPatternManager struct {
	*Manager[*UserPattern]
}

func newUserPatternManager(console *Console) *UserPatternManager {
	core := newManagerCore(console.Session(), console, "user-pattern",
		console.URI()+"/user-patterns", "/api/console/user-patterns", "user-patterns",
		"element-uri", "element-id", "name",
		[]string{"name"}, false, true)
	return &UserPatternManager{Manager: newManager(core, newUserPattern)}
}

// Create creates a user pattern.
func (m *UserPatternManager) Create(ctx context.Context, props Properties) (*UserPattern, error) {
	return m.createResource(ctx, props)
}

// UserPattern matches userids to a template user at logon time.
type UserPattern struct {
	ResourceBase
}

func newUserPattern(core *managerCore, props Properties) *UserPattern {
	return &UserPattern{ResourceBase: newResourceBase(core, props)}
}

// PasswordRuleManager manages the HMC password rules.
type PasswordRuleManager struct {
	*Manager[*PasswordRule]
}

func newPasswordRuleManager(console *Console) *PasswordRuleManager {
	core := newManagerCore(console.Session(), console, "password-rule",
		console.URI()+"/password-rules", "/api/console/password-rules", "password-rules",
		"element-uri", "element-id", "name",
		[]string{"name"}, false, true)
	return &PasswordRuleManager{Manager: newManager(core, newPasswordRule)}
}

// Create creates a password rule.
func (m *PasswordRuleManager) Create(ctx context.Context, props Properties) (*PasswordRule, error) {
	return m.createResource(ctx, props)
}

// PasswordRule is one HMC password rule.
type PasswordRule struct {
	ResourceBase
}

func newPasswordRule(core *managerCore, props Properties) *PasswordRule {
	return &PasswordRule{ResourceBase: newResourceBase(core, props)}
}

// LdapServerDefinitionManager manages the HMC LDAP server definitions.
type LdapServerDefinitionManager struct {
	*Manager[*LdapServerDefinition]
}

func newLdapServerDefinitionManager(console *Console) *LdapServerDefinitionManager {
	core := newManagerCore(console.Session(), console, "ldap-server-definition",
		console.URI()+"/ldap-server-definitions", "/api/console/ldap-server-definitions", "ldap-server-definitions",
		"element-uri", "element-id", "name",
		[]string{"name"}, false, true)
	return &LdapServerDefinitionManager{Manager: newManager(core, newLdapServerDefinition)}
}

// Create creates an LDAP server definition.
func (m *LdapServerDefinitionManager) Create(ctx context.Context, props Properties) (*LdapServerDefinition, error) {
	return m.createResource(ctx, props)
}

// LdapServerDefinition describes one LDAP server usable for user
// authentication.
type LdapServerDefinition struct {
	ResourceBase
}

func newLdapServerDefinition(core *managerCore, props Properties) *LdapServerDefinition {
	return &LdapServerDefinition{ResourceBase: newResourceBase(core, props)}
}
