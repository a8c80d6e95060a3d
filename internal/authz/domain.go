// Package authz implements the role/permission authorization core. Every
// route and UI capability is expressed as a (module, action) pair and
// resolved against a static role policy plus optional per-user overrides.
// Resolution is total and fail-closed: any input that does not match an
// explicit rule evaluates to denial, never to an error.
package authz

import (
	"encoding/json"
	"strings"
)

// Module identifies a functional area of the application used as the unit
// of access control. The evaluator never interprets a module beyond
// matching it, so values unknown to this build simply never match a rule.
type Module string

// Known modules.
const (
	ModuleDashboard     Module = "dashboard"
	ModuleUsers         Module = "users"
	ModuleEvents        Module = "events"
	ModuleBlog          Module = "blog"
	ModuleProjects      Module = "projects"
	ModuleTransmissions Module = "transmissions"
	ModuleVisitors      Module = "visitors"
	ModuleSettings      Module = "settings"
	ModuleReports       Module = "reports"
	ModuleBackup        Module = "backup"
	ModuleFinance       Module = "finance"
	ModuleDevotionals   Module = "devotionals"
	ModuleForum         Module = "forum"
	ModuleAudit         Module = "audit"
	ModuleNotifications Module = "notifications"
	ModuleAssistidos    Module = "assistidos"
	ModuleMembers       Module = "members"
	ModulePermissions   Module = "permissions"
	ModuleAssistance    Module = "assistance"
	ModuleONG           Module = "ong"
	ModuleAssets        Module = "assets"
	ModuleCommunication Module = "communication"
)

// Action is the verb of a capability check.
type Action string

// Known actions. Manage implies view, create and update for the same
// module; delete is never implied and must be granted explicitly.
const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Role is a coarse-grained subject classification carrying a default
// permission set defined by the policy.
type Role string

// Known roles.
const (
	RoleAdmin        Role = "admin"
	RoleSecretary    Role = "secretary"
	RoleProfessional Role = "professional"
	RoleMember       Role = "member"
	RoleVisitor      Role = "visitor"
)

// Status is the account approval state. Only approved subjects pass
// non-exempt permission checks.
type Status string

// Account statuses.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Modules returns the full module enumeration in a stable order.
func Modules() []Module {
	return []Module{
		ModuleDashboard, ModuleUsers, ModuleEvents, ModuleBlog,
		ModuleProjects, ModuleTransmissions, ModuleVisitors, ModuleSettings,
		ModuleReports, ModuleBackup, ModuleFinance, ModuleDevotionals,
		ModuleForum, ModuleAudit, ModuleNotifications, ModuleAssistidos,
		ModuleMembers, ModulePermissions, ModuleAssistance, ModuleONG,
		ModuleAssets, ModuleCommunication,
	}
}

// Actions returns the full action enumeration in a stable order.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionManage}
}

// Roles returns the full role enumeration in a stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleSecretary, RoleProfessional, RoleMember, RoleVisitor}
}

// KnownModule reports whether m belongs to the module enumeration.
func KnownModule(m Module) bool {
	for _, known := range Modules() {
		if m == known {
			return true
		}
	}
	return false
}

// KnownAction reports whether a belongs to the action enumeration.
func KnownAction(a Action) bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

// KnownRole reports whether r belongs to the role enumeration.
func KnownRole(r Role) bool {
	for _, known := range Roles() {
		if r == known {
			return true
		}
	}
	return false
}

// Permission is a (module, action) capability pair.
type Permission struct {
	Module Module
	Action Action
}

// Key renders the storage/wire form of a permission, e.g. "finance.view".
func (p Permission) Key() string {
	return string(p.Module) + "." + string(p.Action)
}

// ParsePermissionKey splits a "module.action" key. Unknown identifiers
// still parse; they are inert at evaluation time.
func ParsePermissionKey(key string) (Permission, bool) {
	mod, act, ok := strings.Cut(key, ".")
	if !ok || mod == "" || act == "" {
		return Permission{}, false
	}
	return Permission{Module: Module(mod), Action: Action(act)}, true
}

// OverrideSet holds per-subject explicit grants and denials. An entry takes
// precedence verbatim over the role default for the exact pair it names;
// unmentioned pairs fall back to the role default.
type OverrideSet map[Permission]bool

// Grants renders the set in its storage form.
func (o OverrideSet) Grants() map[string]bool {
	if len(o) == 0 {
		return nil
	}
	grants := make(map[string]bool, len(o))
	for perm, allowed := range o {
		grants[perm.Key()] = allowed
	}
	return grants
}

// OverridesFromGrants parses the storage form, dropping malformed keys.
func OverridesFromGrants(grants map[string]bool) OverrideSet {
	if len(grants) == 0 {
		return nil
	}
	set := make(OverrideSet, len(grants))
	for key, allowed := range grants {
		perm, ok := ParsePermissionKey(key)
		if !ok {
			continue
		}
		set[perm] = allowed
	}
	return set
}

// MarshalJSON encodes the set as a {"module.action": bool} object.
func (o OverrideSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Grants())
}

// UnmarshalJSON decodes the {"module.action": bool} object form.
func (o *OverrideSet) UnmarshalJSON(data []byte) error {
	var grants map[string]bool
	if err := json.Unmarshal(data, &grants); err != nil {
		return err
	}
	*o = OverridesFromGrants(grants)
	return nil
}

// Subject is the snapshot of the current user consumed by the evaluator:
// identity, role, approval status and optional overrides. It is loaded by
// the session provider and treated as an opaque read here.
type Subject struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      Role        `json:"role"`
	Status    Status      `json:"status"`
	Overrides OverrideSet `json:"overrides,omitempty"`
}

// Approved reports whether the subject passed administrator approval.
func (s *Subject) Approved() bool {
	return s != nil && s.Status == StatusApproved
}
