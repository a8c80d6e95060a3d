package authz

// Policy is the immutable role-default table plus the setup-exempt
// allowlist. It is constructed once at startup and injected into the
// evaluator; nothing mutates it after construction.
type Policy struct {
	defaults map[Role]map[Module]actionSet
	exempt   map[Permission]struct{}
}

type actionSet map[Action]struct{}

// RoleGrant declares the allowed actions of one module for a role.
type RoleGrant struct {
	Module  Module
	Actions []Action
}

// NewPolicy builds a Policy from role grant declarations and the
// setup-exempt pairs reachable before approval.
func NewPolicy(defaults map[Role][]RoleGrant, exempt []Permission) Policy {
	table := make(map[Role]map[Module]actionSet, len(defaults))
	for role, grants := range defaults {
		modules := make(map[Module]actionSet, len(grants))
		for _, grant := range grants {
			set, ok := modules[grant.Module]
			if !ok {
				set = make(actionSet, len(grant.Actions))
				modules[grant.Module] = set
			}
			for _, action := range grant.Actions {
				set[action] = struct{}{}
			}
		}
		table[role] = modules
	}
	allow := make(map[Permission]struct{}, len(exempt))
	for _, perm := range exempt {
		allow[perm] = struct{}{}
	}
	return Policy{defaults: table, exempt: allow}
}

// DefaultPolicy is the deploy-time role table for the application.
func DefaultPolicy() Policy {
	manageAll := make([]RoleGrant, 0, len(Modules()))
	for _, module := range Modules() {
		manageAll = append(manageAll, RoleGrant{Module: module, Actions: []Action{ActionManage, ActionDelete}})
	}

	defaults := map[Role][]RoleGrant{
		RoleAdmin: manageAll,
		RoleSecretary: {
			{Module: ModuleDashboard, Actions: []Action{ActionView}},
			{Module: ModuleMembers, Actions: []Action{ActionManage}},
			{Module: ModuleVisitors, Actions: []Action{ActionManage}},
			{Module: ModuleEvents, Actions: []Action{ActionManage}},
			{Module: ModuleAssistance, Actions: []Action{ActionManage}},
			{Module: ModuleAssistidos, Actions: []Action{ActionManage}},
			{Module: ModuleCommunication, Actions: []Action{ActionManage}},
			{Module: ModuleNotifications, Actions: []Action{ActionView, ActionCreate}},
			{Module: ModuleReports, Actions: []Action{ActionView}},
			{Module: ModuleFinance, Actions: []Action{ActionView}},
		},
		RoleProfessional: {
			{Module: ModuleDashboard, Actions: []Action{ActionView}},
			{Module: ModuleAssistance, Actions: []Action{ActionManage}},
			{Module: ModuleAssistidos, Actions: []Action{ActionManage}},
			{Module: ModuleMembers, Actions: []Action{ActionView}},
			{Module: ModuleNotifications, Actions: []Action{ActionView}},
		},
		RoleMember: {
			{Module: ModuleDashboard, Actions: []Action{ActionView}},
			{Module: ModuleEvents, Actions: []Action{ActionView}},
			{Module: ModuleBlog, Actions: []Action{ActionView}},
			{Module: ModuleDevotionals, Actions: []Action{ActionView}},
			{Module: ModuleTransmissions, Actions: []Action{ActionView}},
			{Module: ModuleForum, Actions: []Action{ActionView, ActionCreate}},
			{Module: ModuleNotifications, Actions: []Action{ActionView}},
		},
		RoleVisitor: {
			{Module: ModuleBlog, Actions: []Action{ActionView}},
			{Module: ModuleEvents, Actions: []Action{ActionView}},
			{Module: ModuleDevotionals, Actions: []Action{ActionView}},
			{Module: ModuleTransmissions, Actions: []Action{ActionView}},
		},
	}

	// Pairs reachable before approval: registration and the
	// pending-approval notices surface.
	exempt := []Permission{
		{Module: ModuleUsers, Action: ActionCreate},
		{Module: ModuleNotifications, Action: ActionView},
	}

	return NewPolicy(defaults, exempt)
}

// RoleDefault reports whether the role default grants the exact pair.
// Manage implication is applied by the evaluator, not here.
func (p Policy) RoleDefault(role Role, module Module, action Action) bool {
	modules, ok := p.defaults[role]
	if !ok {
		return false
	}
	set, ok := modules[module]
	if !ok {
		return false
	}
	_, ok = set[action]
	return ok
}

// SetupExempt reports whether the pair is reachable regardless of status.
func (p Policy) SetupExempt(module Module, action Action) bool {
	_, ok := p.exempt[Permission{Module: module, Action: action}]
	return ok
}

// Defaults renders the role table in wire form for the admin UI matrix.
func (p Policy) Defaults() map[Role]map[Module][]Action {
	out := make(map[Role]map[Module][]Action, len(p.defaults))
	for role, modules := range p.defaults {
		byModule := make(map[Module][]Action, len(modules))
		for module, set := range modules {
			actions := make([]Action, 0, len(set))
			for _, action := range Actions() {
				if _, ok := set[action]; ok {
					actions = append(actions, action)
				}
			}
			byModule[module] = actions
		}
		out[role] = byModule
	}
	return out
}

// Exempt lists the setup-exempt pairs in a stable order.
func (p Policy) Exempt() []Permission {
	out := make([]Permission, 0, len(p.exempt))
	for _, module := range Modules() {
		for _, action := range Actions() {
			perm := Permission{Module: module, Action: action}
			if _, ok := p.exempt[perm]; ok {
				out = append(out, perm)
			}
		}
	}
	return out
}
