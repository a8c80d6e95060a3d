package authz

// Evaluator answers capability checks for a subject snapshot against the
// injected policy. It is a pure function of its inputs: no I/O, no mutable
// state, safe for concurrent use, and total over malformed input.
type Evaluator struct {
	policy Policy
}

// NewEvaluator constructs an Evaluator over the given policy.
func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Policy exposes the injected policy for read-only consumers.
func (e *Evaluator) Policy() Policy {
	return e.policy
}

// HasPermission decides whether the subject may perform action on module.
//
// Resolution order: absent subject denies; a non-approved subject holds
// exactly the setup-exempt pairs and nothing else; for approved subjects an
// explicit override for the exact pair wins verbatim (grant or deny), an
// explicit manage grant implies view/create/update, and otherwise the role
// default applies, with the same manage implication. Anything left
// unmatched is denial.
func (e *Evaluator) HasPermission(subject *Subject, module Module, action Action) bool {
	if subject == nil {
		return false
	}
	if !subject.Approved() {
		return e.policy.SetupExempt(module, action)
	}

	if allowed, ok := subject.Overrides[Permission{Module: module, Action: action}]; ok {
		return allowed
	}
	if impliedByManage(action) {
		// An explicit manage grant extends to the implied actions. An
		// explicit manage denial only removes manage itself; the implied
		// pair still falls back to the role default.
		if allowed, ok := subject.Overrides[Permission{Module: module, Action: ActionManage}]; ok && allowed {
			return true
		}
	}

	if e.policy.RoleDefault(subject.Role, module, action) {
		return true
	}
	if impliedByManage(action) && e.policy.RoleDefault(subject.Role, module, ActionManage) {
		return true
	}
	return false
}

// HasAnyManagePermission reports whether the subject holds manage on at
// least one module of the enumeration. Used for admin-menu visibility.
func (e *Evaluator) HasAnyManagePermission(subject *Subject) bool {
	for _, module := range Modules() {
		if e.HasPermission(subject, module, ActionManage) {
			return true
		}
	}
	return false
}

// IsSetupExempt reports whether the pair is reachable before approval.
func (e *Evaluator) IsSetupExempt(module Module, action Action) bool {
	return e.policy.SetupExempt(module, action)
}

func impliedByManage(action Action) bool {
	switch action {
	case ActionView, ActionCreate, ActionUpdate:
		return true
	default:
		return false
	}
}
