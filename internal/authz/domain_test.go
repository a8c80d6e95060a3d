package authz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermissionKey(t *testing.T) {
	perm, ok := ParsePermissionKey("finance.view")
	require.True(t, ok)
	assert.Equal(t, Permission{Module: ModuleFinance, Action: ActionView}, perm)
	assert.Equal(t, "finance.view", perm.Key())

	// Unknown identifiers parse; the evaluator treats them as inert.
	perm, ok = ParsePermissionKey("warpcore.eject")
	require.True(t, ok)
	assert.False(t, KnownModule(perm.Module))

	for _, malformed := range []string{"", "finance", ".view", "finance.", "."} {
		_, ok := ParsePermissionKey(malformed)
		assert.False(t, ok, "key %q should not parse", malformed)
	}
}

func TestOverridesFromGrantsDropsMalformedKeys(t *testing.T) {
	set := OverridesFromGrants(map[string]bool{
		"forum.manage": true,
		"members.view": false,
		"notakey":      true,
	})
	require.Len(t, set, 2)
	assert.True(t, set[Permission{Module: ModuleForum, Action: ActionManage}])
	allowed, ok := set[Permission{Module: ModuleMembers, Action: ActionView}]
	require.True(t, ok)
	assert.False(t, allowed)

	assert.Nil(t, OverridesFromGrants(nil))
	assert.Nil(t, OverrideSet(nil).Grants())
}

func TestSubjectJSONCarriesOverrides(t *testing.T) {
	subject := Subject{
		ID:     7,
		Email:  "mod@amparo.local",
		Role:   RoleMember,
		Status: StatusApproved,
		Overrides: OverrideSet{
			{Module: ModuleForum, Action: ActionManage}: true,
		},
	}
	payload, err := json.Marshal(subject)
	require.NoError(t, err)

	var decoded Subject
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, subject.Overrides, decoded.Overrides)
	assert.True(t, decoded.Approved())
}
