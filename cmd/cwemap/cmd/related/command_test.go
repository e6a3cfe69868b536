package related_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cwemap/cmd/cwemap/cmd/related"
	"github.com/agentstation/cwemap/internal/cmd/cmdtest"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
)

func TestRelated(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"view categories", []string{"1000", "has_member", "category"}, []string{"700"}},
		{"view weaknesses", []string{"CWE-1000", "children", "weakness"}, []string{"79"}},
		{"category members", []string{"700", "has-member", "weakness"}, []string{"20", "79"}},
		{"weakness parents", []string{"79", "member_of", "category"}, []string{"700"}},
		{"weakness views", []string{"20", "parents", "view"}, []string{"1000"}},
		{"orphan", []string{"89", "member_of", "category"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := cmdtest.Run(t, related.NewCommand(cmdtest.Mock(client, "json")), tt.args...)
			require.NoError(t, err)

			var rel related.Relationship
			require.NoError(t, json.Unmarshal([]byte(out), &rel))
			assert.Equal(t, tt.want, rel.IDs)
		})
	}
}

func TestRelatedCanonicalOwner(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	out, err := cmdtest.Run(t, related.NewCommand(cmdtest.Mock(client, "json")), "CWE-0700", "has_member", "weakness")
	require.NoError(t, err)

	var rel related.Relationship
	require.NoError(t, json.Unmarshal([]byte(out), &rel))
	assert.Equal(t, "700", rel.ID)
	assert.Equal(t, catalog.HasMember, rel.Direction)
	assert.Equal(t, catalog.GroupWeakness, rel.Group)
}

func TestRelatedTable(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	out, err := cmdtest.Run(t, related.NewCommand(cmdtest.Mock(client, "table")), "700", "has_member", "weakness")
	require.NoError(t, err)
	assert.Contains(t, out, "Improper Input Validation")
	assert.Contains(t, out, "Cross-site Scripting")
	assert.NotContains(t, out, "SQL Injection")
}

func TestRelatedErrors(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	tests := []struct {
		name  string
		args  []string
		check func(error) bool
	}{
		{"bad direction", []string{"79", "sideways", "view"}, errors.IsValidationError},
		{"reference target", []string{"79", "member_of", "reference"}, errors.IsValidationError},
		{"unknown id", []string{"4242", "member_of", "view"}, errors.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cmdtest.Run(t, related.NewCommand(cmdtest.Mock(client, "json")), tt.args...)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}
