package get_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cwemap/cmd/cwemap/cmd/get"
	"github.com/agentstation/cwemap/internal/cmd/cmdtest"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
)

func TestGet(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	tests := []struct {
		name  string
		args  []string
		group catalog.Group
		id    string
	}{
		{"numeric id", []string{"79"}, catalog.GroupWeakness, "79"},
		{"prefixed id", []string{"CWE-700"}, catalog.GroupCategory, "700"},
		{"explicit group", []string{"1000", "--group", "view"}, catalog.GroupView, "1000"},
		{"reference", []string{"REF-44"}, catalog.GroupReference, "REF-44"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "json")), tt.args...)
			require.NoError(t, err)

			var e catalog.Entity
			require.NoError(t, json.Unmarshal([]byte(out), &e))
			assert.Equal(t, tt.group, e.Group)
			assert.Equal(t, tt.id, e.ID)
		})
	}
}

func TestGetRelations(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	out, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "json")), "20")
	require.NoError(t, err)

	var e catalog.Entity
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.Equal(t, []string{"700"}, e.MemberOf[catalog.GroupCategory])
	assert.Equal(t, []string{"1000"}, e.MemberOf[catalog.GroupView])
	assert.Equal(t, "https://cwe.mitre.org/data/definitions/20.html", e.URL)
}

func TestGetTable(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	out, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "table")), "700")
	require.NoError(t, err)
	assert.Contains(t, out, "Seven Pernicious Kingdoms")
	assert.Contains(t, out, "20, 79")
}

func TestGetPayload(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	out, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "table")), "79", "--payload")
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "Cross-site Scripting", payload["Name"])
}

func TestGetErrors(t *testing.T) {
	client := cmdtest.InstalledClient(t)

	t.Run("unknown id", func(t *testing.T) {
		_, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "json")), "99999")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("wrong group", func(t *testing.T) {
		_, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "json")), "79", "-g", "view")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("invalid group", func(t *testing.T) {
		_, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(client, "json")), "79", "-g", "widgets")
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("not installed", func(t *testing.T) {
		empty := cmdtest.NewClient(t, &cmdtest.Source{})
		_, err := cmdtest.Run(t, get.NewCommand(cmdtest.Mock(empty, "json")), "79")
		assert.True(t, errors.IsNotInstalled(err))
	})
}
