// Package cmdtest holds fixtures shared by command tests.
package cmdtest

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cwemap"
	"github.com/agentstation/cwemap/internal/cmd/application"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/logging"
)

// Source serves a fixed document.
type Source struct {
	Doc *catalog.Document
	Err error
}

// Name implements cwemap.Source.
func (s *Source) Name() string { return "cmdtest" }

// Fetch implements cwemap.Source.
func (s *Source) Fetch(context.Context) (*catalog.Document, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Doc, nil
}

func member(target, view string) map[string]any {
	m := map[string]any{"CWE_ID": target}
	if view != "" {
		m["View_ID"] = view
	}
	return m
}

// Document returns a small catalog: view 1000 holds category 700 and
// weakness 79; category 700 holds weaknesses 20 and 79; weakness 89 is
// deprecated and has no parent.
func Document(version string) *catalog.Document {
	return &catalog.Document{Catalog: catalog.Catalog{
		Version: version,
		Views: []catalog.Record{
			{"ID": "1000", "Status": "Draft", "Name": "Research Concepts", "Members": map[string]any{
				"Has_Member": []any{member("700", ""), member("79", "")},
			}},
		},
		Categories: []catalog.Record{
			{"ID": "700", "Status": "Draft", "Name": "Seven Pernicious Kingdoms", "Relationships": map[string]any{
				"Has_Member": []any{member("20", "1000"), member("79", "1000")},
			}},
		},
		Weaknesses: []catalog.Record{
			{"ID": "20", "Status": "Stable", "Name": "Improper Input Validation"},
			{"ID": "79", "Status": "Stable", "Name": "Cross-site Scripting"},
			{"ID": "89", "Status": "Deprecated", "Name": "SQL Injection"},
		},
		References: []catalog.Record{
			{"Reference_ID": "REF-44", "Title": "24 Deadly Sins of Software Security"},
		},
	}}
}

// NewClient creates a client on a temporary directory fed by src.
func NewClient(t *testing.T, src cwemap.Source) *cwemap.Client {
	t.Helper()
	logging.DisableLoggingForTest(t)
	c, err := cwemap.New(
		cwemap.WithDataDir(filepath.Join(t.TempDir(), "cwe")),
		cwemap.WithFs(afero.NewOsFs()),
		cwemap.WithSource(src),
	)
	require.NoError(t, err)
	return c
}

// InstalledClient creates a client with Document("4.16") installed.
func InstalledClient(t *testing.T) *cwemap.Client {
	t.Helper()
	c := NewClient(t, &Source{Doc: Document("4.16")})
	_, err := c.Update(context.Background())
	require.NoError(t, err)
	return c
}

// Mock returns an application serving c in the given output format.
func Mock(c *cwemap.Client, format string) *application.Mock {
	return &application.Mock{
		ClientFunc: func(...cwemap.Option) (application.Client, error) {
			return c, nil
		},
		OutputFormatFunc: func() string { return format },
	}
}

// Run executes cmd with args and returns what it wrote to stdout.
func Run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(&bytes.Buffer{})
	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}
