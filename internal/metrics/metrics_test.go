package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentstation/cwemap/internal/indexer"
	"github.com/agentstation/cwemap/internal/metrics"
	"github.com/agentstation/cwemap/pkg/catalog"
	pkgerrors "github.com/agentstation/cwemap/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report() *indexer.Report {
	return &indexer.Report{
		Version: "4.16",
		Counts: map[catalog.Group]int{
			catalog.GroupView:      50,
			catalog.GroupCategory:  400,
			catalog.GroupWeakness:  960,
			catalog.GroupReference: 1200,
		},
		Edges: 5000,
		Skipped: []indexer.SkippedRecord{
			{Group: catalog.GroupWeakness, Reason: indexer.ReasonMissingID},
			{Group: catalog.GroupCategory, ID: "18", Reason: indexer.ReasonNoMembers},
			{Group: catalog.GroupCategory, ID: "19", Reason: indexer.ReasonNoMembers},
		},
		Dangling: []indexer.DanglingEdge{{Owner: catalog.GroupCategory, OwnerID: "700", Target: "99999", Missing: "99999"}},
	}
}

// gather flattens the registry into "name/label values" keys.
func gather(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range metric.GetLabel() {
				key += "/" + lp.GetValue()
			}
			switch {
			case metric.GetCounter() != nil:
				values[key] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[key] = metric.GetGauge().GetValue()
			case metric.GetHistogram() != nil:
				values[key] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return values
}

func TestObserveBuild(t *testing.T) {
	m := metrics.New()
	m.ObserveBuild(report(), 3*time.Second, nil)
	m.ObserveBuild(nil, time.Second, errors.New("fetch failed"))

	reg := m.Registry()
	require.NotNil(t, reg)

	count, err := testutil.GatherAndCount(reg, "cwemap_builds_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	values := gather(t, reg)

	assert.Equal(t, 1.0, values["cwemap_builds_total/success"])
	assert.Equal(t, 1.0, values["cwemap_builds_total/failure"])
	assert.Equal(t, 1.0, values["cwemap_build_failures_total/other"])
	assert.Equal(t, 960.0, values["cwemap_entities/weakness"])
	assert.Equal(t, 2.0, values["cwemap_skipped_records_total/no membership section"])
	assert.Equal(t, 1.0, values["cwemap_dangling_edges_total"])
	assert.Equal(t, 5000.0, values["cwemap_edges"])
	assert.Equal(t, 2.0, values["cwemap_build_duration_seconds"])
	assert.Equal(t, 1.0, values["cwemap_catalog_info/4.16"])
}

func TestBuildFailureKinds(t *testing.T) {
	m := metrics.New()
	m.ObserveBuild(nil, time.Second, pkgerrors.NewFetchError("https://cwe.mitre.org", 503, "Service Unavailable"))
	m.ObserveBuild(nil, time.Second, pkgerrors.WrapResource("build", "store", "/data", pkgerrors.WrapIO("write", "/data/index.json", errors.New("disk full"))))
	m.ObserveBuild(nil, time.Second, pkgerrors.WrapParse("xml", "cwec_v4.16.xml", errors.New("unexpected EOF")))
	m.ObserveBuild(nil, time.Second, pkgerrors.NewValidationError("version", "", "missing"))

	values := gather(t, m.Registry())
	for _, kind := range []string{"fetch", "storage", "parse", "validation"} {
		assert.Equal(t, 1.0, values["cwemap_build_failures_total/"+kind], kind)
	}
	assert.Equal(t, 4.0, values["cwemap_builds_total/failure"])
}

func TestSetVersionReplacesPrevious(t *testing.T) {
	m := metrics.New()
	m.SetVersion("4.15")
	m.SetVersion("4.16")

	count, err := testutil.GatherAndCount(m.Registry(), "cwemap_catalog_info")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWriteTextfile(t *testing.T) {
	m := metrics.New()
	m.ObserveBuild(report(), time.Second, nil)

	path := filepath.Join(t.TempDir(), "cwemap.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cwemap_entities{group="category"} 400`)
	assert.Contains(t, string(data), "# TYPE cwemap_builds_total counter")
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveBuild(report(), time.Second, nil)
	m.SetVersion("4.16")
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("/nonexistent/file.prom"))
}
