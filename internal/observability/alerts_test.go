package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertGroup struct {
	Name  string      `yaml:"name"`
	Rules []alertRule `yaml:"rules"`
}

type alertFile struct {
	Groups []alertGroup `yaml:"groups"`
}

var metricRef = regexp.MustCompile(`quill_[a-z_]+`)

func loadAlerts(t *testing.T) alertFile {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "quill.yml"))
	require.NoError(t, err)
	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	return file
}

func TestAlertRules(t *testing.T) {
	file := loadAlerts(t)

	expected := map[string]string{
		"HighErrorRate":    "critical",
		"HighLatency":      "warning",
		"AuthFailureSpike": "warning",
		"MailJobFailures":  "warning",
	}
	seen := map[string]bool{}
	for _, group := range file.Groups {
		for _, rule := range group.Rules {
			severity, ok := expected[rule.Alert]
			require.True(t, ok, "unexpected rule %q", rule.Alert)
			seen[rule.Alert] = true
			assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
			assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
			assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)
			assert.Regexp(t, `^docs/runbook\.md#`, rule.Annotations["runbook"], rule.Alert)
			assert.NotEmpty(t, rule.For, rule.Alert)
			assert.NotEmpty(t, rule.Expr, rule.Alert)
		}
	}
	assert.Len(t, seen, len(expected))
}

func TestAlertRulesReferenceExportedHTTPMetrics(t *testing.T) {
	file := loadAlerts(t)
	exported := map[string]bool{
		"quill_http_requests_total":                  true,
		"quill_http_request_duration_seconds_bucket": true,
		"quill_http_auth_failures_total":             true,
	}
	for _, group := range file.Groups {
		if group.Name != "quill-api" {
			continue
		}
		for _, rule := range group.Rules {
			for _, name := range metricRef.FindAllString(rule.Expr, -1) {
				assert.True(t, exported[name], "%s references unknown metric %s", rule.Alert, name)
			}
		}
	}

	m := NewMetrics()
	// Vec metrics only appear after their first observation.
	m.requestsTotal.WithLabelValues("/", "GET", "200").Inc()
	m.requestDuration.WithLabelValues("/").Observe(0.1)
	m.authFailures.WithLabelValues("/", "401").Inc()
	families, err := m.registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["quill_http_requests_total"])
	assert.True(t, names["quill_http_request_duration_seconds"])
	assert.True(t, names["quill_http_auth_failures_total"])
}
