package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/metrics-renewal/internal/config"
	"github.com/kingrea/metrics-renewal/internal/logging"
)

const testMetrics = `a:
  m1:
    description: |
      First line.
      Second line.
    data_reviews:
      - url1
    expires: 100
  m2:
    description: Dropped.
    data_reviews:
      - url0
    expires: 100
`

// chdirTools builds <root>/app/metrics.yaml and <root>/tools, then moves the
// process into tools for the duration of the test.
func chdirTools(t *testing.T, decisionCSV string) string {
	t.Helper()
	root := t.TempDir()
	tools := filepath.Join(root, "tools")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.MkdirAll(tools, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "metrics.yaml"), []byte(testMetrics), 0o644))
	if decisionCSV != "" {
		require.NoError(t, os.WriteFile(filepath.Join(tools, "120_expiry_list.csv"), []byte(decisionCSV), 0o644))
	}

	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tools))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return tools
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestWrongArgumentCountIsUsageError(t *testing.T) {
	tools := chdirTools(t, "")
	for _, args := range [][]string{{}, {"120"}, {"120", "url", "extra"}} {
		code, _, stderr := run(args...)
		require.Equal(t, exitUsage, code, "args %v", args)
		require.Contains(t, stderr, usageLine)
	}
	_, err := os.Stat(filepath.Join(tools, config.RenewalDir))
	require.True(t, os.IsNotExist(err), "usage errors must not touch the filesystem")
}

func TestNonIntegerVersionIsUsageError(t *testing.T) {
	tools := chdirTools(t, "")
	code, _, stderr := run("one-twenty", "url2")
	require.Equal(t, exitUsage, code)
	require.Contains(t, stderr, "one-twenty")
	_, err := os.Stat(filepath.Join(tools, config.RenewalDir))
	require.True(t, os.IsNotExist(err))
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	chdirTools(t, "")
	code, _, _ := run("--stdout", "120", "url2")
	require.Equal(t, exitUsage, code)
}

func TestRenewalEndToEnd(t *testing.T) {
	tools := chdirTools(t, "name,keep(Y/N),data_reviews,reason to extend\n"+
		"a.m1,y,['priorurl'],need more data\n"+
		"a.m2,n,['url0'],\n")

	code, stdout, stderr := run("120", "url2")
	require.Equal(t, exitOK, code, stderr)
	require.Contains(t, stdout, "Renewal for version 120")
	require.Contains(t, stdout, "120_filled_renewal_request.txt")

	out, err := os.ReadFile(filepath.Join(tools, "new_metrics.yaml"))
	require.NoError(t, err)
	text := string(out)
	require.Contains(t, text, "description: |\n      First line.\n      Second line.\n")
	require.Contains(t, text, "      - url1\n      - url2\n")
	require.Contains(t, text, "expires: 133\n")
	require.NotContains(t, text, "m2:")

	req, err := os.ReadFile(filepath.Join(tools, "120_filled_renewal_request.txt"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(req), "# Request for Data Collection Renewal\n### Renew for 1 year\nTotal: 1\n"))

	require.Empty(t, stderr)
	requireOnlyOutputs(t, tools, "120_expiry_list.csv", "new_metrics.yaml", "120_filled_renewal_request.txt")
}

func TestLogFileIsOptIn(t *testing.T) {
	tools := chdirTools(t, "name,keep(Y/N),data_reviews,reason to extend\n"+
		"a.m1,y,['priorurl'],need more data\n")
	require.NoError(t, os.WriteFile(filepath.Join(tools, config.FileName), []byte("log_file: true\n"), 0o644))

	code, _, stderr := run("120", "url2")
	require.Equal(t, exitOK, code, stderr)
	require.Empty(t, stderr)

	logData, err := os.ReadFile(filepath.Join(tools, config.RenewalDir, "logs", logging.FileName))
	require.NoError(t, err)
	require.Contains(t, string(logData), "run_id")
	require.Contains(t, string(logData), "outputs written")
}

// requireOnlyOutputs checks that dir holds exactly the named files.
func requireOnlyOutputs(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var got []string
	for _, entry := range entries {
		got = append(got, entry.Name())
	}
	require.ElementsMatch(t, names, got)
}

func TestUnknownMetricFailsWithoutOutputs(t *testing.T) {
	tools := chdirTools(t, "name,keep(Y/N),data_reviews,reason to extend\n"+
		"a.m1,y,['priorurl'],need more data\n"+
		"b.ghost,y,['x'],why\n")

	code, _, stderr := run("120", "url2")
	require.Equal(t, exitFailure, code)
	require.Equal(t, 1, strings.Count(stderr, "unknown metric"), stderr)
	require.Contains(t, stderr, "b.ghost")
	requireOnlyOutputs(t, tools, "120_expiry_list.csv")
}

func TestFailedRunIsRecordedInLogFile(t *testing.T) {
	tools := chdirTools(t, "name,keep(Y/N),data_reviews,reason to extend\n"+
		"b.ghost,y,['x'],why\n")
	require.NoError(t, os.WriteFile(filepath.Join(tools, config.FileName), []byte("log_file: true\n"), 0o644))

	code, _, _ := run("120", "url2")
	require.Equal(t, exitFailure, code)
	for _, name := range []string{"new_metrics.yaml", "120_filled_renewal_request.txt"} {
		_, err := os.Stat(filepath.Join(tools, name))
		require.True(t, os.IsNotExist(err), name)
	}
	logData, err := os.ReadFile(filepath.Join(tools, config.RenewalDir, "logs", logging.FileName))
	require.NoError(t, err)
	require.Contains(t, string(logData), "renewal failed")
}

func TestInvalidKeepFlagFails(t *testing.T) {
	tools := chdirTools(t, "name,keep(Y/N),data_reviews,reason to extend\n"+
		"a.m1,maybe,['priorurl'],\n")

	code, _, stderr := run("120", "url2")
	require.Equal(t, exitFailure, code)
	require.Contains(t, stderr, "maybe")
	requireOnlyOutputs(t, tools, "120_expiry_list.csv")
}

func TestHelpListsAcceptedKeepValues(t *testing.T) {
	chdirTools(t, "")
	code, stdout, _ := run("--help")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, "y, yes, n or no")
}

func TestMissingDecisionListFails(t *testing.T) {
	chdirTools(t, "")
	code, _, stderr := run("120", "url2")
	require.Equal(t, exitFailure, code)
	require.Contains(t, stderr, "input not found")
	require.Contains(t, stderr, "120_expiry_list.csv")
}
