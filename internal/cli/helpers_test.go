package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/audit"
)

const testDataset = "testdata/dataset.yaml"

// testEnv points every command at a private database and audit directory.
type testEnv struct {
	dir      string
	db       string
	auditDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:      dir,
		db:       filepath.Join(dir, "recon.db"),
		auditDir: filepath.Join(dir, "audit"),
	}
}

// opts returns fresh global options; settings are resolved per command run.
func (e *testEnv) opts(format string) *RootOptions {
	return &RootOptions{
		Format:   format,
		Database: e.db,
		AuditDir: e.auditDir,
		EnvFile:  filepath.Join(e.dir, "missing.env"),
	}
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// load seeds the environment from the shared dataset.
func (e *testEnv) load(t *testing.T, extra ...string) {
	t.Helper()
	_, err := execute(t, NewLoadCommand(e.opts("text")), append([]string{testDataset}, extra...)...)
	require.NoError(t, err)
}

// trail reads back everything in the audit directory.
func (e *testEnv) trail(t *testing.T) []audit.Entry {
	t.Helper()
	store, err := audit.Open(e.auditDir)
	require.NoError(t, err)
	defer store.Close()
	return store.All()
}

func countEvents(entries []audit.Entry, eventType audit.EventType) int {
	n := 0
	for _, e := range entries {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

// decodeData unwraps a JSON CLIResponse into v.
func decodeData(t *testing.T, raw string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp), raw)
	require.Equal(t, "ok", resp.Status, raw)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}
