package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

const (
	testGameManagerXML = `<?xml version="1.0"?><plist><dict><k>playerFrame</k><i>7</i><k>playerColor</k><i>1</i><k>playerColor2</k><i>2</i><k>GS_value</k><d><k>6</k><s>320</s></d></dict></plist>`
	testLocalLevelsXML = `<?xml version="1.0"?><plist><dict><k>LLM_01</k><d><k>k_0</k><d><k>k2</k><s>My Level</s></d></d></dict></plist>`
)

type cliEnv struct {
	configPath string
	backupDir  string
	saveDir    string
}

func newCLIEnv(t *testing.T, extra string) *cliEnv {
	t.Helper()
	base := t.TempDir()
	env := &cliEnv{
		configPath: filepath.Join(base, "config.toml"),
		backupDir:  filepath.Join(base, "backups"),
		saveDir:    filepath.Join(base, "save"),
	}

	require.NoError(t, os.MkdirAll(env.saveDir, 0o755))
	codec := savefile.NewCodec()
	for name, xml := range map[string]string{
		savefile.GameManagerFile: testGameManagerXML,
		savefile.LocalLevelsFile: testLocalLevelsXML,
	} {
		data, err := codec.Encode(xml)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(env.saveDir, name), data, 0o644))
	}

	content := fmt.Sprintf(`backup_directory = %q
save_directory = %q
player_name = "tester"
cleanup_limit = 1
%s

[log]
level = "debug"
output = %q
`, env.backupDir, env.saveDir, extra, filepath.Join(base, "gd-backups.log"))
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o600))

	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) backupNames(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.backupDir)
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestCLI_CreateListInfo(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Created backup")

	names := env.backupNames(t)
	require.Len(t, names, 1)

	out, err = env.run(t, "list", "--info")
	require.NoError(t, err)
	assert.Contains(t, out, names[0])
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "tester")
	assert.Contains(t, out, "320")

	out, err = env.run(t, "info", names[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Stars:       320")
	assert.Contains(t, out, "Level names: My Level")
}

func TestCLI_ListEmpty(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No backups")
}

func TestCLI_AutoPreserveDelete(t *testing.T) {
	env := newCLIEnv(t, "")

	_, err := env.run(t, "create", "--auto")
	require.NoError(t, err)
	name := env.backupNames(t)[0]

	out, err := env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "auto (1 backup left)")

	out, err = env.run(t, "preserve", name)
	require.NoError(t, err)
	assert.Contains(t, out, "Preserved backup")
	assert.NoFileExists(t, filepath.Join(env.backupDir, name, "auto-remove.txt"))

	out, err = env.run(t, "delete", name)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted backup")
	assert.Empty(t, env.backupNames(t))

	_, err = env.run(t, "delete", name)
	assert.Error(t, err)
}

func TestCLI_RunRespectsCadence(t *testing.T) {
	env := newCLIEnv(t, `auto_backup_rate = "daily"`)

	out, err := env.run(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Created backup")

	out, err = env.run(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "No backup made (too_recent)")
	assert.Len(t, env.backupNames(t), 1)
}

func TestCLI_RunDisabled(t *testing.T) {
	env := newCLIEnv(t, `auto_backup_rate = "never"`)

	out, err := env.run(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "No backup made (disabled)")
}

func TestCLI_Restore(t *testing.T) {
	env := newCLIEnv(t, "")

	_, err := env.run(t, "create")
	require.NoError(t, err)
	name := env.backupNames(t)[0]

	livePath := filepath.Join(env.saveDir, savefile.GameManagerFile)
	original, err := os.ReadFile(livePath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(livePath, []byte("changed"), 0o644))

	out, err := env.run(t, "restore", name)
	require.NoError(t, err)
	assert.Contains(t, out, "Backed up current progress")
	assert.Contains(t, out, "Restart Geometry Dash")

	restored, err := os.ReadFile(livePath)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.Len(t, env.backupNames(t), 2)
}

func TestCLI_RestoreNoBackupFirst(t *testing.T) {
	env := newCLIEnv(t, "")

	_, err := env.run(t, "create")
	require.NoError(t, err)
	name := env.backupNames(t)[0]

	out, err := env.run(t, "restore", "--no-backup-first", name)
	require.NoError(t, err)
	assert.NotContains(t, out, "Backed up current progress")
	assert.Len(t, env.backupNames(t), 1)
}

func TestCLI_Import(t *testing.T) {
	env := newCLIEnv(t, "")
	foreign := t.TempDir()
	for _, sub := range []string{"a", filepath.Join("b", "c")} {
		dir := filepath.Join(foreign, sub)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, savefile.GameManagerFile), []byte("x"), 0o644))
	}

	out, err := env.run(t, "import", foreign)
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 backups", strings.TrimSpace(out))
	assert.Len(t, env.backupNames(t), 2)
}

func TestCLI_DryRunCreate(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "--dry-run", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Would back up")
	assert.NoDirExists(t, env.backupDir)
}

func TestCLI_CleanupDisabled(t *testing.T) {
	env := newCLIEnv(t, "")
	content, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	updated := strings.Replace(string(content), "cleanup_limit = 1", "cleanup_limit = -1", 1)
	require.NoError(t, os.WriteFile(env.configPath, []byte(updated), 0o600))

	out, err := env.run(t, "cleanup")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleanup is disabled")
}

func TestCLI_FixNested(t *testing.T) {
	env := newCLIEnv(t, "")

	_, err := env.run(t, "create")
	require.NoError(t, err)
	outer := env.backupNames(t)[0]

	nested := filepath.Join(env.backupDir, outer, "inner")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, savefile.LocalLevelsFile), []byte("x"), 0o644))

	out, err := env.run(t, "fix-nested")
	require.NoError(t, err)
	assert.Contains(t, out, "Moved 1 nested backups")
	assert.Len(t, env.backupNames(t), 2)
}

func TestCLI_Version(t *testing.T) {
	env := newCLIEnv(t, "")

	out, err := env.run(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
}
