package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/foldertalk/internal/config"
	"github.com/custodia-labs/foldertalk/internal/core/domain"
)

// execute runs the root command in a fresh working directory.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		configPath = ""
		verbose = false
		_ = configInitCmd.Flags().Set("force", "false")
		_ = extractCmd.Flags().Set("mime", "")
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func tempWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	return dir
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "mcp", "extract", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestConfigInit(t *testing.T) {
	t.Run("writes defaults that load back", func(t *testing.T) {
		dir := tempWorkdir(t)

		out, err := execute(t, "config", "init")
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote foldertalk.toml")

		cfg, err := config.Load(filepath.Join(dir, config.DefaultPath))
		require.NoError(t, err)
		assert.Equal(t, config.Default().Chat.TopK, cfg.Chat.TopK)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		dir := tempWorkdir(t)
		path := filepath.Join(dir, "custom.toml")
		require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o600))

		_, err := execute(t, "config", "init", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "# mine\n", string(data))
	})

	t.Run("force overwrites", func(t *testing.T) {
		dir := tempWorkdir(t)
		path := filepath.Join(dir, "custom.toml")
		require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o600))

		_, err := execute(t, "config", "init", "--force", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[chat]")
	})
}

func TestConfigShow(t *testing.T) {
	t.Run("masks api keys", func(t *testing.T) {
		tempWorkdir(t)
		t.Setenv("OPENAI_API_KEY", "sk-test-123456789")

		out, err := execute(t, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "sk-t****")
		assert.NotContains(t, out, "123456789")
	})

	t.Run("invalid config is reported", func(t *testing.T) {
		dir := tempWorkdir(t)
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[chat]\ntop_k = 0\n"), 0o600))

		_, err := execute(t, "--config", path, "config", "show")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading config")
	})
}

func TestExtract(t *testing.T) {
	t.Run("prints plain text", func(t *testing.T) {
		dir := tempWorkdir(t)
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("The capital of France is Paris."), 0o600))

		out, err := execute(t, "extract", path)
		require.NoError(t, err)
		assert.Contains(t, out, "The capital of France is Paris.")
	})

	t.Run("mime flag overrides the extension", func(t *testing.T) {
		dir := tempWorkdir(t)
		path := filepath.Join(dir, "page.dat")
		require.NoError(t, os.WriteFile(path, []byte("<html><body><p>Hello there</p></body></html>"), 0o600))

		out, err := execute(t, "extract", "--mime", domain.MIMETypeHTML, path)
		require.NoError(t, err)
		assert.Contains(t, out, "Hello there")
		assert.NotContains(t, out, "<p>")
	})

	t.Run("unknown extension", func(t *testing.T) {
		tempWorkdir(t)

		_, err := execute(t, "extract", "blob.bin")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	t.Run("missing file", func(t *testing.T) {
		tempWorkdir(t)

		_, err := execute(t, "extract", "missing.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading missing.txt")
	})
}

func TestMimeForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.txt", domain.MIMETypePlainText},
		{"A.PDF", domain.MIMETypePDF},
		{"report.docx", domain.MIMETypeDOCX},
		{"sheet.xlsx", domain.MIMETypeXLSX},
		{"index.htm", domain.MIMETypeHTML},
		{"data.csv", domain.MIMETypeCSV},
		{"archive.zip", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, mimeForPath(tt.path))
		})
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("short"))
	assert.Equal(t, "sk-a****", mask("sk-abcdefghijk"))
}
