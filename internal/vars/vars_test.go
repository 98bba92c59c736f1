package vars

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEnviron(t *testing.T) {
	t.Setenv("APPLY_ENV_TEST_VAR", "from-env")

	v, ok := Environ()("APPLY_ENV_TEST_VAR")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	_, ok = Environ()("APPLY_ENV_TEST_VAR_UNSET")
	assert.False(t, ok)
}

func TestChain(t *testing.T) {
	lookup := Chain(
		Map(map[string]string{"A": "first"}),
		nil,
		Map(map[string]string{"A": "second", "B": "second", "EMPTY": ""}),
	)

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"A", "first", true},
		{"B", "second", true},
		{"EMPTY", "", true},
		{"C", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := lookup(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", `# comment line

FOO=bar
export EXPORTED=yes
DOUBLE="with spaces"
SINGLE='single quoted'
`)

	m, err := LoadEnvFile(path, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"FOO":      "bar",
		"EXPORTED": "yes",
		"DOUBLE":   "with spaces",
		"SINGLE":   "single quoted",
	}, m)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	_, err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEnvFile)
	assert.Contains(t, err.Error(), "missing.env")
}

func TestLoadEnvFile_SkipsMalformedLines(t *testing.T) {
	path := writeFile(t, ".env", `BEFORE=ok
MALFORMED
=no-key
bad key=x
MULTI="first
second"
AFTER=ok
`)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	m, err := LoadEnvFile(path, logger)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"BEFORE": "ok",
		"MULTI":  "first\nsecond",
		"AFTER":  "ok",
	}, m)
	assert.Equal(t, 3, strings.Count(logs.String(), "ignoring malformed line"))
	assert.Contains(t, logs.String(), "line=2")
	assert.Contains(t, logs.String(), "line=4")
}

func TestLoadEnvFile_ValueRules(t *testing.T) {
	path := writeFile(t, ".env", `HOST=example.com
URL="http://${HOST}/a"
RAW='http://${HOST}/a'
NOTE=a # trailing comment
HASH=a#b
`)

	m, err := LoadEnvFile(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "http://example.com/a", m["URL"])
	assert.Equal(t, "http://${HOST}/a", m["RAW"])
	assert.Equal(t, "a", m["NOTE"])
	assert.Equal(t, "a#b", m["HASH"])
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    map[string]string
	}{
		{
			name: "yaml",
			file: "values.yaml",
			content: `image: nginx
port: 8080
enabled: true
db:
  host: localhost
  user: admin
hosts: [a, b]
`,
			want: map[string]string{
				"image":   "nginx",
				"port":    "8080",
				"enabled": "true",
				"db_host": "localhost",
				"db_user": "admin",
				"hosts":   "a,b",
			},
		},
		{
			name: "toml",
			file: "values.toml",
			content: `image = "nginx"
ratio = 1.5

[db]
host = "localhost"
port = 5432
`,
			want: map[string]string{
				"image":   "nginx",
				"ratio":   "1.5",
				"db_host": "localhost",
				"db_port": "5432",
			},
		},
		{
			name:    "json",
			file:    "values.json",
			content: `{"image": "nginx", "port": 8080, "db": {"host": "localhost"}, "tag": null}`,
			want: map[string]string{
				"image":   "nginx",
				"port":    "8080",
				"db_host": "localhost",
				"tag":     "",
			},
		},
		{
			name:    "env fallback",
			file:    "values.env",
			content: "IMAGE=nginx\n",
			want:    map[string]string{"IMAGE": "nginx"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := LoadFile(writeFile(t, tt.file, tt.content), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(writeFile(t, "broken.json", `{"image": `), nil)
	assert.ErrorIs(t, err, ErrVarsFile)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, ErrVarsFile)
}
