package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipkero/apply-env/internal/template"
	"github.com/zipkero/apply-env/internal/vars"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newRenderer(p template.Policy) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Renderer{Policy: p, Stdout: &stdout, Stderr: &stderr}, &stdout, &stderr
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: {{A}}"), 0o644))

	got, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "a: {{A}}", got)

	got, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Load("", strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)
}

func TestRenderer_Stdin(t *testing.T) {
	r, stdout, stderr := newRenderer(template.Policy{
		Debug:  true,
		Lookup: vars.Map(map[string]string{"NAME": "world"}),
	})
	r.Stdin = strings.NewReader("Hello {{ NAME }}")
	r.ShowTrace = true

	result := r.RenderFile(context.Background(), "")
	require.NoError(t, result.Error)
	require.NoError(t, r.Emit(result))

	assert.Equal(t, "Hello world", stdout.String())
	assert.Equal(t, "Found [0], orig: \"{{ NAME }}\", apply with: \"world\"\n", stderr.String())
}

func TestRenderer_Rewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image: {{IMAGE}}"), 0o600))

	r, stdout, _ := newRenderer(template.Policy{Lookup: vars.Map(map[string]string{"IMAGE": "nginx"})})
	r.Rewrite = true

	result := r.RenderFile(context.Background(), path)
	require.NoError(t, result.Error)
	assert.True(t, result.Rewritten)
	require.NoError(t, r.Emit(result))
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image: nginx\n", string(data))

	// A second pass has nothing left to substitute and adds no newline.
	result = r.RenderFile(context.Background(), path)
	require.NoError(t, result.Error)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image: nginx\n", string(data))
}

func TestRenderer_RewriteSkipsEmptyOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	r, stdout, _ := newRenderer(template.Policy{})
	r.Rewrite = true

	result := r.RenderFile(context.Background(), path)
	require.NoError(t, result.Error)
	assert.False(t, result.Rewritten)
	require.NoError(t, r.Emit(result))
	assert.Empty(t, stdout.String())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRenderer_Strict(t *testing.T) {
	r, stdout, _ := newRenderer(template.Policy{Lookup: vars.Map(map[string]string{"A": "1"})})
	r.Strict = true
	r.Stdin = strings.NewReader("{{A}} {{B}} {{C}}")

	result := r.RenderFile(context.Background(), "")
	require.ErrorIs(t, result.Error, ErrUnresolved)
	assert.Equal(t, []string{"B", "C"}, result.Unresolved)
	assert.Contains(t, result.Error.Error(), "<stdin>: B, C")

	require.NoError(t, r.Emit(result))
	assert.Empty(t, stdout.String())
}

func TestRenderer_HelmOnly(t *testing.T) {
	r, stdout, _ := newRenderer(template.Policy{Mode: template.ModeHelmOnly})
	r.Stdin = strings.NewReader("value: {{ FOO }}")

	result := r.RenderFile(context.Background(), "")
	require.NoError(t, result.Error)
	require.NoError(t, r.Emit(result))
	assert.Equal(t, "value: {{`{{FOO}}`}}", stdout.String())
}
