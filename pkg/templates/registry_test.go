package templates

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/pkg/errors"
)

func TestRegistryLoadAndRender(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "telegram")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	tplPath := filepath.Join(dir, "greeting.tmpl")
	require.NoError(t, os.WriteFile(tplPath, []byte("Hello {{.Name}}\n"), 0o644))

	reg, err := NewRegistry(base)
	require.NoError(t, err)

	tmpl, err := reg.GetTemplate("telegram/greeting")
	require.NoError(t, err)

	rendered, err := tmpl.Render(map[string]string{"Name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice", rendered, "trailing newline is trimmed")

	require.NoError(t, os.WriteFile(tplPath, []byte("Hi {{.Name}}"), 0o644))

	rendered, err = tmpl.Render(map[string]string{"Name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob", rendered, "parsed templates keep their initial content")
}

func TestRegistryLazyLoad(t *testing.T) {
	base := t.TempDir()
	reg, err := NewRegistry(base)
	require.NoError(t, err)

	path := filepath.Join(base, "telegram", "trade_logged.tmpl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("Trade {{.Pair}}"), 0o644))

	rendered, err := reg.Render("telegram/trade_logged", map[string]string{"Pair": "EURUSD"})
	require.NoError(t, err)
	assert.Equal(t, "Trade EURUSD", rendered)
}

func TestRegistryMissingTemplate(t *testing.T) {
	reg, err := NewRegistryFromFS(fstest.MapFS{}, ".")
	require.NoError(t, err)

	_, err = reg.Render("telegram/nope", nil)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRegistryFuncs(t *testing.T) {
	reg, err := NewRegistryFromFS(fstest.MapFS{
		"x/money.tmpl": {Data: []byte("{{money .Amount}} {{signed .Amount}} {{pct .Rate}} {{esc .Name}}")},
	}, ".")
	require.NoError(t, err)

	out, err := reg.Render("x/money", map[string]any{
		"Amount": decimal.RequireFromString("1500.5"),
		"Rate":   33.33,
		"Name":   "a_b",
	})
	require.NoError(t, err)
	assert.Equal(t, "$1,500.50 +$1,500.50 33.33% a\\_b", out)
}

func TestRegistryList(t *testing.T) {
	reg, err := NewRegistryFromFS(fstest.MapFS{
		"b/two.tmpl":   {Data: []byte("2")},
		"a/one.tmpl":   {Data: []byte("1")},
		"a/readme.txt": {Data: []byte("ignored")},
	}, ".")
	require.NoError(t, err)

	assert.Equal(t, []string{"a/one", "b/two"}, reg.List())
}
