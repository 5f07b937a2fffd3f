package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPage = `<html><head><title>T</title><style>p{}</style></head>
<body><h1>Hello</h1><p> Good morning </p><pre>keep   me</pre><script>var x = 1;</script></body></html>`

// writeConfig 写出使用 raw 提供商和指定设置存储的配置
func writeConfig(t *testing.T, dsn string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagetrans.yaml")
	content := "provider: raw\n" +
		"providers:\n  raw:\n    model: marker\n" +
		"settings_dsn: " + dsn + "\n" +
		"default_language: de\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run 在进程内执行命令并返回标准输出
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test", "none", "unknown")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTranslateCommand(t *testing.T) {
	cfg := writeConfig(t, "memory://")
	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(input, []byte(testPage), 0o644))

	out, err := run(t, "--config", cfg, "translate", input, "--target", "fr")
	require.NoError(t, err)

	output := filepath.Join(dir, "page.fr.html")
	assert.Contains(t, out, output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<h1>[fr] Hello</h1>")
	assert.Contains(t, html, "<p> [fr] Good morning </p>")
	assert.Contains(t, html, "<pre>keep   me</pre>")
	assert.Contains(t, html, "var x = 1;")
	assert.Contains(t, html, "<title>T</title>")
}

func TestTranslateUsesSavedDefault(t *testing.T) {
	cfg := writeConfig(t, "file://"+filepath.Join(t.TempDir(), "settings.toml"))
	dir := t.TempDir()
	input := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(input, []byte(testPage), 0o644))

	// 未保存时使用配置中的默认语言
	_, err := run(t, "--config", cfg, "translate", input, "-o", filepath.Join(dir, "a.html"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "a.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[de] Hello")

	out, err := run(t, "--config", cfg, "settings", "default", "Korean")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ko\t"))

	_, err = run(t, "--config", cfg, "translate", input, "-o", filepath.Join(dir, "b.html"))
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "b.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[ko] Hello")

	out, err = run(t, "--config", cfg, "settings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "_default")
	assert.Contains(t, out, "ko")
}

func TestTranslateUnknownLanguage(t *testing.T) {
	cfg := writeConfig(t, "memory://")
	input := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(input, []byte(testPage), 0o644))

	_, err := run(t, "--config", cfg, "translate", input, "--target", "@@@")
	assert.Error(t, err)
}

func TestDetectCommand(t *testing.T) {
	cfg := writeConfig(t, "memory://")

	out, err := run(t, "--config", cfg, "detect", "--text", "This is a sentence long enough to detect.")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "en\t"))

	_, err = run(t, "--config", cfg, "detect", "--text", "short")
	assert.Error(t, err)

	_, err = run(t, "--config", cfg, "detect")
	assert.Error(t, err)
}

func TestLanguagesCommand(t *testing.T) {
	out, err := run(t, "languages", "--ui", "en")
	require.NoError(t, err)
	for _, code := range []string{"en", "ja", "ko", "zh-Hans", "bn", "hi", "ar", "es", "fr"} {
		assert.Contains(t, out, code)
	}
	assert.Contains(t, out, "Japanese")
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagetrans.yaml")

	_, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)

	out, err := run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "azure")
	assert.Contains(t, out, "viewport")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "-", maskKey(""))
	assert.Equal(t, "****", maskKey("abc"))
	assert.Equal(t, "****6789", maskKey("0123456789"))
}

func TestDefaultOutputFile(t *testing.T) {
	assert.Equal(t, "dir/page.ja.html", defaultOutputFile("dir/page.html", "ja"))
	assert.Equal(t, "page.ko", defaultOutputFile("page", "ko"))
}
