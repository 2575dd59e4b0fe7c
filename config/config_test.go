package config

import (
	"os"
	"path/filepath"
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *T, contents string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.toml")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidConfig(t *T) {
	path := writeTemp(t, `
vendor = "Example Corp"
product = "pingd"
version = "1.0"
url = "https://example.org/pingd"
listen = "unix:/run/pingd.sock"
interfaces = ["org.example.ping.varlink"]
`)

	c, err := Load(path)
	require.Nil(t, err)
	assert.Equal(t, "Example Corp", c.Vendor)
	assert.Equal(t, "unix:/run/pingd.sock", c.Listen)
	assert.Equal(t, []string{"org.example.ping.varlink"}, c.Interfaces)
}

func TestLoadMissingRequiredField(t *T) {
	path := writeTemp(t, `
vendor = "Example Corp"
product = "pingd"
listen = "unix:/run/pingd.sock"
interfaces = ["org.example.ping.varlink"]
`)

	_, err := Load(path)
	require.NotNil(t, err)
}

func TestLoadMissingFile(t *T) {
	_, err := Load("/nonexistent/path/service.toml")
	require.NotNil(t, err)
}
