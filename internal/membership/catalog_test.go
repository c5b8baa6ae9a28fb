package membership_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/staffgate/internal/membership"
	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := membership.DefaultCatalog()
	assert.Equal(t, "Hello, Ann! Glad to see you here.", c.Text("greeting", "name", "Ann"))
	assert.NotEmpty(t, c.Badge(domain.RoleAdmin))
	assert.NotEmpty(t, c.Access[domain.RoleEmployee])
	assert.Equal(t, "congratulation", c.Stickers.Congratulation)
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
texts:
  greeting: "Привіт, {name}!"
stickers:
  congratulation: "CAACAgIAAx0"
`), 0o644))

	c, err := membership.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "Привіт, Ann!", c.Text("greeting", "name", "Ann"))
	assert.Equal(t, "CAACAgIAAx0", c.Stickers.Congratulation)
	assert.Equal(t, "regret", c.Stickers.Regret)
	assert.Equal(t, membership.DefaultCatalog().Text("wait"), c.Text("wait"), "keys absent from the override keep their default")
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := membership.LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("texts: [unterminated"), 0o644))
	_, err = membership.LoadCatalog(path)
	assert.Error(t, err)

	c, err := membership.LoadCatalog("")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
