package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugindex/plugindex/internal/model"
)

func testMarketplace() *model.Marketplace {
	return &model.Marketplace{
		Repo:         "Acme/Tools",
		Slug:         "acme-tools",
		PluginCount:  2,
		DiscoveredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Source:       model.SourceAuto,
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"name": "acme",
		"plugins": [
			{
				"name": "formatter",
				"description": "Formats code",
				"source": "./plugins/formatter",
				"version": "1.2.0",
				"category": "dev",
				"keywords": ["fmt", "style"],
				"commands": ["commands/fmt.md"],
				"author": {"name": "Jo", "email": "jo@acme.dev"}
			},
			{"name": "linter", "description": "Lints code", "source": "./plugins/linter"}
		]
	}`)

	plugins, diags, err := Extract(testMarketplace(), raw)
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, plugins, 2)

	formatter := plugins[0]
	assert.Equal(t, "acme-tools/formatter", formatter.ID)
	assert.Equal(t, "acme-tools", formatter.Marketplace)
	assert.Equal(t, "https://github.com/Acme/Tools", formatter.MarketplaceURL)
	assert.Equal(t, "claude plugin install formatter@acme-tools", formatter.InstallCommand)
	assert.Equal(t, "1.2.0", formatter.Version)
	assert.Equal(t, []string{"commands/fmt.md"}, formatter.Commands)
	require.NotNil(t, formatter.Author)
	assert.Equal(t, "Jo", formatter.Author.Name)

	lint := plugins[1]
	assert.Equal(t, "acme-tools/linter", lint.ID)
	// Absent optional fields stay absent.
	assert.Empty(t, lint.Version)
	assert.Nil(t, lint.Author)
	assert.Nil(t, lint.Keywords)
	assert.Nil(t, lint.Commands)
}

func TestExtractIdempotent(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"name": "acme", "plugins": [
		{"name": "a", "source": "./a", "category": "dev"},
		{"name": "b", "source": "./b"}
	]}`)

	first, _, err := Extract(testMarketplace(), raw)
	require.NoError(t, err)
	second, _, err := Extract(testMarketplace(), raw)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractDuplicateNameLaterWins(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"name": "acme", "plugins": [
		{"name": "x", "description": "first", "source": "./first"},
		{"name": "x", "description": "second", "source": "./second"}
	]}`)

	plugins, diags, err := Extract(testMarketplace(), raw)
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "acme-tools/x", plugins[0].ID)
	assert.Equal(t, "second", plugins[0].Description)
	assert.Equal(t, "./second", plugins[0].Source)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "duplicate plugin name")
}

func TestExtractMalformed(t *testing.T) {
	t.Parallel()

	_, _, err := Extract(testMarketplace(), []byte(`{`))
	require.Error(t, err)
}
