package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultHeader, cfg.Header)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, "posts", cfg.Table("Post"))
}

func TestOptions(t *testing.T) {
	cfg, err := NewConfig(
		WithPackage("./blog"),
		WithDir("/src"),
		WithRecords("Post", "Tag"),
		WithTable("Post", "blog_posts"),
		WithHeader("custom"),
		WithBuildFlags("-tags", "dev"),
		WithWorkers(3),
	)
	require.NoError(t, err)
	assert.Equal(t, "./blog", cfg.Package)
	assert.Equal(t, "/src", cfg.Dir)
	assert.Equal(t, []string{"Post", "Tag"}, cfg.Records)
	assert.Equal(t, "blog_posts", cfg.Table("Post"))
	assert.Equal(t, "tags", cfg.Table("Tag"))
	assert.Equal(t, "custom", cfg.Header)
	assert.Equal(t, []string{"-tags", "dev"}, cfg.BuildFlags)
	assert.Equal(t, 3, cfg.Workers)
}

func TestOptions_Errors(t *testing.T) {
	tests := map[string]Option{
		"empty package": WithPackage(""),
		"empty record":  WithRecords(""),
		"empty table":   WithTable("Post", ""),
		"zero workers":  WithWorkers(0),
	}
	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfig(opt)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingConfig)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestApplyAll(t *testing.T) {
	cfg := &Config{}
	err := cfg.ApplyAll(WithPackage(""), WithWorkers(-1), WithHeader("h"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Package")
	assert.Contains(t, err.Error(), "Workers")
	assert.Equal(t, "h", cfg.Header)
}

func TestMustNewConfig_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNewConfig(WithPackage("")) })
}
