package runtimecfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsSane(t *testing.T) {
	d := Default()
	assert.Equal(t, 64, d.Pool.AsyncBufferSize)
	assert.True(t, d.History.Enabled)
	assert.NotEmpty(t, d.Dashboard.RefreshInterval)
}

func TestSetAndCurrentRoundTrip(t *testing.T) {
	orig := Current()
	t.Cleanup(func() { Set(orig) })

	custom := Default()
	custom.Pool.Threads = 7
	Set(custom)

	assert.Equal(t, 7, Current().Pool.Threads)
}

func TestMetadataCoversEveryCategory(t *testing.T) {
	meta := Metadata()
	for _, cat := range CategoryOrder() {
		fields, ok := meta[cat]
		assert.True(t, ok, "category %q missing from metadata", cat)
		assert.NotEmpty(t, fields)
	}
}
