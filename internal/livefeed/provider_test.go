package livefeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("sim")
	require.NoError(t, err)
	assert.IsType(t, &SimProvider{}, provider)
}

func TestNewProviderRejectsUnknownNames(t *testing.T) {
	for _, name := range []string{"", "tiktok", "SIM"} {
		provider, err := NewProvider(name)
		assert.Error(t, err, name)
		assert.Nil(t, provider)
	}
}
