package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource(t *testing.T) {
	driver, err := Source()
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = driver.Close()
	})

	first, err := driver.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)
}
