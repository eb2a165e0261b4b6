package criteria

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sqlcriteria/internal/mapping"
	"sqlcriteria/internal/salesmodel"
)

func newSalesRegistry(t *testing.T) *mapping.Registry {
	t.Helper()
	reg, err := salesmodel.Registry()
	require.NoError(t, err)
	return reg
}
