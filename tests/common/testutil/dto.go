//go:build unit || e2e

package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// Mutation edits a DTO after it has been flattened to its JSON shape.
type Mutation func(map[string]any)

// DtoMap flattens v through its JSON tags so tests can break one field at a time.
func DtoMap(t *testing.T, v any, muts ...Mutation) map[string]any {
	t.Helper()

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	m := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &m))

	for _, mut := range muts {
		mut(m)
	}
	return m
}

// Field overwrites key; a nil value drops it.
func Field(key string, value any) Mutation {
	if value == nil {
		return Without(key)
	}
	return func(m map[string]any) { m[key] = value }
}

func Without(key string) Mutation {
	return func(m map[string]any) { delete(m, key) }
}
