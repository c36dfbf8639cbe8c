package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func extractJSONField(t *testing.T, body []byte, field string) string {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	value, _ := payload[field].(string)
	return value
}
