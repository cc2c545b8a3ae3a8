package member_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberJSON_Dates(t *testing.T) {
	m := validMember()
	m.CreatedAt = time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "2026-01-05", got["joining_date"])
	assert.Contains(t, got, "dob")
	assert.Nil(t, got["dob"], "missing date of birth")
	assert.Equal(t, "2026-01-05T09:30:00Z", got["created_at"], "instants stay RFC 3339")
	assert.Equal(t, "Rahul Sharma", got["name"])

	m.DOB = time.Date(1990, 10, 18, 0, 0, 0, 0, time.UTC)
	raw, err = json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"dob":"1990-10-18"`)
}
