package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateUnmarshalDateOnly(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-07-01"`), &d))
	assert.Equal(t, NewDate(2026, time.July, 1), d)
}

func TestDateUnmarshalRFC3339(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-07-01T10:30:00Z"`), &d))
	assert.Equal(t, 2026, d.Year())
	assert.Equal(t, time.July, d.Month())
	assert.Equal(t, 1, d.Day())
}

func TestDateUnmarshalInvalid(t *testing.T) {
	var d Date
	require.Error(t, json.Unmarshal([]byte(`"01.07.2026"`), &d))
}

func TestDateMarshalRendersDateOnly(t *testing.T) {
	raw, err := json.Marshal(NewDate(2026, time.July, 1))
	require.NoError(t, err)
	assert.Equal(t, `"2026-07-01"`, string(raw))
}

func TestFieldSetsRoundTrip(t *testing.T) {
	fields := FieldSets{{
		FirstName:   "Jane",
		LastName:    "Smith",
		Pesel:       "90010112345",
		PhoneNumber: "+48123456789",
		Cost:        150,
		Date:        NewDate(2026, time.July, 1),
		Email:       "jane@example.com",
	}}

	value, err := fields.Value()
	require.NoError(t, err)

	var scanned FieldSets
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, fields, scanned)
}
