package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStandardizeStatus verifies the fixed phrase table.
func TestStandardizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want Status
	}{
		{"Scheduled", StatusScheduled},
		{"Not Departed", StatusScheduled},
		{"Taxiing / Left Gate", StatusTaxiing},
		{"Taxi", StatusTaxiing},
		{"En Route / On Time", StatusActive},
		{"En Route / Delayed", StatusActive},
		{"Departed", StatusActive},
		{"In-Air", StatusActive},
		{"Landed / Gate Arrival", StatusCompleted},
		{"Arrived / Delayed", StatusCompleted},
		{"landed", StatusCompleted},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, StandardizeStatus(tc.raw), "raw=%q", tc.raw)
	}
}

// TestStandardizeStatus_Total verifies every input maps to a canonical value.
func TestStandardizeStatus_Total(t *testing.T) {
	inputs := []string{"", "   ", "/", "result unknown", "Diverted", "weird / / input", "ENROUTE"}

	canon := map[Status]bool{
		StatusScheduled: true,
		StatusTaxiing:   true,
		StatusActive:    true,
		StatusCompleted: true,
		StatusUnknown:   true,
	}

	for _, raw := range inputs {
		got := StandardizeStatus(raw)
		assert.True(t, canon[got], "raw=%q produced %q", raw, got)
	}

	assert.Equal(t, StatusUnknown, StandardizeStatus(""))
	assert.Equal(t, StatusUnknown, StandardizeStatus("Diverted"))
}
