package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractState(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"abbreviation with zip", "321 Oak St, Ocala, FL 34471", "FL"},
		{"abbreviation lowercase", "321 oak st, ocala, fl 34471", "FL"},
		{"zip plus four", "100 Main St, Austin, TX 78701-1234", "TX"},
		{"comma before zip", "100 Main St, Austin, TX, 78701", "TX"},
		{"spelled-out name", "55 Elm Street, Springfield, Illinois", "IL"},
		{"two-word name", "9 Beach Rd, Wilmington, North Carolina", "NC"},
		{"west virginia over virginia", "1 Coal Rd, Beckley, West Virginia", "WV"},
		{"arkansas over kansas", "2 River Rd, Little Rock, Arkansas", "AR"},
		{"invalid abbreviation ignored", "7 Rue de Paris, QQ 12345", ""},
		{"no state at all", "742 Evergreen Terrace", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractState(tt.address))
		})
	}
}
