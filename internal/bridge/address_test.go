package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "phone number with plus", input: "+14155552671", want: "14155552671@s.whatsapp.net"},
		{name: "phone number without plus", input: "14155552671", want: "14155552671@s.whatsapp.net"},
		{name: "phone number with spaces and dashes", input: "+1 415-555 2671", want: "14155552671@s.whatsapp.net"},
		{name: "already an address", input: "14155552671@s.whatsapp.net", want: "14155552671@s.whatsapp.net"},
		{name: "missing user", input: "@s.whatsapp.net", wantErr: true},
		{name: "no digits", input: "+() -", wantErr: true},
		{name: "empty input", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bridge.FormatAddress(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, bridge.ErrInvalidRecipient)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
