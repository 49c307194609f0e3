package whatsapp

import (
	"go.mau.fi/whatsmeow/types"

	"github.com/ihiteshgupta/whatsapp-dashboard/internal/bridge"
)

// ParseRecipient turns a phone number or transport address into a JID.
func ParseRecipient(recipient string) (types.JID, error) {
	address, err := bridge.FormatAddress(recipient)
	if err != nil {
		return types.JID{}, err
	}

	jid, err := types.ParseJID(address)
	if err != nil {
		return types.JID{}, bridge.ErrInvalidRecipient
	}
	return jid, nil
}
