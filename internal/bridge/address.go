package bridge

import (
	"errors"
	"regexp"
	"strings"
)

// UserServer is the address domain of individual WhatsApp accounts.
const UserServer = "s.whatsapp.net"

// ErrInvalidRecipient is returned when a phone number has no digits or an address is malformed.
var ErrInvalidRecipient = errors.New("invalid recipient")

var nonDigits = regexp.MustCompile(`[^\d]`)

// FormatAddress returns the transport address for a phone number such as
// "+1 415-555-2671", i.e. 14155552671@s.whatsapp.net. Inputs that already
// carry a server part are returned unchanged.
func FormatAddress(recipient string) (string, error) {
	if user, server, ok := strings.Cut(recipient, "@"); ok {
		if user == "" || server == "" {
			return "", ErrInvalidRecipient
		}
		return recipient, nil
	}

	phone := nonDigits.ReplaceAllString(recipient, "")
	if phone == "" {
		return "", ErrInvalidRecipient
	}
	return phone + "@" + UserServer, nil
}
