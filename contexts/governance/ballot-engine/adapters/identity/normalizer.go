package identity

import (
	"strings"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"

	"github.com/ethereum/go-ethereum/common"
)

// AddressNormalizer maps caller identifiers onto registry keys. Hex account
// addresses are rewritten to their EIP-55 checksum form, so any casing of the
// same account resolves to one voter. Other identifiers pass through trimmed
// unless Strict is set.
type AddressNormalizer struct {
	Strict bool
}

func (n AddressNormalizer) Normalize(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", domainerrors.ErrInvalidAddress
	}
	if common.IsHexAddress(value) {
		address := common.HexToAddress(value)
		if address == (common.Address{}) {
			return "", domainerrors.ErrInvalidAddress
		}
		return address.Hex(), nil
	}
	if n.Strict || looksLikeHex(value) {
		return "", domainerrors.ErrInvalidAddress
	}
	return value, nil
}

func looksLikeHex(value string) bool {
	return strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X")
}
