package journal

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeToken trims a token identifier and rewrites hex addresses in
// checksummed form, so differently cased spellings of one address name the
// same pool. Other identifiers are kept as given.
func NormalizeToken(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("token is required")
	}
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		if !common.IsHexAddress(input) {
			return "", fmt.Errorf("invalid token address: %s", input)
		}
		return common.HexToAddress(input).Hex(), nil
	}
	return input, nil
}
