package workflow

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Argument keys accepted from the invoking scheduler.
const (
	ArgOracle      = "oracle"
	ArgUserAddress = "userAddress"
	ArgCurrency    = "currency"
)

// Fallbacks substituted verbatim for absent arguments.
const (
	DefaultOracle      = "0x59FA68250a6EBD6b89c7828AEec472DB3BaC0279"
	DefaultUserAddress = "0xCf9cCB6d40d1293a764eF3A4A76ED68542339e4f"
	DefaultCurrency    = "ethereum"
)

// Args are the resolved invocation arguments.
type Args struct {
	Oracle      string
	UserAddress string
	Currency    string
}

// ResolveArgs applies the fallbacks to absent keys. Present values are kept as given.
func ResolveArgs(raw map[string]string) Args {
	args := Args{
		Oracle:      DefaultOracle,
		UserAddress: DefaultUserAddress,
		Currency:    DefaultCurrency,
	}
	if v, ok := raw[ArgOracle]; ok {
		args.Oracle = v
	}
	if v, ok := raw[ArgUserAddress]; ok {
		args.UserAddress = v
	}
	if v, ok := raw[ArgCurrency]; ok {
		args.Currency = v
	}
	return args
}

func parseAddress(field, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s: %q", field, value)
	}
	return common.HexToAddress(value), nil
}
