// Package evm covers the EVM side of verification: constructor argument
// encoding and deployed code lookups.
package evm

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/colordrop/blockscout-verify/internal/validation"
)

// SlotHexLen is the hex length of one ABI-encoded static argument (32 bytes)
const SlotHexLen = 64

var addressType = mustType("address")

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi type %s: %v", t, err))
	}
	return typ
}

// ConstructorAddresses are the ColorDropPool constructor parameters, in
// declaration order.
type ConstructorAddresses struct {
	Admin     string
	Upgrader  string
	Treasury1 string
	Treasury2 string
	Verifier  string
}

// Ordered returns the addresses in constructor order
func (c ConstructorAddresses) Ordered() []string {
	return []string{c.Admin, c.Upgrader, c.Treasury1, c.Treasury2, c.Verifier}
}

// Encode returns the ABI-encoded constructor arguments without 0x prefix
func (c ConstructorAddresses) Encode() (string, error) {
	return EncodeConstructorArgs(c.Ordered()...)
}

// EncodeConstructorArgs ABI-encodes addresses as consecutive 32-byte slots and
// returns lowercase hex without a 0x prefix. Each slot is 12 zero bytes
// followed by the 20 address bytes.
func EncodeConstructorArgs(addrs ...string) (string, error) {
	args := make(abi.Arguments, len(addrs))
	values := make([]any, len(addrs))
	for i, a := range addrs {
		if err := validation.ValidateAddress(a); err != nil {
			return "", fmt.Errorf("argument %d (%s): %w", i, a, err)
		}
		args[i] = abi.Argument{Type: addressType}
		values[i] = common.HexToAddress(a)
	}

	packed, err := args.Pack(values...)
	if err != nil {
		return "", fmt.Errorf("packing constructor arguments: %w", err)
	}
	return hex.EncodeToString(packed), nil
}
