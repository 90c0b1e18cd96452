package evm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/colordrop/blockscout-verify/internal/validation"
)

// ErrNoCode is returned when an address holds no contract code
var ErrNoCode = errors.New("no contract code at address")

// CodeReader reads deployed contract code. *ethclient.Client implements it.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Dial connects to a JSON-RPC endpoint
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", rpcURL, err)
	}
	return client, nil
}

// DeployedCode describes the runtime code at an address
type DeployedCode struct {
	Address     string
	Size        int
	SolcVersion string // from the CBOR metadata, empty when absent
}

// InspectCode reads the latest code at address. An address without code
// fails with ErrNoCode.
func InspectCode(ctx context.Context, r CodeReader, address string) (*DeployedCode, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, err
	}

	code, err := r.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("reading code at %s: %w", address, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCode, address)
	}

	return &DeployedCode{
		Address:     address,
		Size:        len(code),
		SolcVersion: SolcVersion(code),
	}, nil
}

// "solc" text key followed by a 3-byte byte string header
var solcKey = []byte{0x64, 's', 'o', 'l', 'c', 0x43}

// metadata returns the CBOR section solc appends to runtime code. Its
// length is stored big-endian in the last two bytes.
func metadata(code []byte) []byte {
	if len(code) < 2 {
		return nil
	}
	n := int(binary.BigEndian.Uint16(code[len(code)-2:]))
	if n == 0 || n+2 > len(code) {
		return nil
	}
	return code[len(code)-2-n : len(code)-2]
}

// SolcVersion returns the compiler version recorded in the code's metadata,
// e.g. "0.8.22", or "" when there is none.
func SolcVersion(code []byte) string {
	meta := metadata(code)
	i := bytes.Index(meta, solcKey)
	if i < 0 || i+len(solcKey)+3 > len(meta) {
		return ""
	}
	v := meta[i+len(solcKey):]
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}
