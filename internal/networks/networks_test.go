package networks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_Lookup(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name         string
		network      string
		wantExplorer string
		wantImplEnv  string
		wantRPC      string
		wantErr      bool
	}{
		{
			name:         "sepolia",
			network:      "sepolia",
			wantExplorer: "https://celo-sepolia.blockscout.com",
			wantImplEnv:  "SEPOLIA_IMPLEMENTATION_ADDRESS",
			wantRPC:      "https://celo-sepolia-rpc.publicnode.com",
		},
		{
			name:         "celo mainnet",
			network:      "celo",
			wantExplorer: "https://celo.blockscout.com",
			wantImplEnv:  "IMPLEMENTATION_ADDRESS",
			wantRPC:      "https://forno.celo.org",
		},
		{name: "unknown", network: "alfajores", wantErr: true},
		{name: "case sensitive", network: "Celo", wantErr: true},
		{name: "empty", network: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := r.Lookup(tt.network)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedNetwork))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantExplorer, n.ExplorerURL)
			assert.Equal(t, tt.wantImplEnv, n.ImplementationEnv)
			assert.Equal(t, tt.wantRPC, n.RPCURL)
		})
	}
}

func TestNetwork_URLs(t *testing.T) {
	n, ok := DefaultRegistry().Get(Sepolia)
	require.True(t, ok)

	addr := "0x1eDf8c2290d4a14FDd80c5522AaE2F8d13F6BA43"
	assert.Equal(t,
		"https://celo-sepolia.blockscout.com/api/v2/smart-contracts/0x1eDf8c2290d4a14FDd80c5522AaE2F8d13F6BA43/verification/via/flattened-code",
		n.VerificationURL(addr))
	assert.Equal(t, "https://celo-sepolia.blockscout.com/address/0x1eDf8c2290d4a14FDd80c5522AaE2F8d13F6BA43", n.AddressURL(addr))
	assert.Equal(t, "https://celo-sepolia.blockscout.com/address/0x1eDf8c2290d4a14FDd80c5522AaE2F8d13F6BA43?tab=contract_code", n.ContractCodeURL(addr))
}

func TestRegistry_OverrideExplorer(t *testing.T) {
	r := DefaultRegistry()

	require.NoError(t, r.OverrideExplorer(Celo, "http://127.0.0.1:4000/"))
	n, _ := r.Get(Celo)
	assert.Equal(t, "http://127.0.0.1:4000", n.ExplorerURL)
	assert.Equal(t, "IMPLEMENTATION_ADDRESS", n.ImplementationEnv, "override keeps other fields")

	err := r.OverrideExplorer("goerli", "http://127.0.0.1:4000")
	assert.True(t, errors.Is(err, ErrUnsupportedNetwork))

	assert.Error(t, r.OverrideExplorer(Celo, "not a url"))
}

func TestRegistry_Names(t *testing.T) {
	assert.Equal(t, []string{"celo", "sepolia"}, DefaultRegistry().Names())
	assert.Len(t, DefaultRegistry().List(), 2)
}
