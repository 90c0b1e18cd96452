package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colordrop/blockscout-verify/internal/blockscout"
	"github.com/colordrop/blockscout-verify/internal/config"
	"github.com/colordrop/blockscout-verify/internal/evm"
	"github.com/colordrop/blockscout-verify/internal/networks"
	"github.com/colordrop/blockscout-verify/internal/source"
)

const (
	testImplementation = "0x1eDf8c2290d4a14FDd80c5522AaE2F8d13F6BA43"
	testProxy          = "0x39E653277AFa663B9b00C777c608B6E998cCBb22"
)

var testEncodedArgs = strings.Repeat("0", 24) + strings.Repeat("1", 40) +
	strings.Repeat("0", 24) + strings.Repeat("2", 40) +
	strings.Repeat("0", 24) + strings.Repeat("3", 40) +
	strings.Repeat("0", 24) + strings.Repeat("4", 40) +
	strings.Repeat("0", 24) + strings.Repeat("5", 40)

// setupWorkspace isolates HOME and the working directory and sets a complete
// sepolia environment.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv(config.EnvAdmin, "0x"+strings.Repeat("1", 40))
	t.Setenv(config.EnvUpgrader, "0x"+strings.Repeat("2", 40))
	t.Setenv(config.EnvTreasury1, "0x"+strings.Repeat("3", 40))
	t.Setenv(config.EnvTreasury2, "0x"+strings.Repeat("4", 40))
	t.Setenv(config.EnvVerifier, "0x"+strings.Repeat("5", 40))
	t.Setenv("SEPOLIA_IMPLEMENTATION_ADDRESS", testImplementation)
	t.Setenv("SEPOLIA_PROXY_ADDRESS", "")
	t.Setenv("IMPLEMENTATION_ADDRESS", "")
	t.Setenv("PROXY_ADDRESS", "")
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "")
	t.Setenv("VERIFY_TIMEOUT_SECONDS", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SEPOLIA_RPC_URL", "")
	t.Setenv("CELO_RPC_URL", "")

	return dir
}

func writeSource(t *testing.T) {
	t.Helper()
	require.NoError(t, os.WriteFile(source.DefaultPath, []byte("pragma solidity ^0.8.22;\ncontract ColorDropPool {}\n"), 0644))
}

// fakeExplorer serves the flattened-code endpoint and records each request
type fakeExplorer struct {
	*httptest.Server
	calls atomic.Int32

	mu      sync.Mutex
	address string
	auth    string
}

func newFakeExplorer(t *testing.T, status int, body string) *fakeExplorer {
	t.Helper()
	f := &fakeExplorer{}
	r := chi.NewRouter()
	r.Post("/api/v2/smart-contracts/{address}/verification/via/flattened-code", func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.mu.Lock()
		f.address = chi.URLParam(r, "address")
		f.auth = r.Header.Get("Authorization")
		f.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeExplorer) lastAddress() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

func (f *fakeExplorer) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.auth
}

// execute runs the root command with args and returns combined output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append(args, "--env-file", "missing.env"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVerify_MissingNetworkArgument(t *testing.T) {
	setupWorkspace(t)

	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing network argument")
	assert.Contains(t, err.Error(), "usage: blockscout-verify [celo|sepolia]")
}

func TestVerify_UnsupportedNetworkMakesNoRequest(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	out, err := execute(t, "goerli", "--explorer-url", explorer.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, networks.ErrUnsupportedNetwork))
	assert.Contains(t, out, "Unsupported network: goerli")
	assert.Equal(t, int32(0), explorer.calls.Load())
}

func TestVerify_MissingEnvironmentMakesNoRequest(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	t.Setenv(config.EnvTreasury2, "")
	t.Setenv("SEPOLIA_IMPLEMENTATION_ADDRESS", "")
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	assert.Contains(t, err.Error(), config.EnvTreasury2)
	assert.Contains(t, err.Error(), "SEPOLIA_IMPLEMENTATION_ADDRESS")
	assert.Contains(t, out, "Required:")
	assert.Equal(t, int32(0), explorer.calls.Load())
}

func TestVerify_MalformedAddressIsConfigurationError(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	t.Setenv(config.EnvVerifier, "0x1234")
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	_, err := execute(t, "sepolia", "--explorer-url", explorer.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfiguration))
	assert.Equal(t, int32(0), explorer.calls.Load())
}

func TestVerify_MissingSourceMakesNoRequest(t *testing.T) {
	setupWorkspace(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrMissingArtifact))
	assert.Contains(t, out, "flattened.sol not found. Run: npm run flatten")
	assert.Equal(t, int32(0), explorer.calls.Load())
}

func TestVerify_Verified(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	t.Setenv("SEPOLIA_PROXY_ADDRESS", testProxy)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"Smart-contract was verified successfully"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL)

	require.NoError(t, err)
	assert.Equal(t, int32(1), explorer.calls.Load())
	assert.Equal(t, testImplementation, explorer.lastAddress())
	assert.Contains(t, out, testEncodedArgs)
	assert.Contains(t, out, "Verification successful!")
	assert.Contains(t, out, "Verification complete!")
	assert.Contains(t, out, explorer.URL+"/address/"+testImplementation)
	assert.Contains(t, out, "Proxy: "+explorer.URL+"/address/"+testProxy)
	assert.Contains(t, out, "Proxy contracts are automatically detected")
}

func TestVerify_AmbiguousResponseStillSucceeds(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"status":"queued"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL)

	require.NoError(t, err)
	assert.Equal(t, int32(1), explorer.calls.Load())
	assert.Contains(t, out, "Verification submitted")
	assert.NotContains(t, out, "Proxy:")
}

func TestVerify_RejectedPrintsManualGuidance(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusInternalServerError, `{"message":"compilation failed"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, blockscout.ErrRejected))
	assert.Equal(t, int32(1), explorer.calls.Load(), "single attempt")
	assert.Contains(t, out, "Status: 500")
	assert.Contains(t, out, "compilation failed")
	assert.Contains(t, out, "Try manual verification")
	assert.Contains(t, out, explorer.URL+"/address/"+testImplementation+"?tab=contract_code")
	assert.Contains(t, out, "Compiler: v0.8.22+commit.4fc1097e")
	assert.Contains(t, out, "Optimization: Yes (200 runs)")
}

func TestVerify_TimeoutIsTransportError(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)

	out, err := execute(t, "sepolia", "--explorer-url", server.URL, "--timeout", "50ms")

	require.Error(t, err)
	assert.True(t, errors.Is(err, blockscout.ErrTransport))
	assert.Equal(t, int32(1), calls.Load())
	assert.Contains(t, out, "Try manual verification")
}

func TestVerify_DryRunMakesNoRequest(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL, "--dry-run")

	require.NoError(t, err)
	assert.Equal(t, int32(0), explorer.calls.Load())
	assert.Contains(t, out, "Dry run")
	assert.Contains(t, out, "contractName: ColorDropPool")
	assert.Contains(t, out, "authenticated: false")
}

func TestVerify_CustomSourcePath(t *testing.T) {
	setupWorkspace(t)
	require.NoError(t, os.MkdirAll("build", 0755))
	require.NoError(t, os.WriteFile("build/pool.sol", []byte("contract ColorDropPool {}"), 0644))
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL, "--source", "build/pool.sol")

	require.NoError(t, err)
	assert.Contains(t, out, "Source loaded: 25 characters")
}

func TestVerify_CeloUsesMainnetKeys(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	t.Setenv("SEPOLIA_IMPLEMENTATION_ADDRESS", "")
	t.Setenv("IMPLEMENTATION_ADDRESS", testImplementation)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	_, err := execute(t, "celo", "--explorer-url", explorer.URL)

	require.NoError(t, err)
	assert.Equal(t, testImplementation, explorer.lastAddress())
}

func TestVerify_APIKeyPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		flag       string
		env        string
		credential string
		wantAuth   string
	}{
		{name: "none", wantAuth: ""},
		{name: "credentials file", credential: "cred-key", wantAuth: "Bearer cred-key"},
		{name: "env over credentials", env: "env-key", credential: "cred-key", wantAuth: "Bearer env-key"},
		{name: "flag over env", flag: "flag-key", env: "env-key", credential: "cred-key", wantAuth: "Bearer flag-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupWorkspace(t)
			writeSource(t)
			explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

			t.Setenv(config.EnvAPIKey, tt.env)
			if tt.credential != "" {
				require.NoError(t, saveCredential(explorer.URL, networks.Sepolia, tt.credential))
			}

			args := []string{"sepolia", "--explorer-url", explorer.URL}
			if tt.flag != "" {
				args = append(args, "--api-key", tt.flag)
			}
			_, err := execute(t, args...)
			require.NoError(t, err)

			assert.Equal(t, tt.wantAuth, explorer.lastAuth())
		})
	}
}

func TestVerify_ProjectConfigOverrides(t *testing.T) {
	setupWorkspace(t)
	require.NoError(t, os.WriteFile("pool.sol", []byte("contract ColorDropPool {}"), 0644))
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)

	project := `source = "pool.sol"

[contract]
runs = 1000

[networks.sepolia]
explorer = "` + explorer.URL + `"
`
	require.NoError(t, os.WriteFile("blockscout-verify.toml", []byte(project), 0644))

	out, err := execute(t, "sepolia")

	require.NoError(t, err)
	assert.Equal(t, int32(1), explorer.calls.Load())
	assert.Contains(t, out, "API: "+explorer.URL)
}

func TestVerify_DotEnvFile(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)
	t.Setenv(config.EnvAdmin, "")
	os.Unsetenv(config.EnvAdmin)

	require.NoError(t, os.WriteFile("deploy.env", []byte("ADMIN_ADDRESS=0x"+strings.Repeat("1", 40)+"\n"), 0644))

	cmd := newRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"sepolia", "--explorer-url", explorer.URL, "--env-file", "deploy.env"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), testEncodedArgs)
}

// newRPCNode answers eth_getCode with code (hex, 0x-prefixed)
func newRPCNode(t *testing.T, code string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%q}`, req.ID, code)
	}))
	t.Cleanup(server.Close)
	return server
}

// solc 0.8.22 metadata: a2 64 "ipfs" 58 22 <34 bytes> 64 "solc" 43 00 08 16, length 0x0033
var deployedCode = "0x6080604052" +
	"a264697066735822" + strings.Repeat("00", 34) + "64736f6c6343000816" + "0033"

func TestVerify_CheckCode(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)
	node := newRPCNode(t, deployedCode)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL, "--check-code", "--rpc-url", node.URL)

	require.NoError(t, err)
	assert.Contains(t, out, "compiled with solc 0.8.22")
	assert.NotContains(t, out, "Compiler mismatch")
	assert.Equal(t, int32(1), explorer.calls.Load())
}

func TestVerify_CheckCodeUsesNetworkRPCEnv(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)
	node := newRPCNode(t, deployedCode)
	t.Setenv("SEPOLIA_RPC_URL", node.URL)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL, "--check-code")

	require.NoError(t, err)
	assert.Contains(t, out, "Deployed code:")
}

func TestVerify_CheckCodeNoCodeMakesNoRequest(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)
	node := newRPCNode(t, "0x")

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL, "--check-code", "--rpc-url", node.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, evm.ErrNoCode))
	assert.Contains(t, out, "No contract code at "+testImplementation)
	assert.Equal(t, int32(0), explorer.calls.Load())
}

func TestVerify_CheckCodeCompilerMismatch(t *testing.T) {
	setupWorkspace(t)
	writeSource(t)
	require.NoError(t, os.WriteFile("blockscout-verify.toml", []byte("[contract]\ncompiler = \"v0.8.24+commit.e11b9ed9\"\n"), 0644))
	explorer := newFakeExplorer(t, http.StatusOK, `{"message":"verified"}`)
	node := newRPCNode(t, deployedCode)

	out, err := execute(t, "sepolia", "--explorer-url", explorer.URL, "--check-code", "--rpc-url", node.URL)

	require.NoError(t, err)
	assert.Contains(t, out, "Compiler mismatch: deployed 0.8.22, configured v0.8.24+commit.e11b9ed9")
}
