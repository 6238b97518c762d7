package chainenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcontractkit/starknet-deployments-framework/chain/starknet"
	"github.com/smartcontractkit/starknet-deployments-framework/config/env"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/commands/flags"
	"github.com/smartcontractkit/starknet-deployments-framework/pkg/logger"
)

const networksYAML = `
networks:
  - name: starknet-sepolia
    chain_selector: 4115550741429562104
    rpcs:
      - name: primary
        url: http://localhost:5050
  - name: starknet-mainnet
    chain_selector: 511843109281680063
    rpcs:
      - name: primary
        url: http://localhost:6060
`

const secretsYAML = `
onchain:
  starknet:
    account_address: "0x0123"
    public_key: "0x0456"
    private_key: "0x0789"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// clearAccountEnv makes sure no account leaks in from the environment running the tests.
func clearAccountEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ONCHAIN_STARKNET_ACCOUNT_ADDRESS", "STARKNET_ACCOUNT_ADDRESS",
		"ONCHAIN_STARKNET_PUBLIC_KEY", "STARKNET_PUBLIC_KEY",
		"ONCHAIN_STARKNET_PRIVATE_KEY", "STARKNET_PRIVATE_KEY",
	} {
		t.Setenv(name, "")
	}
}

func TestLoad(t *testing.T) {
	networks := writeFile(t, "networks.yaml", networksYAML)
	secrets := writeFile(t, "secrets.yaml", secretsYAML)
	noAccount := writeFile(t, "empty.yaml", "onchain: {}\n")
	clearAccountEnv(t)

	tests := []struct {
		name         string
		opts         Options
		wantName     string
		wantSelector uint64
		wantSigner   bool
		wantErr      error
		wantErrMsg   string
	}{
		{
			name:         "with account",
			opts:         Options{NetworksPath: networks, Network: "starknet-sepolia", SecretsPath: secrets, RequireSigner: true},
			wantName:     "starknet-sepolia",
			wantSelector: 4115550741429562104,
			wantSigner:   true,
		},
		{
			name:         "read only",
			opts:         Options{NetworksPath: networks, Network: "starknet-mainnet", SecretsPath: noAccount},
			wantName:     "starknet-mainnet",
			wantSelector: 511843109281680063,
		},
		{
			name:    "account required",
			opts:    Options{NetworksPath: networks, Network: "starknet-mainnet", SecretsPath: noAccount, RequireSigner: true},
			wantErr: env.ErrNoAccount,
		},
		{
			name:       "unknown network",
			opts:       Options{NetworksPath: networks, Network: "nope", SecretsPath: noAccount},
			wantErrMsg: "nope",
		},
		{
			name:       "missing network file",
			opts:       Options{NetworksPath: filepath.Join(t.TempDir(), "missing.yaml"), Network: "starknet-sepolia"},
			wantErrMsg: "failed to load networks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load(t.Context(), logger.Test(t), tt.opts)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				require.ErrorContains(t, err, tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, c.Name)
				assert.Equal(t, tt.wantSelector, c.Selector)
				if tt.wantSigner {
					assert.True(t, c.Client.SignerAddress().Equal(starknet.MustParseFelt("0x123")))
				} else {
					assert.Nil(t, c.Client.SignerAddress())
				}
			}
		})
	}
}

func TestOptionsFromFlags(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	flags.Network(cmd)
	cmd.SetArgs([]string{"--networks", "n.yaml", "-n", "starknet-sepolia", "--secrets", "s.yaml"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, Options{
		NetworksPath:  "n.yaml",
		Network:       "starknet-sepolia",
		SecretsPath:   "s.yaml",
		RequireSigner: true,
	}, OptionsFromFlags(cmd, true))
}
