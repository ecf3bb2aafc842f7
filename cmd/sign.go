package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mezonai/starledger/sigverify"
	"github.com/spf13/cobra"
)

type SignConfig struct {
	PrivateKeyHex string
	Message       string
	Uncompressed  bool
	Testnet       bool
	Generate      bool
}

var signConfig SignConfig

var signCmd = &cobra.Command{
	Use:   "sign [flags]",
	Short: "Sign a validation message with a wallet key",
	Long: `This command prints the wallet address of a secp256k1 key and, when a message
is given, its base64 signed-message signature
Examples:
  # Create a throwaway key
  sign --generate
  # Sign the challenge returned by /requestValidation
  sign -k <hex private key> -m "<address>:<timestamp>:starRegistry"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := signingKey()
		if err != nil {
			return err
		}
		version := sigverify.VersionMainnet
		if signConfig.Testnet {
			version = sigverify.VersionTestnet
		}
		compressed := !signConfig.Uncompressed

		out := cmd.OutOrStdout()
		if signConfig.Generate {
			fmt.Fprintf(out, "private key: %s\n", hex.EncodeToString(key.Serialize()))
		}
		fmt.Fprintf(out, "address:     %s\n", sigverify.AddressFromPubKey(key.PubKey(), compressed, version))
		if signConfig.Message != "" {
			fmt.Fprintf(out, "signature:   %s\n", sigverify.SignMessage(key, signConfig.Message, compressed))
		}
		return nil
	},
}

func signingKey() (*secp256k1.PrivateKey, error) {
	if signConfig.Generate {
		return secp256k1.GeneratePrivateKey()
	}
	raw, err := hex.DecodeString(strings.TrimSpace(signConfig.PrivateKeyHex))
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes of hex")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&signConfig.PrivateKeyHex, "key", "k", "", "hex encoded private key")
	signCmd.Flags().StringVarP(&signConfig.Message, "message", "m", "", "message to sign")
	signCmd.Flags().BoolVar(&signConfig.Uncompressed, "uncompressed", false, "use the uncompressed public key form")
	signCmd.Flags().BoolVar(&signConfig.Testnet, "testnet", false, "derive a testnet address")
	signCmd.Flags().BoolVar(&signConfig.Generate, "generate", false, "generate a new random key")
}
