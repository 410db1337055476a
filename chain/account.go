package chain

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

// Account is a signing key and the address derived from it
type Account struct {
	Key     *ecdsa.PrivateKey
	Address common.Address
}

// NewAccount parses a hex private key, with or without the 0x prefix
func NewAccount(privateKeyHex string) (*Account, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return AccountFromKey(key), nil
}

// AccountFromKey wraps an existing key
func AccountFromKey(key *ecdsa.PrivateKey) *Account {
	return &Account{
		Key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// PromptAccount reads a private key from the terminal without echoing it.
// The input buffer is zeroed after parsing.
func PromptAccount(prompt string) (*Account, error) {
	fmt.Fprint(os.Stderr, prompt)
	input, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	defer func() {
		for i := range input {
			input[i] = 0
		}
	}()

	return NewAccount(string(input))
}
