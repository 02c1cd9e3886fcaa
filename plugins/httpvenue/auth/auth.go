// Package auth implements the reference httpvenue plugin family's two
// signing layers, adapted from the teacher's internal/exchange.Auth:
// a one-time EIP-712 (L1) signature used to derive L2 credentials, and
// per-request HMAC-SHA256 (L2) signing for every trading call after that.
//
// Unlike the teacher, this package takes its wallet/venue parameters from
// a plugin's PluginConfig.Params map rather than a concrete Config type,
// since the plugin ABI boundary (spec §4.4) only passes params as an
// untyped object.
package auth

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"numeri/internal/netclient"
)

// Credentials is the L2 API key triplet a venue derives once from an L1
// signature and then reuses for HMAC signing.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
}

// Auth signs requests for the reference httpvenue plugins.
type Auth struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	creds      Credentials
}

// New builds an Auth from a hex-encoded private key (with or without a 0x
// prefix) and chain ID.
func New(privateKeyHex string, chainID int64) (*Auth, error) {
	if len(privateKeyHex) >= 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}
	pk, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	return &Auth{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the signer's address.
func (a *Auth) Address() common.Address { return a.address }

// HasCredentials reports whether L2 credentials have been set.
func (a *Auth) HasCredentials() bool {
	return a.creds.APIKey != "" && a.creds.Secret != "" && a.creds.Passphrase != ""
}

// SetCredentials installs L2 credentials, typically derived once at
// startup via an L1-signed request.
func (a *Auth) SetCredentials(c Credentials) { a.creds = c }

// L1Headers signs an EIP-712 "VenueAuth" typed-data message, proving
// control of the wallet for a one-time credential-derivation request.
func (a *Auth) L1Headers(nonce int) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := a.signTypedData(timestamp, nonce)
	if err != nil {
		return nil, fmt.Errorf("auth: sign typed data: %w", err)
	}
	return map[string]string{
		"X-Venue-Address":   a.address.Hex(),
		"X-Venue-Signature": sig,
		"X-Venue-Timestamp": timestamp,
		"X-Venue-Nonce":     strconv.Itoa(nonce),
	}, nil
}

// L2Headers signs "timestamp + method + path + body" with HMAC-SHA256
// using the derived API secret, for every trading request after
// credential derivation.
func (a *Auth) L2Headers(method, path, body string) map[string]string {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	message := timestamp + method + path + body
	sig := netclient.HMACSHA256Hex([]byte(a.creds.Secret), []byte(message))
	return map[string]string{
		"X-Venue-Address":    a.address.Hex(),
		"X-Venue-Signature":  sig,
		"X-Venue-Timestamp":  timestamp,
		"X-Venue-Api-Key":    a.creds.APIKey,
		"X-Venue-Passphrase": a.creds.Passphrase,
	}
}

func (a *Auth) signTypedData(timestamp string, nonce int) (string, error) {
	domain := apitypes.TypedDataDomain{
		Name:    "VenueAuthDomain",
		Version: "1",
		ChainId: (*ethmath.HexOrDecimal256)(new(big.Int).Set(a.chainID)),
	}
	types := apitypes.Types{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
		},
		"VenueAuth": {
			{Name: "address", Type: "address"},
			{Name: "timestamp", Type: "string"},
			{Name: "nonce", Type: "uint256"},
			{Name: "message", Type: "string"},
		},
	}
	message := apitypes.TypedDataMessage{
		"address":   a.address.Hex(),
		"timestamp": timestamp,
		"nonce":     fmt.Sprintf("%d", nonce),
		"message":   "This message attests that I control the given wallet",
	}

	typedData := apitypes.TypedData{
		Types:       types,
		PrimaryType: "VenueAuth",
		Domain:      domain,
		Message:     message,
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return "", err
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return "", err
	}

	rawData := fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash))
	hash := crypto.Keccak256([]byte(rawData))

	sig, err := crypto.Sign(hash, a.privateKey)
	if err != nil {
		return "", err
	}
	sig[64] += 27 // Ethereum's recovery-id convention
	return "0x" + fmt.Sprintf("%x", sig), nil
}
