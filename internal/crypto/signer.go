package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Request signature scheme. A caller proves control of an address by
// signing keccak256 of a domain-prefixed message over the request:
//
//	"\x19predictd signed request:\n" || timestamp || "\n" || method || "\n" || path || "\n" || body
//
// The prefix prevents a signed API request from ever being valid as a raw
// transaction or another protocol's message. The timestamp bounds replay;
// the server rejects signatures older than its freshness window.
const signPrefix = "\x19predictd signed request:\n"

// RequestDigest computes the signing digest for a request.
func RequestDigest(timestamp int64, method, path string, body []byte) []byte {
	msg := signPrefix + strconv.FormatInt(timestamp, 10) + "\n" + method + "\n" + path + "\n"
	data := make([]byte, 0, len(msg)+len(body))
	data = append(data, msg...)
	data = append(data, body...)
	return ethcrypto.Keccak256(data)
}

// Signer signs API requests with a secp256k1 key. The server side never
// needs a Signer; it recovers the caller address from the signature alone.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignRequest signs a request and returns the hex-encoded 65-byte signature
// (r || s || v).
func (s *Signer) SignRequest(timestamp int64, method, path string, body []byte) (string, error) {
	sig, err := ethcrypto.Sign(RequestDigest(timestamp, method, path, body), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverSigner returns the address that produced sigHex over the given
// request. An unparseable or forged signature returns an error; address
// comparison is the caller's job.
func RecoverSigner(timestamp int64, method, path string, body []byte, sigHex string) (common.Address, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: decode signature: %w", err)
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("crypto/signer: expected 65-byte signature, got %d", len(sig))
	}
	// Accept both raw {0,1} and transaction-style {27,28} recovery ids.
	if sig[64] >= 27 {
		sig = append(append([]byte{}, sig[:64]...), sig[64]-27)
	}

	pub, err := ethcrypto.SigToPub(RequestDigest(timestamp, method, path, body), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto/signer: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
