package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode classifies every legacy-blob decryption failure: wrong key,
// corrupted payload, or a token that does not match the iv_hex:ciphertext_hex
// format. Callers treat it as an absent cookie, never as a request failure.
var ErrDecode = errors.New("cookie decode failed")

// ErrKeySize is returned by [NewCodec] when the encryption key is not
// 32 bytes (AES-256).
var ErrKeySize = errors.New("encryption key must be 32 bytes")

// Codec encrypts and decrypts legacy session blobs. The wire format is
// "iv_hex:ciphertext_hex" with AES-256-CBC and PKCS#7 padding, reproduced
// exactly for compatibility with cookies minted by earlier releases.
type Codec struct {
	key []byte
}

// NewCodec creates a [Codec] from a 32-byte AES key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	k := make([]byte, 32)
	copy(k, key)
	return &Codec{key: k}, nil
}

// Encrypt seals payload under a fresh random IV and returns the
// iv_hex:ciphertext_hex token.
func (c *Codec) Encrypt(payload []byte) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad(payload, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens an iv_hex:ciphertext_hex token. All failures are wrapped in
// [ErrDecode]; Decrypt never panics on hostile input.
func (c *Codec) Decrypt(token string) ([]byte, error) {
	ivHex, ctHex, ok := strings.Cut(token, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrDecode)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: bad iv", ErrDecode)
	}

	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrDecode)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	unpadded, err := pkcs7Unpad(pt, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return unpadded, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
