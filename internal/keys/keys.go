// Package keys implements the asymmetric primitives behind session
// authenticity. Every session gets its own ECDSA P-256 pair; the
// public half is stored plain, the private half is encrypted at rest
// with a process-wide passphrase. An attacker who only reads the
// database cannot forge session signatures: producing one requires the
// private key, and decrypting the private key requires the passphrase.
package keys

import (
    "crypto/ecdsa"
    "crypto/elliptic"
    "crypto/rand"
    "crypto/sha256"
    "crypto/x509"
    "encoding/hex"
    "encoding/pem"
    "errors"

    "golang.org/x/crypto/chacha20poly1305"
    "golang.org/x/crypto/scrypt"
)

// KeyPair pairs a plain PEM public key with a passphrase-encrypted
// private key as both are persisted on a session row.
type KeyPair struct {
    PublicKeyPEM        string // PKIX public key, PEM encoded
    EncryptedPrivateKey string // hex(salt || nonce || sealed PKCS8 DER)
}

const (
    saltLen = 16

    // scrypt parameters for deriving the sealing key from the
    // process-wide passphrase.
    scryptN = 1 << 15
    scryptR = 8
    scryptP = 1
)

var errMalformed = errors.New("keys: malformed encrypted key")

// GenerateKeyPair creates a fresh P-256 pair and seals the private key
// under the given passphrase.
func GenerateKeyPair(passphrase string) (KeyPair, error) {
    priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
    if err != nil {
        return KeyPair{}, err
    }

    pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
    if err != nil {
        return KeyPair{}, err
    }
    pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

    privDER, err := x509.MarshalPKCS8PrivateKey(priv)
    if err != nil {
        return KeyPair{}, err
    }
    sealed, err := seal(privDER, passphrase)
    if err != nil {
        return KeyPair{}, err
    }
    return KeyPair{
        PublicKeyPEM:        string(pubPEM),
        EncryptedPrivateKey: sealed,
    }, nil
}

// Sign produces a hex SHA-256/ECDSA signature over data using the
// pair's private key, which is decrypted with the passphrase for the
// duration of the call.
func Sign(data string, pair KeyPair, passphrase string) (string, error) {
    privDER, err := open(pair.EncryptedPrivateKey, passphrase)
    if err != nil {
        return "", err
    }
    key, err := x509.ParsePKCS8PrivateKey(privDER)
    if err != nil {
        return "", err
    }
    priv, ok := key.(*ecdsa.PrivateKey)
    if !ok {
        return "", errMalformed
    }
    digest := sha256.Sum256([]byte(data))
    sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
    if err != nil {
        return "", err
    }
    return hex.EncodeToString(sig), nil
}

// Verify reports whether sigHex is a valid signature over plain for
// the PEM public key. Any parse or decode failure simply yields false;
// callers treat false as unauthenticated and never learn which check
// failed.
func Verify(plain, sigHex, publicKeyPEM string) bool {
    block, _ := pem.Decode([]byte(publicKeyPEM))
    if block == nil {
        return false
    }
    parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
    if err != nil {
        return false
    }
    pub, ok := parsed.(*ecdsa.PublicKey)
    if !ok {
        return false
    }
    sig, err := hex.DecodeString(sigHex)
    if err != nil {
        return false
    }
    digest := sha256.Sum256([]byte(plain))
    return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// HashIP returns the one-way SHA-256 hex digest stored in place of raw
// client addresses.
func HashIP(ip string) string {
    sum := sha256.Sum256([]byte(ip))
    return hex.EncodeToString(sum[:])
}

// seal encrypts plaintext with XChaCha20-Poly1305 under a key derived
// from the passphrase and a fresh random salt.
func seal(plaintext []byte, passphrase string) (string, error) {
    salt := make([]byte, saltLen)
    if _, err := rand.Read(salt); err != nil {
        return "", err
    }
    key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
    if err != nil {
        return "", err
    }
    aead, err := chacha20poly1305.NewX(key)
    if err != nil {
        return "", err
    }
    nonce := make([]byte, aead.NonceSize())
    if _, err := rand.Read(nonce); err != nil {
        return "", err
    }
    out := append(salt, nonce...)
    out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
    return hex.EncodeToString(out), nil
}

// open reverses seal. Wrong passphrases and truncated inputs both
// surface as a single malformed error.
func open(sealedHex, passphrase string) ([]byte, error) {
    raw, err := hex.DecodeString(sealedHex)
    if err != nil {
        return nil, errMalformed
    }
    if len(raw) < saltLen+chacha20poly1305.NonceSizeX {
        return nil, errMalformed
    }
    salt := raw[:saltLen]
    nonce := raw[saltLen : saltLen+chacha20poly1305.NonceSizeX]
    box := raw[saltLen+chacha20poly1305.NonceSizeX:]
    key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
    if err != nil {
        return nil, err
    }
    aead, err := chacha20poly1305.NewX(key)
    if err != nil {
        return nil, err
    }
    plain, err := aead.Open(nil, nonce, box, nil)
    if err != nil {
        return nil, errMalformed
    }
    return plain, nil
}
