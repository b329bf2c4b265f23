// Package signature checks detached OpenPGP signatures over manifest files.
package signature

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// ErrBadSignature means the signature does not cover the manifest bytes or was
// made by a key outside the keyring.
var ErrBadSignature = errors.New("signature verification failed")

// LoadKeyRing reads an armored or binary public keyring from path
func LoadKeyRing(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return ReadKeyRing(bytes.NewReader(data))
}

// ReadKeyRing decodes an armored or binary keyring
func ReadKeyRing(r io.Reader) (openpgp.EntityList, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(5)

	var keys openpgp.EntityList
	var err error
	if string(head) == "-----" {
		keys, err = openpgp.ReadArmoredKeyRing(br)
	} else {
		keys, err = openpgp.ReadKeyRing(br)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse keyring: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("keyring contains no keys")
	}
	return keys, nil
}

// LoadSigner returns the first unencrypted private key in the keyring at path
func LoadSigner(path string) (*openpgp.Entity, error) {
	keys, err := LoadKeyRing(path)
	if err != nil {
		return nil, err
	}
	for _, e := range keys {
		if e.PrivateKey == nil {
			continue
		}
		if e.PrivateKey.Encrypted {
			return nil, fmt.Errorf("private key %X is passphrase protected", e.PrimaryKey.Fingerprint)
		}
		return e, nil
	}
	return nil, fmt.Errorf("%s contains no private key", path)
}

// Verify checks sig as a detached signature of manifest and returns the
// signer's primary identity.
func Verify(keyring openpgp.KeyRing, manifest, sig io.Reader) (string, error) {
	sigBytes, err := io.ReadAll(sig)
	if err != nil {
		return "", fmt.Errorf("failed to read signature: %w", err)
	}

	var signer *openpgp.Entity
	if bytes.HasPrefix(bytes.TrimSpace(sigBytes), []byte("-----")) {
		signer, err = openpgp.CheckArmoredDetachedSignature(keyring, manifest, bytes.NewReader(sigBytes), nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(keyring, manifest, bytes.NewReader(sigBytes), nil)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return identity(signer), nil
}

// VerifyFiles verifies the detached signature at sigPath over manifestPath
func VerifyFiles(keyring openpgp.KeyRing, manifestPath, sigPath string) (string, error) {
	m, err := os.Open(manifestPath)
	if err != nil {
		return "", err
	}
	defer m.Close()

	s, err := os.Open(sigPath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	return Verify(keyring, m, s)
}

// Sign writes an armored detached signature of manifest made with signer
func Sign(signer *openpgp.Entity, manifest io.Reader, w io.Writer) error {
	if err := openpgp.ArmoredDetachSign(w, signer, manifest, nil); err != nil {
		return fmt.Errorf("failed to sign manifest: %w", err)
	}
	return nil
}

// ExportPublicKey writes the armored public key of e
func ExportPublicKey(e *openpgp.Entity, w io.Writer) error {
	aw, err := armor.Encode(w, openpgp.PublicKeyType, nil)
	if err != nil {
		return err
	}
	if err := e.Serialize(aw); err != nil {
		aw.Close()
		return err
	}
	return aw.Close()
}

func identity(e *openpgp.Entity) string {
	if e == nil {
		return ""
	}
	if id := e.PrimaryIdentity(); id != nil {
		return id.Name
	}
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}
