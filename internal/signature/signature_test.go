package signature

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

const manifest = "idna==2.10 \\\n    --hash=sha256:b97d804b1e9b523befed77c48dacec60e6dcb0b5391d57af6a65a312a90648c0\n"

func newSigner(t *testing.T, name string) *openpgp.Entity {
	t.Helper()
	e, err := openpgp.NewEntity(name, "", name+"@example.com", nil)
	if err != nil {
		t.Fatalf("new entity: %v", err)
	}
	return e
}

func TestSignAndVerify(t *testing.T) {
	signer := newSigner(t, "release")

	var sig bytes.Buffer
	if err := Sign(signer, bytes.NewReader([]byte(manifest)), &sig); err != nil {
		t.Fatal(err)
	}

	id, err := Verify(openpgp.EntityList{signer}, bytes.NewReader([]byte(manifest)), bytes.NewReader(sig.Bytes()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "release <release@example.com>" {
		t.Fatalf("unexpected identity %q", id)
	}
}

func TestVerifyRejectsTamperedManifest(t *testing.T) {
	signer := newSigner(t, "release")

	var sig bytes.Buffer
	if err := Sign(signer, bytes.NewReader([]byte(manifest)), &sig); err != nil {
		t.Fatal(err)
	}

	tampered := []byte(manifest)
	tampered[len(tampered)-2] = '1'

	_, err := Verify(openpgp.EntityList{signer}, bytes.NewReader(tampered), bytes.NewReader(sig.Bytes()))
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsUnknownSigner(t *testing.T) {
	signer := newSigner(t, "release")
	stranger := newSigner(t, "stranger")

	var sig bytes.Buffer
	if err := Sign(stranger, bytes.NewReader([]byte(manifest)), &sig); err != nil {
		t.Fatal(err)
	}

	_, err := Verify(openpgp.EntityList{signer}, bytes.NewReader([]byte(manifest)), bytes.NewReader(sig.Bytes()))
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyFilesWithArmoredKeyring(t *testing.T) {
	dir := t.TempDir()
	signer := newSigner(t, "release")

	var key bytes.Buffer
	if err := ExportPublicKey(signer, &key); err != nil {
		t.Fatal(err)
	}
	keyPath := filepath.Join(dir, "keys.asc")
	os.WriteFile(keyPath, key.Bytes(), 0644)

	manifestPath := filepath.Join(dir, "requirements.txt")
	os.WriteFile(manifestPath, []byte(manifest), 0644)

	var sig bytes.Buffer
	if err := Sign(signer, bytes.NewReader([]byte(manifest)), &sig); err != nil {
		t.Fatal(err)
	}
	sigPath := manifestPath + ".asc"
	os.WriteFile(sigPath, sig.Bytes(), 0644)

	keyring, err := LoadKeyRing(keyPath)
	if err != nil {
		t.Fatalf("load keyring: %v", err)
	}
	if _, err := VerifyFiles(keyring, manifestPath, sigPath); err != nil {
		t.Fatalf("verify files: %v", err)
	}
}

func TestLoadSigner(t *testing.T) {
	dir := t.TempDir()
	signer := newSigner(t, "release")

	var priv bytes.Buffer
	w, err := armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := signer.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()
	privPath := filepath.Join(dir, "secret.asc")
	os.WriteFile(privPath, priv.Bytes(), 0600)

	loaded, err := LoadSigner(privPath)
	if err != nil {
		t.Fatalf("load signer: %v", err)
	}
	if loaded.PrimaryKey.KeyId != signer.PrimaryKey.KeyId {
		t.Fatal("loaded a different key")
	}

	var pub bytes.Buffer
	ExportPublicKey(signer, &pub)
	pubPath := filepath.Join(dir, "public.asc")
	os.WriteFile(pubPath, pub.Bytes(), 0644)
	if _, err := LoadSigner(pubPath); err == nil {
		t.Fatal("expected error for public-only keyring")
	}
}
