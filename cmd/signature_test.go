package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ethanolivertroy/pinlock/internal/signature"
)

// writeKeys stores an unencrypted private key and its public keyring in dir
func writeKeys(t *testing.T, dir string) (privPath, pubPath string) {
	t.Helper()
	e, err := openpgp.NewEntity("release", "", "release@example.com", nil)
	if err != nil {
		t.Fatalf("new entity: %v", err)
	}

	var priv bytes.Buffer
	w, err := armor.Encode(&priv, openpgp.PrivateKeyType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SerializePrivate(w, nil); err != nil {
		t.Fatal(err)
	}
	w.Close()

	var pub bytes.Buffer
	if err := signature.ExportPublicKey(e, &pub); err != nil {
		t.Fatal(err)
	}

	privPath = writeFile(t, dir, "secret.asc", priv.String())
	pubPath = writeFile(t, dir, "public.asc", pub.String())
	return privPath, pubPath
}

func TestSignAndVerifySignatureCommands(t *testing.T) {
	dir := t.TempDir()
	priv, pub := writeKeys(t, dir)
	lock := writeFile(t, dir, "requirements.txt", "idna==2.10 \\\n    --hash=sha256:"+idnaHash+"\n")

	if _, err := run(t, "sign", lock, "--key", priv); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := os.Stat(lock + ".asc"); err != nil {
		t.Fatalf("signature not written: %v", err)
	}

	if _, err := run(t, "verify-signature", lock, "--keyring", pub); err != nil {
		t.Fatalf("verify-signature: %v", err)
	}

	// keyring taken from the config file
	conf := writeFile(t, dir, "pinlock.yaml", "keyring: "+pub+"\n")
	if _, err := run(t, "--config", conf, "verify-signature", lock); err != nil {
		t.Fatalf("verify-signature with config keyring: %v", err)
	}
}

func TestVerifySignatureRejectsTamperedManifest(t *testing.T) {
	dir := t.TempDir()
	priv, pub := writeKeys(t, dir)
	lock := writeFile(t, dir, "requirements.txt", "idna==2.10 \\\n    --hash=sha256:"+idnaHash+"\n")
	sig := filepath.Join(dir, "lock.sig")

	if _, err := run(t, "sign", lock, "--key", priv, "--sig", sig); err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := idnaHash[:len(idnaHash)-1] + "1"
	writeFile(t, dir, "requirements.txt", "idna==2.10 \\\n    --hash=sha256:"+tampered+"\n")

	_, err := run(t, "verify-signature", lock, "--keyring", pub, "--sig", sig)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
}

func TestVerifySignatureWithoutKeyring(t *testing.T) {
	lock := writeFile(t, t.TempDir(), "requirements.txt", "idna==2.10\n")
	_, err := run(t, "verify-signature", lock)
	if err == nil || errors.Is(err, errFailed) {
		t.Fatalf("expected a command error, got %v", err)
	}
}
