package cmd

import (
	"fmt"
	"os"

	"github.com/ethanolivertroy/pinlock/internal/logger"
	"github.com/ethanolivertroy/pinlock/internal/signature"
	"github.com/spf13/cobra"
)

var (
	flagSig     string
	flagKeyring string
	flagKey     string
)

func newSignCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "sign FILE",
		Short: "Write a detached OpenPGP signature for a manifest",
		Args:  cobra.ExactArgs(1),
		RunE:  runSign,
	}
	c.Flags().StringVar(&flagKey, "key", "", "Armored private key file (unencrypted)")
	c.Flags().StringVar(&flagSig, "sig", "", "Signature output path (default: FILE.asc)")
	c.MarkFlagRequired("key")
	return c
}

func newVerifySignatureCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "verify-signature FILE",
		Short: "Check a detached OpenPGP signature over a manifest",
		Long: `Check that FILE.asc (or --sig) is a valid detached signature of the manifest
made by a key in the keyring. The keyring defaults to the "keyring" setting in
the config file.`,
		Args: cobra.ExactArgs(1),
		RunE: runVerifySignature,
	}
	c.Flags().StringVar(&flagSig, "sig", "", "Signature path (default: FILE.asc)")
	c.Flags().StringVar(&flagKeyring, "keyring", "", "Armored or binary public keyring")
	return c
}

func sigPath(manifest string) string {
	if flagSig != "" {
		return flagSig
	}
	return manifest + ".asc"
}

func runSign(cmd *cobra.Command, args []string) error {
	signer, err := signature.LoadSigner(flagKey)
	if err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(sigPath(args[0]))
	if err != nil {
		return err
	}
	if err := signature.Sign(signer, in, out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Logger().Infof("signed %s -> %s", args[0], sigPath(args[0]))
	return nil
}

func runVerifySignature(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	keyringPath := flagKeyring
	if keyringPath == "" {
		keyringPath = cfg.KeyringPath
	}
	if keyringPath == "" {
		return fmt.Errorf("no keyring: pass --keyring or set keyring in the config")
	}

	keyring, err := signature.LoadKeyRing(keyringPath)
	if err != nil {
		return err
	}

	signer, err := signature.VerifyFiles(keyring, args[0], sigPath(args[0]))
	if err != nil {
		log.Errorf("%s: %v", args[0], err)
		return errFailed
	}

	log.Infof("✓ %s signed by %s", args[0], signer)
	return nil
}
