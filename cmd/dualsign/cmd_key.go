package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/store"
)

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Generate a new private key of the configured account and keep it in the local
store. The key is derived from a mnemonic. When no mnemonic is given, a new
one is generated and printed out together with the public key. Write it down,
it is the only way to restore the key.

This command fails if the account already has a key.
`)
		fl.PrintDefaults()
	}
	var (
		configFl   = configFlag(fl)
		mnemonicFl = fl.String("mnemonic", "", "Mnemonic to derive the key from.")
		pathFl     = fl.String("path", crypto.DefaultDerivationPath, "Derivation path of the key.")
	)
	fl.Parse(args)

	conf, err := loadConfig(*configFl)
	if err != nil {
		return err
	}
	if err := conf.requireAccount(); err != nil {
		return err
	}
	db, err := store.OpenLevelDB(conf.StoreDir)
	if err != nil {
		return err
	}
	defer db.Close()
	keys := crypto.NewKeyStore(db)

	// Do not allow to overwrite an existing key. User must remove it
	// first to ensure we do not delete such crucial data by an accident.
	switch _, err := keys.GetKey(conf.NetworkID, conf.AccountID); {
	case err == nil:
		return errors.Wrapf(errors.ErrInput, "key of %s on %s already exists, run forget first", conf.AccountID, conf.NetworkID)
	case !errors.ErrNotFound.Is(err):
		return err
	}

	mnemonic := *mnemonicFl
	if mnemonic == "" {
		if mnemonic, err = crypto.NewMnemonic(); err != nil {
			return err
		}
		fmt.Fprintln(output, mnemonic)
	}
	key, err := crypto.KeyPairFromMnemonic(mnemonic, *pathFl)
	if err != nil {
		return err
	}
	if err := keys.SetKey(conf.NetworkID, conf.AccountID, key); err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, key.PublicKey())
	return err
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print out the public key of the configured account.
`)
		fl.PrintDefaults()
	}
	var (
		configFl = configFlag(fl)
	)
	fl.Parse(args)

	conf, err := loadConfig(*configFl)
	if err != nil {
		return err
	}
	if err := conf.requireAccount(); err != nil {
		return err
	}
	db, err := store.OpenLevelDB(conf.StoreDir)
	if err != nil {
		return err
	}
	defer db.Close()

	pk, err := crypto.NewKeyStoreSigner(crypto.NewKeyStore(db)).PublicKey(conf.AccountID, conf.NetworkID)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, pk)
	return err
}

func cmdForget(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Remove the private key of the configured account from the local store.
`)
		fl.PrintDefaults()
	}
	var (
		configFl = configFlag(fl)
	)
	fl.Parse(args)

	conf, err := loadConfig(*configFl)
	if err != nil {
		return err
	}
	if err := conf.requireAccount(); err != nil {
		return err
	}
	db, err := store.OpenLevelDB(conf.StoreDir)
	if err != nil {
		return err
	}
	defer db.Close()
	return crypto.NewKeyStore(db).RemoveKey(conf.NetworkID, conf.AccountID)
}
