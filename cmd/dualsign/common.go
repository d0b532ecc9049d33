package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/multisig"
	"github.com/iov-one/dualsign/store"
	"github.com/iov-one/dualsign/twofa"
)

// env holds everything a command talking to the ledger needs. Call close
// when done.
type env struct {
	conf    *config
	db      *store.LevelDB
	keys    *crypto.KeyStore
	account *client.Account
	ms      *multisig.Account
}

// openEnv opens the local store and connects the configured account.
func openEnv(conf *config) (*env, error) {
	if err := conf.requireAccount(); err != nil {
		return nil, err
	}
	db, err := store.OpenLevelDB(conf.StoreDir)
	if err != nil {
		return nil, err
	}
	keys := crypto.NewKeyStore(db)
	logger := conf.logger()
	conn := client.NewClient(conf.NodeURL, client.WithClientLogger(logger))
	account := client.NewAccount(conn, crypto.NewKeyStoreSigner(keys), conf.NetworkID, conf.AccountID).
		WithLogger(logger)
	ms := multisig.NewAccount(account, conf.AccountID,
		multisig.WithStorage(db),
		multisig.WithLogger(logger),
		multisig.WithOnCleanupError(func(err error) {
			logger.Error("stale requests left", "err", err)
		}),
	)
	return &env{
		conf:    conf,
		db:      db,
		keys:    keys,
		account: account,
		ms:      ms,
	}, nil
}

// guarded returns the account confirming requests with codes read from input.
func (e *env) guarded(input io.Reader, output io.Writer) *twofa.Account {
	helper := twofa.NewHelper(e.conf.HelperURL, e.account.Connection(), e.account.Signer(), e.conf.NetworkID,
		twofa.WithHelperLogger(e.conf.logger()))
	return twofa.NewAccount(e.ms,
		twofa.WithHelper(helper),
		twofa.WithLogger(e.conf.logger()),
		twofa.WithMaxCodeAttempts(e.conf.MaxCodeAttempts),
		twofa.WithCodeGetter(promptCode(input, output)),
	)
}

func (e *env) close() error {
	e.ms.Wait()
	return e.db.Close()
}

func (e *env) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.conf.Timeout)
}

// promptCode returns a code getter asking for the code on output and
// reading it line by line from input.
func promptCode(input io.Reader, output io.Writer) twofa.CodeGetter {
	lines := bufio.NewScanner(input)
	return twofa.CodeGetterFunc(func(ctx context.Context, m *twofa.Method) (string, error) {
		if m != nil {
			fmt.Fprintf(output, "Enter the code sent to %s (%s): ", m.Detail, m.Kind)
		} else {
			fmt.Fprint(output, "Enter the confirmation code: ")
		}
		if !lines.Scan() {
			if err := lines.Err(); err != nil {
				return "", errors.Wrapf(errors.ErrInput, "cannot read code: %s", err)
			}
			return "", errors.Wrap(errors.ErrInput, "no code entered")
		}
		return strings.TrimSpace(lines.Text()), nil
	})
}
