package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/multisig"
	"github.com/iov-one/dualsign/store"
	"github.com/iov-one/dualsign/twofa"
)

func cmdRequests(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print ids of all active requests of the configured account, one per line.
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
	e, err := openEnv(conf)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context()
	defer cancel()
	ids, err := e.ms.GetRequestIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(output, id)
	}
	return nil
}

func cmdPending(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the request most recently submitted from this computer, in JSON
format. Nothing is printed if there is none.
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
	db, err := store.OpenLevelDB(conf.StoreDir)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := multisig.NewRequestStore(db).Get()
	if err != nil {
		return err
	}
	if r == nil {
		return nil
	}
	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func cmdCleanup(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Delete all active requests of the configured account except the one most
recently submitted from this computer.
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
	e, err := openEnv(conf)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context()
	defer cancel()
	return e.ms.DeleteUnconfirmedRequests(ctx)
}

func cmdSend(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Transfer tokens from the configured account. The transfer is confirmed with a
code delivered by the helper service. The code is read from the input.
`)
		fl.PrintDefaults()
	}
	var (
		configFl = configFlag(fl)
		toFl     = fl.String("to", "", "Receiver account.")
		amountFl = fl.String("amount", "", "Amount in the smallest unit.")
	)
	fl.Parse(args)

	if *toFl == "" {
		flagDie("-to is required")
	}
	amount, err := client.ParseBalance(*amountFl)
	if err != nil {
		flagDie("invalid -amount: %s", err)
	}

	conf, err := loadConfig(*configFl)
	if err != nil {
		return err
	}
	e, err := openEnv(conf)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context()
	defer cancel()
	res, err := e.guarded(input, output).SignAndSendTransaction(ctx, *toFl, []client.Action{
		client.NewTransfer(amount),
	})
	if err != nil {
		return err
	}
	return printResult(output, res)
}

func cmdDeploy(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Deploy the multisig contract to the configured account and protect it with a
second factor. Full access keys become limited to submitting requests.
`)
		fl.PrintDefaults()
	}
	var (
		configFl = configFlag(fl)
		wasmFl   = fl.String("wasm", "", "Path to the multisig contract code.")
	)
	fl.Parse(args)

	code, err := readCode(*wasmFl)
	if err != nil {
		return err
	}
	conf, err := loadConfig(*configFl)
	if err != nil {
		return err
	}
	e, err := openEnv(conf)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context()
	defer cancel()
	out, err := e.guarded(input, output).DeployMultisig(ctx, code)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, out.TransactionOutcome.ID)
	return err
}

func cmdDisable(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Remove the second factor from the configured account. The given contract
replaces the multisig one and limited keys regain full access. The change must
be confirmed with a code read from the input.
`)
		fl.PrintDefaults()
	}
	var (
		configFl = configFlag(fl)
		wasmFl   = fl.String("wasm", "", "Path to the contract code replacing the multisig contract.")
	)
	fl.Parse(args)

	code, err := readCode(*wasmFl)
	if err != nil {
		return err
	}
	conf, err := loadConfig(*configFl)
	if err != nil {
		return err
	}
	e, err := openEnv(conf)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, cancel := e.context()
	defer cancel()
	res, err := e.guarded(input, output).Disable(ctx, code)
	if err != nil {
		return err
	}
	return printResult(output, res)
}

func cmdStates(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the state machine of a confirmation in graphviz format.
`)
		fl.PrintDefaults()
	}
	fl.Parse(args)

	_, err := fmt.Fprintln(output, twofa.StateGraph())
	return err
}

func readCode(path string) ([]byte, error) {
	if path == "" {
		flagDie("-wasm is required")
	}
	code, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "cannot read contract code: %s", err)
	}
	return code, nil
}

func printResult(output io.Writer, res *twofa.Result) error {
	fmt.Fprintf(output, "\nrequest %d confirmed after %d attempt(s)\n", res.RequestID, res.Attempts)
	if len(res.Payload) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(output, string(res.Payload))
	return err
}
