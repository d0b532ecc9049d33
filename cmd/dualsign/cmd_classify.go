package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/rpcerror"
	"gopkg.in/yaml.v3"
)

// classification is the printable form of a typed error.
type classification struct {
	Kind    string                 `json:"kind" yaml:"kind"`
	Chain   []string               `json:"chain" yaml:"chain"`
	Message string                 `json:"message" yaml:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func cmdClassify(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Read a ledger error payload in JSON format from the input and print its
classification.

Use -result when the input is a transaction outcome with the error stored
under status.Failure.
`)
		fl.PrintDefaults()
	}
	var (
		resultFl = fl.Bool("result", false, "Input is a transaction outcome.")
		outputFl = fl.String("o", "text", "Output format, one of text, json or yaml.")
	)
	fl.Parse(args)

	raw, err := ioutil.ReadAll(input)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "cannot read input: %s", err)
	}

	var typed *rpcerror.TypedError
	if *resultFl {
		typed, err = rpcerror.ClassifyResult(raw)
	} else {
		typed, err = rpcerror.Classify(raw)
	}
	if err != nil {
		return err
	}
	return printClassification(output, *outputFl, typed)
}

func cmdClassifyMessage(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Classify an error message sent by the ledger as plain text. The message is
read from the arguments or, if none are given, from the input.
`)
		fl.PrintDefaults()
	}
	var (
		outputFl = fl.String("o", "text", "Output format, one of text, json or yaml.")
	)
	fl.Parse(args)

	text := strings.Join(fl.Args(), " ")
	if text == "" {
		raw, err := ioutil.ReadAll(input)
		if err != nil {
			return errors.Wrapf(errors.ErrInput, "cannot read input: %s", err)
		}
		text = strings.TrimSpace(string(raw))
	}
	if text == "" {
		return errors.Wrap(errors.ErrEmpty, "message")
	}
	return printClassification(output, *outputFl, rpcerror.FromMessage(text))
}

func printClassification(output io.Writer, format string, typed *rpcerror.TypedError) error {
	c := classification{
		Kind:    typed.Kind(),
		Chain:   typed.Chain(),
		Message: typed.Error(),
		Fields:  typed.Fields(),
	}
	switch format {
	case "text":
		_, err := fmt.Fprintf(output, "%s\t%s\n%s\n", c.Kind, strings.Join(c.Chain, " > "), c.Message)
		return err
	case "json":
		enc := json.NewEncoder(output)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case "yaml":
		enc := yaml.NewEncoder(output)
		defer enc.Close()
		return enc.Encode(c)
	default:
		return errors.Wrapf(errors.ErrInput, "unknown output format %q", format)
	}
}
