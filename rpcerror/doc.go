/*
Package rpcerror classifies errors returned by the ledger.

Ledger failures arrive either as a structured payload or as plain text. A
structured payload is a nested object where every level has a single key
naming the error kind and the innermost level carries the named attributes of
the failure:

	{"TxExecutionError": {"InvalidTxError": {"InvalidAccessKeyError": {
		"ReceiverMismatch": {"ak_receiver": "test.near", "tx_receiver": "bob.near"}}}}}

Classify unwraps such a payload into a TypedError. The kind of a TypedError
is the innermost key, the chain lists every key from the outermost one, so
that a handler can match a whole family of failures:

	if te, ok := rpcerror.As(err); ok && te.IsSubtypeOf("InvalidAccessKeyError") {
		...
	}

Errors that arrive as text are matched against an ordered rule table by
ClassifyMessage. Text that matches no rule is of the UntypedError kind.
*/
package rpcerror
