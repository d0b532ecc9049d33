/*
Package errors implements the error registry shared by every dualsign package.

Reuse the root errors declared in this package whenever possible. A root
error is created once, during program startup, with Register and every error
instance created at runtime should wrap one of them:

	errors.ErrRequestSubmission.New("no request id returned")
	errors.Wrap(errors.ErrNetwork, "broadcast tx")
	errors.Wrapf(err, "delete request %d", id)

Use the Is method of a root error to test whether a (possibly wrapped) error
is of a given kind. Is unwraps the error using the Cause method.

	if errors.ErrCodeDelivery.Is(err) {
		...
	}

A stack trace is attached at the first wrap. Use fmt with %+v to print it,
%v to append a compressed [filename:line] of the creation point and %s for
the message only.
*/
package errors
