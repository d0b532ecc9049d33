/*
Package twofa implements the confirmation protocol of accounts guarded by a
second factor.

A transaction is first registered as a multisig request. The helper service
then delivers a one time code to the owner through the configured recovery
method (email or phone). The owner enters the code and the helper, holding
the second key of the account, confirms the request once the code is
verified.

Each confirmation is tracked by a Session whose state machine is

	submitted -> code_requested -> awaiting_code -> verifying -> confirmed
	                                     ^              |
	                                     +--------------+ invalid code

and any state can move to failed.
*/
package twofa
