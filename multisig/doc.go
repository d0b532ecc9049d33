/*
Package multisig submits transactions as requests of a multisig contract
deployed to the owner account.

A transaction is never sent directly. It is wrapped into an
add_request_and_confirm call against the owner account and becomes a pending
request that must be confirmed by another key before the contract executes
it. The most recent request is remembered in a RequestStore so that other
components (for example the confirmation flow) can refer to it.

The contract limits the number of active requests. When the limit is reached
the account deletes its stale requests and submits again.
*/
package multisig
