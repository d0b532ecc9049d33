package twofa

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/iov-one/dualsign/errors"
)

// Method is the second factor a code is delivered through.
type Method struct {
	// Kind is for example "2fa-email" or "2fa-phone".
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// SendCodeRequest asks for a code confirming the request to be delivered.
type SendCodeRequest struct {
	AccountID string
	RequestID uint64
	// Method is nil when the account has no second factor registered.
	Method *Method
}

// VerifyRequest carries a code entered by the owner.
type VerifyRequest struct {
	AccountID string
	RequestID uint64
	Code      string
}

// CodeSender delivers a confirmation code to the owner.
type CodeSender interface {
	SendCode(ctx context.Context, req SendCodeRequest) error
}

// CodeGetter obtains the code from the owner. It usually blocks until the
// owner enters it.
type CodeGetter interface {
	GetCode(ctx context.Context, method *Method) (string, error)
}

// CodeVerifier verifies the code and confirms the request. It returns the
// payload of the confirmation.
type CodeVerifier interface {
	VerifyCode(ctx context.Context, req VerifyRequest) (json.RawMessage, error)
}

// CodeSenderFunc adapts a function to the CodeSender interface.
type CodeSenderFunc func(ctx context.Context, req SendCodeRequest) error

func (fn CodeSenderFunc) SendCode(ctx context.Context, req SendCodeRequest) error {
	return fn(ctx, req)
}

// CodeGetterFunc adapts a function to the CodeGetter interface.
type CodeGetterFunc func(ctx context.Context, method *Method) (string, error)

func (fn CodeGetterFunc) GetCode(ctx context.Context, method *Method) (string, error) {
	return fn(ctx, method)
}

// CodeVerifierFunc adapts a function to the CodeVerifier interface.
type CodeVerifierFunc func(ctx context.Context, req VerifyRequest) (json.RawMessage, error)

func (fn CodeVerifierFunc) VerifyCode(ctx context.Context, req VerifyRequest) (json.RawMessage, error) {
	return fn(ctx, req)
}

// noCodeGetter is used when no code getter was configured.
type noCodeGetter struct{}

func (noCodeGetter) GetCode(ctx context.Context, method *Method) (string, error) {
	kind := "unknown"
	if method != nil {
		kind = method.Kind
	}
	return "", errors.Wrapf(errors.ErrInput,
		"no code getter provided, configure one with WithCodeGetter to read the code delivered through %q", kind)
}

// Texts the helper service responds with when the code is wrong.
var invalidCodeMessages = []string{
	"invalid 2fa code provided",
	"2fa code not valid",
}

// isInvalidCode returns true if verification failed because the code was
// wrong. Such failure can be retried with another code.
func isInvalidCode(err error) bool {
	msg := err.Error()
	for _, m := range invalidCodeMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
