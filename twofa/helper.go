package twofa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/errors"
	"github.com/tendermint/tendermint/libs/log"
	"golang.org/x/time/rate"
)

// DefaultHelperURL is the helper service of the test network.
const DefaultHelperURL = "https://helper.testnet.near.org"

// BlockSource returns the latest block. *client.Client implements it.
type BlockSource interface {
	Block(ctx context.Context, finality string) (*client.Block, error)
}

var _ BlockSource = (*client.Client)(nil)

// RecoveryMethod is a way of recovering or confirming access to an account,
// as registered with the helper service.
type RecoveryMethod struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	// PublicKey is set for methods holding a key, for example a seed
	// phrase or a ledger device.
	PublicKey string `json:"publicKey"`
}

// Helper is a client of the helper service. Every request is authenticated
// with the number of the latest final block signed by the account key.
type Helper struct {
	url       string
	cli       *http.Client
	limiter   *rate.Limiter
	blocks    BlockSource
	signer    crypto.Signer
	networkID string
	logger    log.Logger
}

// HelperOption configures a Helper.
type HelperOption func(*Helper)

// WithHelperHTTPClient sets the HTTP client used to reach the service.
func WithHelperHTTPClient(cli *http.Client) HelperOption {
	return func(h *Helper) {
		h.cli = cli
	}
}

// WithRateLimit limits the number of requests per second sent to the
// service.
func WithRateLimit(perSecond float64, burst int) HelperOption {
	return func(h *Helper) {
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHelperLogger sets the logger.
func WithHelperLogger(logger log.Logger) HelperOption {
	return func(h *Helper) {
		h.logger = logger
	}
}

// NewHelper returns a client of the helper service at given URL. Requests
// are signed by the signer using the block number read from blocks.
func NewHelper(url string, blocks BlockSource, signer crypto.Signer, networkID string, opts ...HelperOption) *Helper {
	h := &Helper{
		url:       strings.TrimRight(url, "/"),
		cli:       &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(5), 5),
		blocks:    blocks,
		signer:    signer,
		networkID: networkID,
		logger:    log.NewNopLogger(),
	}
	for _, fn := range opts {
		fn(h)
	}
	return h
}

var (
	_ CodeSender   = (*Helper)(nil)
	_ CodeVerifier = (*Helper)(nil)
	_ Service      = (*Helper)(nil)
)

// SendCode asks the service to deliver a code confirming the request.
func (h *Helper) SendCode(ctx context.Context, req SendCodeRequest) error {
	return h.post(ctx, "/2fa/send", req.AccountID, map[string]interface{}{
		"accountId": req.AccountID,
		"method":    req.Method,
		"requestId": req.RequestID,
	}, nil)
}

// VerifyCode sends the code to the service. The service confirms the
// request when the code is valid.
func (h *Helper) VerifyCode(ctx context.Context, req VerifyRequest) (json.RawMessage, error) {
	var res json.RawMessage
	err := h.post(ctx, "/2fa/verify", req.AccountID, map[string]interface{}{
		"accountId":    req.AccountID,
		"securityCode": req.Code,
		"requestId":    req.RequestID,
	}, &res)
	return res, err
}

// AccessKey returns the confirm only key the service holds for the account.
func (h *Helper) AccessKey(ctx context.Context, accountID string) (crypto.PublicKey, error) {
	var res struct {
		PublicKey string `json:"publicKey"`
	}
	err := h.post(ctx, "/2fa/getAccessKey", accountID, map[string]interface{}{
		"accountId": accountID,
	}, &res)
	if err != nil {
		return crypto.PublicKey{}, err
	}
	pk, err := crypto.ParsePublicKey(res.PublicKey)
	if err != nil {
		return crypto.PublicKey{}, errors.Wrap(err, "helper access key")
	}
	return pk, nil
}

// RecoveryMethods returns all recovery methods of the account.
func (h *Helper) RecoveryMethods(ctx context.Context, accountID string) ([]RecoveryMethod, error) {
	var res []RecoveryMethod
	err := h.post(ctx, "/account/recoveryMethods", accountID, map[string]interface{}{
		"accountId": accountID,
	}, &res)
	return res, err
}

// signature returns the number of the latest final block and its signature
// by the account key.
func (h *Helper) signature(ctx context.Context, accountID string) (string, string, error) {
	block, err := h.blocks.Block(ctx, client.FinalityFinal)
	if err != nil {
		return "", "", errors.Wrap(err, "latest block")
	}
	number := strconv.FormatUint(block.Header.Height, 10)
	sig, err := h.signer.SignMessage([]byte(number), accountID, h.networkID)
	if err != nil {
		return "", "", errors.Wrap(err, "sign block number")
	}
	return number, base64.StdEncoding.EncodeToString(sig), nil
}

func (h *Helper) post(ctx context.Context, path, accountID string, body map[string]interface{}, dest interface{}) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: %s", path, err)
	}

	number, sig, err := h.signature(ctx, accountID)
	if err != nil {
		return err
	}
	body["blockNumber"] = number
	body["blockNumberSignature"] = sig

	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "%s: encode request: %s", path, err)
	}
	req, err := http.NewRequest("POST", h.url+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "%s: %s", path, err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	h.logger.Debug("helper request", "path", path, "account", accountID, "block", number)
	resp, err := h.cli.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: %s", path, err)
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(io.LimitReader(resp.Body, 1e6))
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: read response: %s", path, err)
	}
	if resp.StatusCode >= 300 {
		return errors.Wrapf(errors.ErrNetwork, "%s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if dest == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: decode response: %s", path, err)
	}
	return nil
}
