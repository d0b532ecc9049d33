package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/google/uuid"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/rpcerror"
	"github.com/tendermint/tendermint/libs/log"
)

// Client is a JSON-RPC client of a ledger node.
//
// Basic accessors are declared here. Account level API build around these
// accessors is defined in account.go
type Client struct {
	url    string
	cli    *http.Client
	logger log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used to talk to the node.
func WithHTTPClient(cli *http.Client) ClientOption {
	return func(c *Client) {
		c.cli = cli
	}
}

// WithClientLogger sets the logger of the client.
func WithClientLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client of the node available at given URL.
func NewClient(nodeURL string, opts ...ClientOption) *Client {
	c := &Client{
		url:    nodeURL,
		cli:    http.DefaultClient,
		logger: log.NewNopLogger(),
	}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type jsonrpcResponse struct {
	ID     string             `json:"id"`
	Error  *jsonResponseError `json:"error"`
	Result json.RawMessage    `json:"result"`
}

type jsonResponseError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Name    string          `json:"name"`
	Cause   *struct {
		Name string          `json:"name"`
		Info json.RawMessage `json:"info"`
	} `json:"cause"`
}

// typed converts the response error into a classified ledger error.
// Structured data is classified by its shape, text by known messages.
func (e *jsonResponseError) typed() *rpcerror.TypedError {
	if len(e.Data) != 0 {
		var text string
		if err := json.Unmarshal(e.Data, &text); err == nil {
			return rpcerror.FromMessage(text)
		}
		if typed, err := rpcerror.Classify([]byte(e.Data)); err == nil {
			return typed
		}
	}
	if e.Cause != nil && e.Cause.Name != "" {
		info := e.Cause.Info
		if len(info) == 0 || string(info) == "null" {
			info = json.RawMessage("{}")
		}
		raw := append(append([]byte(`{"`+e.Cause.Name+`":`), info...), '}')
		if typed, err := rpcerror.Classify(raw); err == nil {
			return typed
		}
	}
	return rpcerror.FromMessage(e.Message)
}

// Call sends a JSON-RPC request and decodes the result into dest.
func (c *Client) Call(ctx context.Context, method string, params interface{}, dest interface{}) error {
	body, err := json.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.New().String(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequest("POST", c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create http request")
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: %s", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 1e5))
		return errors.Wrapf(errors.ErrNetwork, "%s: bad response: %d %s", method, resp.StatusCode, string(b))
	}

	var payload jsonrpcResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1e7)).Decode(&payload); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: decode response: %s", method, err)
	}
	if payload.Error != nil {
		typed := payload.Error.typed()
		c.logger.Debug("rpc error", "method", method, "code", payload.Error.Code, "kind", typed.Kind())
		return errors.Wrap(typed, method)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(payload.Result, dest); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "%s: decode result: %s", method, err)
	}
	return nil
}

// Block returns the latest block of given finality.
func (c *Client) Block(ctx context.Context, finality string) (*Block, error) {
	var b Block
	if err := c.Call(ctx, "block", map[string]string{"finality": finality}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// query sends a query request. Query errors reported inside of the result
// by older nodes are turned into classified errors.
func (c *Client) query(ctx context.Context, params map[string]interface{}, dest interface{}) error {
	if _, ok := params["finality"]; !ok {
		params["finality"] = FinalityFinal
	}
	var raw json.RawMessage
	if err := c.Call(ctx, "query", params, &raw); err != nil {
		return err
	}
	var qerr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &qerr); err == nil && qerr.Error != "" {
		return errors.Wrap(rpcerror.FromMessage(qerr.Error), "query")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "query: decode result: %s", err)
	}
	return nil
}

// CallFunction calls a view method of a contract. args is passed unchanged
// and is usually JSON.
func (c *Client) CallFunction(ctx context.Context, contractID, methodName string, args []byte) (*CallResult, error) {
	var res CallResult
	err := c.query(ctx, map[string]interface{}{
		"request_type": "call_function",
		"account_id":   contractID,
		"method_name":  methodName,
		"args_base64":  base64.StdEncoding.EncodeToString(args),
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ViewAccount returns the state of an account.
func (c *Client) ViewAccount(ctx context.Context, accountID string) (*AccountView, error) {
	var res AccountView
	err := c.query(ctx, map[string]interface{}{
		"request_type": "view_account",
		"account_id":   accountID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ViewAccessKey returns a single access key of an account.
func (c *Client) ViewAccessKey(ctx context.Context, accountID, publicKey string) (*AccessKeyView, error) {
	var res AccessKeyView
	err := c.query(ctx, map[string]interface{}{
		"request_type": "view_access_key",
		"account_id":   accountID,
		"public_key":   publicKey,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ViewAccessKeyList returns all access keys of an account.
func (c *Client) ViewAccessKeyList(ctx context.Context, accountID string) ([]AccessKeyInfo, error) {
	var res struct {
		Keys []AccessKeyInfo `json:"keys"`
	}
	err := c.query(ctx, map[string]interface{}{
		"request_type": "view_access_key_list",
		"account_id":   accountID,
	}, &res)
	if err != nil {
		return nil, err
	}
	return res.Keys, nil
}

// BroadcastTxCommit sends a signed transaction and waits until it is
// executed. A transaction that was executed but failed is returned together
// with its classified failure.
func (c *Client) BroadcastTxCommit(ctx context.Context, stx *SignedTransaction) (*FinalExecutionOutcome, error) {
	raw, err := stx.Serialize()
	if err != nil {
		return nil, err
	}
	var out FinalExecutionOutcome
	params := []string{base64.StdEncoding.EncodeToString(raw)}
	if err := c.Call(ctx, "broadcast_tx_commit", params, &out); err != nil {
		return nil, err
	}
	return &out, out.Failure()
}
