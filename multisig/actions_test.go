package multisig

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/dualsigntest/assert"
	"github.com/iov-one/dualsign/errors"
)

func TestContractActions(t *testing.T) {
	pk := crypto.KeyPairFromSeed(bytes.Repeat([]byte{1}, 32)).PublicKey()
	bare := pk.String()[len("ed25519:"):]

	cases := map[string]struct {
		Action   client.Action
		Receiver string
		Want     string
	}{
		"transfer": {
			Action:   client.NewTransfer(client.NewBalance(15)),
			Receiver: "bob.testnet",
			Want:     `{"type":"Transfer","amount":"15","deposit":"15"}`,
		},
		"function call": {
			Action:   client.NewFunctionCall("ping", []byte(`{}`), 30, client.NewBalance(2)),
			Receiver: "bob.testnet",
			Want:     `{"type":"FunctionCall","gas":"30","method_name":"ping","args":"e30=","amount":"2","deposit":"2"}`,
		},
		"deploy contract": {
			Action:   client.NewDeployContract([]byte{0, 1, 2}),
			Receiver: "alice.testnet",
			Want:     `{"type":"DeployContract","code":"AAEC","deposit":"0"}`,
		},
		"delete key": {
			Action:   client.NewDeleteKey(pk),
			Receiver: "alice.testnet",
			Want:     `{"type":"DeleteKey","public_key":"` + bare + `","deposit":"0"}`,
		},
		"stake": {
			Action:   client.NewStake(client.NewBalance(100), pk),
			Receiver: "alice.testnet",
			Want:     `{"type":"Stake","public_key":"` + bare + `","amount":"100","deposit":"0"}`,
		},
		"full access key": {
			Action:   client.NewAddKey(pk, client.FullAccessKey()),
			Receiver: "alice.testnet",
			Want:     `{"type":"AddKey","public_key":"` + bare + `","deposit":"0"}`,
		},
		"limited key on own account gets multisig methods": {
			Action:   client.NewAddKey(pk, client.FunctionCallAccessKey("alice.testnet", nil, nil)),
			Receiver: "alice.testnet",
			Want: `{"type":"AddKey","public_key":"` + bare + `","deposit":"0","permission":` +
				`{"receiver_id":"alice.testnet","allowance":"1000000000000000000000000",` +
				`"method_names":["add_request","add_request_and_confirm","delete_request","confirm"]}}`,
		},
		"explicit permission is kept": {
			Action:   client.NewAddKey(pk, client.FunctionCallAccessKey("app.testnet", []string{"vote"}, client.NewBalance(9))),
			Receiver: "alice.testnet",
			Want: `{"type":"AddKey","public_key":"` + bare + `","deposit":"0","permission":` +
				`{"receiver_id":"app.testnet","allowance":"9","method_names":["vote"]}}`,
		},
		"limited key on other account": {
			Action:   client.NewAddKey(pk, client.FunctionCallAccessKey("app.testnet", nil, nil)),
			Receiver: "bob.testnet",
			Want: `{"type":"AddKey","public_key":"` + bare + `","deposit":"0","permission":` +
				`{"receiver_id":"app.testnet","method_names":[]}}`,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			got, err := ContractActions([]client.Action{tc.Action}, "alice.testnet", tc.Receiver)
			assert.Nil(t, err)
			assert.Equal(t, 1, len(got))
			raw, err := json.Marshal(got[0])
			assert.Nil(t, err)
			assert.Equal(t, tc.Want, string(raw))
		})
	}
}

func TestContractActionsValidation(t *testing.T) {
	actions := []client.Action{
		client.NewTransfer(client.NewBalance(1)),
		{},
		{Transfer: &client.Transfer{}, DeleteAccount: &client.DeleteAccount{}},
	}
	_, err := ContractActions(actions, "alice.testnet", "bob.testnet")
	assert.FieldError(t, err, "Actions.0", nil)
	assert.FieldError(t, err, "Actions.1", errors.ErrEmpty)
	assert.FieldError(t, err, "Actions.2", errors.ErrInput)
}
