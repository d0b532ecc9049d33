package twofa

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/crypto"
	"github.com/iov-one/dualsign/dualsigntest"
	"github.com/iov-one/dualsign/errors"
	"github.com/iov-one/dualsign/multisig"
	"github.com/iov-one/dualsign/store"
	. "github.com/smartystreets/goconvey/convey"
)

func testKey(b byte) crypto.PublicKey {
	return crypto.KeyPairFromSeed(bytes.Repeat([]byte{b}, 32)).PublicKey()
}

func TestDeployMultisig(t *testing.T) {
	Convey("Given an account with full access keys", t, func() {
		device, recovery, app, helperKey := testKey(1), testKey(2), testKey(3), testKey(4)

		contract := dualsigntest.NewContract(owner)
		contract.SetKeys([]client.AccessKeyInfo{
			{PublicKey: device.String(), AccessKey: client.FullAccessKey()},
			{PublicKey: recovery.String(), AccessKey: client.FullAccessKey()},
			{PublicKey: app.String(), AccessKey: client.FunctionCallAccessKey("app.testnet", []string{"vote"}, nil)},
		})
		service := newFakeService(contract)
		service.key = helperKey
		service.methods = []RecoveryMethod{
			{Kind: "phrase", PublicKey: recovery.String()},
			{Kind: "2fa-email", Detail: "alice@example.com"},
		}
		ms := multisig.NewAccount(contract, owner, multisig.WithStorage(store.NewMemStore()))
		acc := NewAccount(ms, WithService(service), WithCodeSender(service),
			WithCodeGetter(service), WithCodeVerifier(service))
		ctx := context.Background()

		keys := func() map[string]client.AccessKey {
			list, err := contract.AccessKeys(ctx)
			So(err, ShouldBeNil)
			res := make(map[string]client.AccessKey)
			for _, k := range list {
				res[k.PublicKey] = k.AccessKey
			}
			return res
		}

		Convey("Deploying limits every key not held by recovery", func() {
			_, err := acc.DeployMultisig(ctx, []byte("wasm"))
			So(err, ShouldBeNil)

			got := keys()
			So(got, ShouldHaveLength, 4)
			So(got[recovery.String()].Permission.IsFullAccess(), ShouldBeTrue)
			So(got[device.String()].Permission.FunctionCall, ShouldResemble, &client.FunctionCallPermission{
				ReceiverID:  owner,
				MethodNames: multisig.MultisigChangeMethods,
			})
			So(got[helperKey.String()].Permission.FunctionCall, ShouldResemble, &client.FunctionCallPermission{
				ReceiverID:  owner,
				MethodNames: multisig.MultisigConfirmMethods,
			})
			So(got[app.String()].Permission.FunctionCall.ReceiverID, ShouldEqual, "app.testnet")

			So(contract.Calls(), ShouldResemble, []string{
				"DeleteKey", "AddKey", "AddKey", "DeployContract", "new",
			})
		})

		Convey("An account with code is not initialized again", func() {
			contract.SetCodeHash("9uYgmJ4Kd3XbzRrPp1vFr4rBYtwZ2cuu2QeYnUYqjzJ")
			_, err := acc.DeployMultisig(ctx, []byte("wasm"))
			So(err, ShouldBeNil)
			So(contract.CallCount("new"), ShouldEqual, 0)
			So(contract.CallCount("DeployContract"), ShouldEqual, 1)
		})

		Convey("Disabling restores full access through a confirmed request", func() {
			_, err := acc.DeployMultisig(ctx, []byte("wasm"))
			So(err, ShouldBeNil)

			res, err := acc.Disable(ctx, []byte("plain"))
			ms.Wait()
			So(err, ShouldBeNil)
			So(res.Attempts, ShouldEqual, 1)

			// The contract executes requests only once confirmed, so the
			// submitted request tells what would happen.
			pending, err := ms.Request()
			So(err, ShouldBeNil)
			So(pending.RequestID, ShouldEqual, res.RequestID)
			kinds := make([]string, 0, len(pending.Actions))
			for _, a := range pending.Actions {
				kinds = append(kinds, a.Kind())
			}
			So(kinds, ShouldResemble, []string{"DeleteKey", "DeleteKey", "AddKey", "DeployContract"})
			So(pending.Actions[0].DeleteKey.PublicKey, ShouldResemble, helperKey)
			So(pending.Actions[1].DeleteKey.PublicKey, ShouldResemble, device)
			So(pending.Actions[2].AddKey.AccessKey.Permission.IsFullAccess(), ShouldBeTrue)
		})

		Convey("Without a helper service nothing is sent", func() {
			acc := NewAccount(ms, WithCodeGetter(service))
			_, err := acc.DeployMultisig(ctx, []byte("wasm"))
			So(errors.ErrInput.Is(err), ShouldBeTrue)
			So(contract.Calls(), ShouldBeEmpty)
		})
	})
}

func TestIsMultisigKey(t *testing.T) {
	Convey("Only keys limited to the multisig methods of the owner match", t, func() {
		So(isMultisigKey(client.FullAccessKey().Permission, owner), ShouldBeFalse)
		So(isMultisigKey(client.FunctionCallAccessKey(owner, multisig.MultisigChangeMethods, nil).Permission, owner), ShouldBeTrue)
		So(isMultisigKey(client.FunctionCallAccessKey("bob.testnet", multisig.MultisigChangeMethods, nil).Permission, owner), ShouldBeFalse)
		So(isMultisigKey(client.FunctionCallAccessKey(owner, multisig.MultisigConfirmMethods, nil).Permission, owner), ShouldBeFalse)
		So(isMultisigKey(client.FunctionCallAccessKey(owner, []string{"a", "b", "c", "d"}, nil).Permission, owner), ShouldBeFalse)
	})
}

func TestResultPayloadIsJSON(t *testing.T) {
	Convey("The verifier payload is kept unchanged", t, func() {
		r := Result{Payload: json.RawMessage(`{"a":1}`)}
		raw, err := json.Marshal(r)
		So(err, ShouldBeNil)
		So(string(raw), ShouldContainSubstring, `"Payload":{"a":1}`)
	})
}
