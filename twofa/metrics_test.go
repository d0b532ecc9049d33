package twofa

import (
	"context"
	"testing"

	"github.com/iov-one/dualsign/client"
	"github.com/iov-one/dualsign/dualsigntest"
	"github.com/iov-one/dualsign/multisig"
	"github.com/iov-one/dualsign/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	contract := dualsigntest.NewContract(owner)
	service := newFakeService(contract)
	service.enter("bad")

	metrics := NewMetrics("dualsign")
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	ms := multisig.NewAccount(contract, owner, multisig.WithStorage(store.NewMemStore()))
	acc := NewAccount(ms, WithService(service), WithCodeSender(service),
		WithCodeGetter(service), WithCodeVerifier(service), WithMetrics(metrics))

	_, err := acc.SignAndSendTransaction(context.Background(), owner, []client.Action{
		client.NewTransfer(client.NewBalance(1)),
	})
	ms.Wait()
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.CodesSent))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.InvalidCodes))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Confirmations))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.DeliveryFailures))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.VerificationErrors))

	n, err := testutil.GatherAndCount(reg, "dualsign_twofa_session_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
