package cli

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/records"
)

func TestLoad_SeedsDatabaseAndTrail(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewLoadCommand(env.opts("text")), testDataset)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Loaded testdata/dataset.yaml")
	assert.Contains(t, out, "orders:         2")
	assert.Contains(t, out, "payments:       2")
	assert.NotContains(t, out, "posted:")

	st, err := records.Open(env.db)
	require.NoError(t, err)
	defer st.Close()
	ctx := context.Background()

	order, err := st.GetOrder(ctx, "ORD-2")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(800)), "total after discount: %s", order.TotalAmount)
	invoices, err := st.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
	entries, err := st.ListLedgerEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "plain load posts nothing")

	trail := env.trail(t)
	assert.Equal(t, 1, countEvents(trail, audit.EventSystemStartup))
	assert.Equal(t, 2, countEvents(trail, audit.EventOrderCreated))
	assert.Equal(t, 2, countEvents(trail, audit.EventInvoiceCreated))
	assert.Equal(t, 2, countEvents(trail, audit.EventPaymentRecorded))
	assert.Equal(t, 1, countEvents(trail, audit.EventSystemShutdown))
	assert.Equal(t, audit.EventSystemStartup, trail[0].EventType)
	assert.Equal(t, audit.EventSystemShutdown, trail[len(trail)-1].EventType)
	assert.Equal(t, "ok", trail[len(trail)-1].Details["status"])
}

func TestLoad_PostLedger(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewLoadCommand(env.opts("json")), testDataset, "--post-ledger")
	require.NoError(t, err)

	var summary LoadSummary
	decodeData(t, out, &summary)
	assert.Equal(t, 2, summary.Orders)
	assert.Equal(t, 2, summary.Posted)
	assert.Equal(t, 1, summary.Payments)
	require.Len(t, summary.Rejected, 1)
	assert.Contains(t, summary.Rejected[0], "PAY-2")

	trail := env.trail(t)
	assert.Equal(t, 1, countEvents(trail, audit.EventPaymentRecorded), "rejected payments are not recorded")

	balances := ledgerBalances(t, env)
	assert.Equal(t, "850.00", balances[records.AccountReceivable])
	assert.Equal(t, "1250.00", balances[records.AccountRevenue])
	assert.Equal(t, "400.00", balances[records.AccountCash])

	st, err := records.Open(env.db)
	require.NoError(t, err)
	defer st.Close()
	inv, err := st.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, records.InvoicePartial, inv.Status)
	assert.True(t, inv.AmountDue.Equal(decimal.NewFromInt(600)), "amount due: %s", inv.AmountDue)
}

func TestLoad_PostLedgerTwiceDoesNotDoublePost(t *testing.T) {
	env := newTestEnv(t)
	env.load(t, "--post-ledger")

	out, err := execute(t, NewLoadCommand(env.opts("json")), testDataset, "--post-ledger")
	require.NoError(t, err)

	var summary LoadSummary
	decodeData(t, out, &summary)
	assert.Equal(t, 0, summary.Posted)
	assert.Equal(t, 0, summary.Payments)
	assert.Equal(t, "850.00", ledgerBalances(t, env)[records.AccountReceivable])
}

func TestLoad_PostLedgerRepeatedPaymentSettlesOnce(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewLoadCommand(env.opts("json")), "testdata/repeated_payment.yaml", "--post-ledger")
	require.NoError(t, err)

	var summary LoadSummary
	decodeData(t, out, &summary)
	assert.Equal(t, 1, summary.Payments)
	assert.Empty(t, summary.Rejected)
	assert.Equal(t, 1, countEvents(env.trail(t), audit.EventPaymentRecorded))

	balances := ledgerBalances(t, env)
	assert.Equal(t, "50.00", balances[records.AccountCash])
	assert.Equal(t, "50.00", balances[records.AccountReceivable])

	st, err := records.Open(env.db)
	require.NoError(t, err)
	defer st.Close()
	inv, err := st.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, records.InvoicePartial, inv.Status)
	assert.True(t, inv.AmountDue.Equal(decimal.NewFromInt(50)), "amount due: %s", inv.AmountDue)
}

func TestLoad_MissingDataset(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, NewLoadCommand(env.opts("text")), "testdata/nope.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [R003]")

	_, statErr := os.Stat(env.auditDir)
	assert.True(t, os.IsNotExist(statErr), "no session is opened for an unreadable dataset")
}

func TestLoad_UnwritableDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.db = t.TempDir()

	out, err := execute(t, NewLoadCommand(env.opts("json")), testDataset)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `"code":"R002"`)
}

func TestLoad_RequiresOneArgument(t *testing.T) {
	env := newTestEnv(t)

	_, err := execute(t, NewLoadCommand(env.opts("text")))
	require.Error(t, err)
}

func ledgerBalances(t *testing.T, env *testEnv) map[string]string {
	t.Helper()
	out, err := execute(t, NewLedgerCommand(env.opts("json")), "balances")
	require.NoError(t, err)

	var lines []AccountBalance
	decodeData(t, out, &lines)
	m := make(map[string]string, len(lines))
	for _, l := range lines {
		m[l.Account] = l.Balance
	}
	return m
}
