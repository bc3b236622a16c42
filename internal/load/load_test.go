package load

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/store"
	"github.com/gyeh/ramqload/internal/store/memstore"
)

func diagnostics(codes ...string) model.TableRows {
	rows := make([]model.Record, len(codes))
	for i, c := range codes {
		rows[i] = model.DiagnosticCode{Code: c, Classification: model.ClassificationICD10}
	}
	return model.TableRows{Table: model.DiagnosticCodesTable, Rows: rows}
}

func TestReplaceCommits(t *testing.T) {
	s := memstore.New()
	l := New(s, time.Second, zerolog.Nop())

	res := l.Replace(context.Background(), model.KindDiagnosticCodes, diagnostics("A00", "B01", "C02"))
	require.NoError(t, res.Err)
	assert.True(t, res.Committed())
	assert.Equal(t, int64(3), res.Received)
	assert.Equal(t, int64(3), res.Inserted)
	assert.Equal(t, int64(0), res.Failed)
	assert.Equal(t, []string{"A00", "B01", "C02"}, s.Keys("diagnostic_codes"))
}

func TestReplaceIsIdempotent(t *testing.T) {
	s := memstore.New()
	l := New(s, time.Second, zerolog.Nop())
	set := diagnostics("A00", "B01")

	first := l.Replace(context.Background(), model.KindDiagnosticCodes, set)
	second := l.Replace(context.Background(), model.KindDiagnosticCodes, set)
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)

	assert.Equal(t, int64(2), second.Deleted)
	assert.Equal(t, first.Inserted, second.Inserted)
	assert.Equal(t, []string{"A00", "B01"}, s.Keys("diagnostic_codes"))
}

func TestReplaceFailureKeepsPriorContents(t *testing.T) {
	s := memstore.New()
	l := New(s, time.Second, zerolog.Nop())
	require.NoError(t, l.Replace(context.Background(), model.KindDiagnosticCodes, diagnostics("OLD1", "OLD2")).Err)

	s.FailAt("diagnostic_codes", 3)
	res := l.Replace(context.Background(), model.KindDiagnosticCodes, diagnostics("N1", "N2", "N3", "N4", "N5"))
	require.ErrorIs(t, res.Err, memstore.ErrInjected)
	assert.False(t, res.Committed())
	assert.Equal(t, int64(5), res.Failed)
	assert.Equal(t, int64(0), res.Inserted)
	assert.Equal(t, []string{"OLD1", "OLD2"}, s.Keys("diagnostic_codes"))
}

func TestReplaceDuplicateKeyRollsBack(t *testing.T) {
	s := memstore.New()
	l := New(s, time.Second, zerolog.Nop())
	res := l.Replace(context.Background(), model.KindDiagnosticCodes, diagnostics("A00", "A00"))
	require.ErrorIs(t, res.Err, memstore.ErrDuplicateKey)
	assert.Empty(t, s.Keys("diagnostic_codes"))
}

// blockingStore stalls every insert until the transaction context ends.
type blockingStore struct {
	*memstore.Store
}

type blockingTx struct {
	store.Tx
}

func (b blockingStore) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return b.Store.InTx(ctx, func(tx store.Tx) error {
		return fn(blockingTx{tx})
	})
}

func (b blockingTx) Insert(ctx context.Context, table model.Table, rows []model.Record) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestReplaceTimeoutRollsBack(t *testing.T) {
	s := memstore.New()
	require.NoError(t, New(s, time.Second, zerolog.Nop()).
		Replace(context.Background(), model.KindDiagnosticCodes, diagnostics("KEEP")).Err)

	l := New(blockingStore{s}, 20*time.Millisecond, zerolog.Nop())
	res := l.Replace(context.Background(), model.KindDiagnosticCodes, diagnostics("NEW"))
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), res.Failed)
	assert.Equal(t, []string{"KEEP"}, s.Keys("diagnostic_codes"))
}

func TestReplaceDerivedTablesShareTransaction(t *testing.T) {
	s := memstore.New()
	l := New(s, time.Second, zerolog.Nop())

	codes := model.TableRows{Table: model.BillingCodesTable, Rows: []model.Record{
		model.BillingCode{Code: "00001"},
	}}
	specs := model.TableRows{Table: model.SpecialtiesTable, Rows: []model.Record{
		model.Specialty{Code: "01", Name: "Médecine de famille"},
		model.Specialty{Code: "06", Name: "Pédiatrie"},
	}}
	res := l.Replace(context.Background(), model.KindBillingCodes, codes, specs)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(1), res.Inserted)
	assert.Equal(t, map[string]int64{"specialties": 2}, res.Derived)

	// A failure in the derived table rolls back the primary table too.
	s.FailAt("specialties", 1)
	res = l.Replace(context.Background(), model.KindBillingCodes,
		model.TableRows{Table: model.BillingCodesTable, Rows: []model.Record{model.BillingCode{Code: "00009"}}},
		specs)
	require.Error(t, res.Err)
	assert.Equal(t, int64(3), res.Failed)
	assert.Equal(t, []string{"00001"}, s.Keys("billing_codes"))
	assert.Equal(t, []string{"01", "06"}, s.Keys("specialties"))
}

func TestReimportSingleEstablishment(t *testing.T) {
	s := memstore.New()
	l := New(s, time.Second, zerolog.Nop())
	set := model.TableRows{Table: model.EstablishmentsTable, Rows: []model.Record{
		model.Establishment{IDLieuPhys: "12345", Category: "CH", IsActive: true},
	}}

	for range 2 {
		res := l.Replace(context.Background(), model.KindEstablishments, set)
		require.NoError(t, res.Err)
		assert.Equal(t, int64(1), res.Inserted)
	}
	rows := s.Rows("establishments")
	require.Len(t, rows, 1)
	assert.Equal(t, "12345", rows[0][0])
	assert.Equal(t, "CH", rows[0][model.EstablishmentsTable.ColumnIndex("category")])
}
