package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ramqload/internal/model"
	"github.com/gyeh/ramqload/internal/store"
	"github.com/gyeh/ramqload/internal/store/memstore"
)

func seed(t *testing.T, codes []string, elements ...model.ContextElement) *memstore.Store {
	t.Helper()
	s := memstore.New()
	ctx := context.Background()
	bc := make([]model.Record, len(codes))
	for i, c := range codes {
		bc[i] = model.BillingCode{Code: c}
	}
	err := s.InTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Insert(ctx, model.BillingCodesTable, bc); err != nil {
			return err
		}
		_, err := tx.Insert(ctx, model.ContextElementsTable, model.AsRecords(elements))
		return err
	})
	require.NoError(t, err)
	return s
}

func TestValidateReportsDangling(t *testing.T) {
	s := seed(t, []string{"00001", "00002"},
		model.ContextElement{Code: "C002", LinkedCodes: []string{"00001", "99999"}},
		model.ContextElement{Code: "C001", LinkedCodes: []string{"88888", "00002"}},
	)

	rep, err := Validate(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Equal(t, 2, rep.ContextElements)
	assert.Equal(t, 4, rep.LinksChecked)
	assert.Equal(t, []model.DanglingRef{
		{ContextCode: "C001", BillingCode: "88888"},
		{ContextCode: "C002", BillingCode: "99999"},
	}, rep.Dangling)
}

func TestValidateClean(t *testing.T) {
	s := seed(t, []string{"00001"},
		model.ContextElement{Code: "C001", LinkedCodes: []string{"00001"}},
		model.ContextElement{Code: "C002"},
	)
	rep, err := Validate(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Empty(t, rep.Dangling)
}

func TestValidateEmptyStore(t *testing.T) {
	rep, err := Validate(context.Background(), memstore.New())
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Zero(t, rep.LinksChecked)
}

type failingStore struct{ store.Store }

func (failingStore) BillingCodeKeys(context.Context) (map[string]struct{}, error) {
	return nil, errors.New("connection reset")
}

func TestValidateReadError(t *testing.T) {
	_, err := Validate(context.Background(), failingStore{memstore.New()})
	require.ErrorContains(t, err, "read billing codes")
}
