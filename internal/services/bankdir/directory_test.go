package bankdir

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/models"
)

type stubClient struct {
	banks []models.Bank
	err   error
	calls atomic.Int32
}

func (s *stubClient) ListBanks(context.Context) ([]models.Bank, error) {
	s.calls.Add(1)
	return s.banks, s.err
}

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1", "001", true},
		{"001", "001", true},
		{"0001", "001", true},
		{" 341 ", "341", true},
		{"", "", false},
		{"000", "", false},
		{"12a", "", false},
		{"1234", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeCode(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestLookup_ReadsThroughCache(t *testing.T) {
	client := &stubClient{banks: []models.Bank{
		{Code: "001", Name: "BCO DO BRASIL S.A."},
		{Code: "999", Name: "BANCO TESTE"},
	}}
	d := NewDirectory(client, time.Hour, common.NewSilentLogger())
	ctx := context.Background()

	for _, code := range []string{"1", "001", "0001"} {
		b, ok := d.Lookup(ctx, code)
		require.True(t, ok, code)
		assert.Equal(t, "BCO DO BRASIL S.A.", b.Name)
	}
	b, ok := d.Lookup(ctx, "999")
	require.True(t, ok)
	assert.Equal(t, "BANCO TESTE", b.Name)
	assert.Equal(t, int32(1), client.calls.Load(), "catalog is fetched once per TTL")

	b, ok = d.Lookup(ctx, "260")
	require.True(t, ok, "static table covers codes the catalog lacks")
	assert.Equal(t, "Nubank", b.Name)

	_, ok = d.Lookup(ctx, "888")
	assert.False(t, ok)

	d.Invalidate()
	d.Lookup(ctx, "1")
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestLookup_FallbackOnFailure(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}
	d := NewDirectory(client, time.Hour, common.NewSilentLogger())

	b, ok := d.Lookup(context.Background(), "341")
	require.True(t, ok)
	assert.Equal(t, "Itau", b.Name)
	assert.Len(t, d.List(context.Background()), len(fallbackBanks))
}

func TestDirectory_NilClient(t *testing.T) {
	d := NewDirectory(nil, 0, common.NewSilentLogger())

	b, ok := d.Lookup(context.Background(), "77")
	require.True(t, ok)
	assert.Equal(t, "Banco Inter", b.Name)
}

func TestList_SortedByName(t *testing.T) {
	client := &stubClient{banks: []models.Bank{
		{Code: "341", Name: "itau"},
		{Code: "1", Name: "Banco do Brasil"},
		{Code: "237", Name: "Bradesco"},
		{Code: "001", Name: "Duplicate"},
		{Code: "500", Name: ""},
	}}
	d := NewDirectory(client, time.Hour, common.NewSilentLogger())

	banks := d.List(context.Background())
	require.Len(t, banks, 3)
	assert.Equal(t, []string{"Banco do Brasil", "Bradesco", "itau"}, []string{banks[0].Name, banks[1].Name, banks[2].Name})
	assert.Equal(t, "001", banks[0].Code)

	banks[0].Name = "mutated"
	assert.Equal(t, "Banco do Brasil", d.List(context.Background())[0].Name)
}
