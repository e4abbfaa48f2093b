// Package bankdir resolves COMPE bank codes through a TTL cache over the catalog client
package bankdir

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bobmcallan/fieldledger/internal/common"
	"github.com/bobmcallan/fieldledger/internal/interfaces"
	"github.com/bobmcallan/fieldledger/internal/models"
)

const (
	catalogKey = "catalog"
	// fallbackTTL bounds how long the static table stands in before the client is retried.
	fallbackTTL = 5 * time.Minute
)

// Compile-time interface check
var _ interfaces.BankDirectory = (*Directory)(nil)

// fallbackBanks is served when the catalog client is absent or failing.
var fallbackBanks = []models.Bank{
	{Code: "001", Name: "Banco do Brasil"},
	{Code: "033", Name: "Santander"},
	{Code: "104", Name: "Caixa Economica Federal"},
	{Code: "237", Name: "Bradesco"},
	{Code: "341", Name: "Itau"},
	{Code: "260", Name: "Nubank"},
	{Code: "323", Name: "Mercado Pago"},
	{Code: "336", Name: "Banco C6"},
	{Code: "077", Name: "Banco Inter"},
	{Code: "218", Name: "Banco BS2"},
	{Code: "637", Name: "Banco Sofisa Direto"},
	{Code: "655", Name: "Banco Votorantim"},
	{Code: "212", Name: "Banco Original"},
	{Code: "746", Name: "Banco Modal"},
	{Code: "197", Name: "Stone"},
	{Code: "380", Name: "PicPay"},
}

// catalog is one cached snapshot of the bank list.
type catalog struct {
	byCode map[string]models.Bank
	sorted []models.Bank
}

func newCatalog(banks []models.Bank) *catalog {
	c := &catalog{byCode: make(map[string]models.Bank, len(banks))}
	for _, b := range banks {
		code, ok := NormalizeCode(b.Code)
		if !ok || strings.TrimSpace(b.Name) == "" {
			continue
		}
		b.Code = code
		if _, dup := c.byCode[code]; dup {
			continue
		}
		c.byCode[code] = b
		c.sorted = append(c.sorted, b)
	}
	sort.Slice(c.sorted, func(i, j int) bool {
		a, b := strings.ToLower(c.sorted[i].Name), strings.ToLower(c.sorted[j].Name)
		if a != b {
			return a < b
		}
		return c.sorted[i].Code < c.sorted[j].Code
	})
	return c
}

// Directory is a read-through cache of the bank catalog. A nil client
// serves the static table only.
type Directory struct {
	client   interfaces.BankCatalogClient
	cache    *cache.Cache
	ttl      time.Duration
	logger   *common.Logger
	fallback *catalog
	mu       sync.Mutex
}

// NewDirectory creates a bank directory whose fetched catalog lives for ttl.
func NewDirectory(client interfaces.BankCatalogClient, ttl time.Duration, logger *common.Logger) *Directory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Directory{
		client:   client,
		cache:    cache.New(ttl, 2*ttl),
		ttl:      ttl,
		logger:   logger,
		fallback: newCatalog(fallbackBanks),
	}
}

// Lookup finds a bank by code. The fetched catalog is consulted first, then the static table.
func (d *Directory) Lookup(ctx context.Context, code string) (*models.Bank, bool) {
	key, ok := NormalizeCode(code)
	if !ok {
		return nil, false
	}
	if b, found := d.load(ctx).byCode[key]; found {
		return &b, true
	}
	if b, found := d.fallback.byCode[key]; found {
		return &b, true
	}
	return nil, false
}

// List returns the catalog sorted by name.
func (d *Directory) List(ctx context.Context) []models.Bank {
	cat := d.load(ctx)
	out := make([]models.Bank, len(cat.sorted))
	copy(out, cat.sorted)
	return out
}

// Invalidate drops the cached catalog so the next read refetches it.
func (d *Directory) Invalidate() {
	d.cache.Delete(catalogKey)
}

func (d *Directory) load(ctx context.Context) *catalog {
	if v, ok := d.cache.Get(catalogKey); ok {
		return v.(*catalog)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.cache.Get(catalogKey); ok {
		return v.(*catalog)
	}

	if d.client == nil {
		d.cache.Set(catalogKey, d.fallback, cache.NoExpiration)
		return d.fallback
	}

	banks, err := d.client.ListBanks(ctx)
	if err != nil || len(banks) == 0 {
		d.logger.Warn().Err(err).Int("banks", len(banks)).Msg("Bank catalog unavailable, serving static table")
		d.cache.Set(catalogKey, d.fallback, fallbackTTL)
		return d.fallback
	}

	cat := newCatalog(banks)
	d.cache.Set(catalogKey, cat, d.ttl)
	d.logger.Info().Int("banks", len(cat.sorted)).Dur("ttl", d.ttl).Msg("Bank catalog cached")
	return cat
}

// NormalizeCode reduces a COMPE code to three digits: "1", "001" and "0001"
// are the same bank. Blank, non-numeric and all-zero codes are rejected.
func NormalizeCode(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	code = strings.TrimLeft(code, "0")
	if code == "" || len(code) > 3 {
		return "", false
	}
	return strings.Repeat("0", 3-len(code)) + code, true
}
