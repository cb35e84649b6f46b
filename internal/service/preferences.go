package service

import (
	"fmt"
	"log/slog"
	"sync"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

// CurrencyKey is the storage key of the selected currency.
const CurrencyKey = "cryptodash-currency"

// Preferences holds the process-wide currency selection.
type Preferences struct {
	store     domain.KeyValueStore
	fallback  domain.Currency
	mu        sync.RWMutex
	currency  domain.Currency
	listeners Listeners[domain.Currency]
	logger    *slog.Logger
}

// NewPreferences creates a preferences store using fallback until Load runs.
func NewPreferences(kv domain.KeyValueStore, fallback domain.Currency) *Preferences {
	if !fallback.Valid() {
		fallback = domain.CurrencyUSD
	}
	return &Preferences{
		store:    kv,
		fallback: fallback,
		currency: fallback,
		logger:   slog.Default().With(slog.String("module", "preferences")),
	}
}

// Load restores the persisted currency. Missing or corrupt values keep the fallback.
func (p *Preferences) Load() {
	raw, found, err := p.store.Get(CurrencyKey)
	if err != nil {
		p.logger.Warn("Currency unreadable, using default",
			slog.Any("error", &domain.PersistenceReadError{Key: CurrencyKey, Err: err}))
		return
	}
	if !found {
		return
	}
	c, err := domain.ParseCurrency(raw)
	if err != nil {
		p.logger.Warn("Stored currency invalid, using default", slog.String("value", raw))
		return
	}

	p.mu.Lock()
	p.currency = c
	p.mu.Unlock()
}

// Currency returns the selected currency.
func (p *Preferences) Currency() domain.Currency {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currency
}

// SetCurrency persists and publishes c. Subscribers are notified only on change.
func (p *Preferences) SetCurrency(c domain.Currency) error {
	if !c.Valid() {
		return fmt.Errorf("set currency: %w: %q", domain.ErrUnsupportedCurrency, c)
	}

	p.mu.Lock()
	if p.currency == c {
		p.mu.Unlock()
		return nil
	}
	err := p.store.Set(CurrencyKey, string(c))
	infra.GlobalMetrics.RecordPersist(err)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("persist currency: %w", err)
	}
	p.currency = c
	p.mu.Unlock()

	p.logger.Info("Currency changed", slog.String("currency", string(c)))
	p.listeners.Notify(c)
	return nil
}

// Subscribe registers fn for currency changes.
func (p *Preferences) Subscribe(fn func(domain.Currency)) (unsubscribe func()) {
	return p.listeners.Add(fn)
}
