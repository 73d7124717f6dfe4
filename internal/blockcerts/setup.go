package blockcerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Settings configure the verifier built by NewDefaultVerifier.
type Settings struct {
	KeyManager *KeyManagerConfig

	// LedgerPath is an optional YAML file of anchored transactions (see LoadStaticLedger).
	// Without it only mocknet anchors can be resolved.
	LedgerPath string

	// TrustedChains restricts the accepted anchor chains. Empty accepts every known chain but mocknet.
	TrustedChains []string

	// AllowMocknet accepts mocknet anchors when TrustedChains is empty.
	AllowMocknet bool
}

// NewDefaultVerifier wires the issuer key manager, the transaction lookups and the verifier.
func NewDefaultVerifier(ctx context.Context, settings Settings, logger *slog.Logger) (*Verifier, error) {
	kmConfig := settings.KeyManager
	if kmConfig == nil {
		kmConfig = &KeyManagerConfig{HTTPTimeout: 30 * time.Second}
	}

	keyManager, err := NewIssuerKeyManager(ctx, kmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create issuer key manager: %w", err)
	}

	var fallback TransactionLookup
	if settings.LedgerPath != "" {
		ledger, err := LoadStaticLedger(settings.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
		fallback = ledger
		logger.Info("transaction ledger loaded", slog.String("path", settings.LedgerPath))
	}

	return NewVerifier(NewChainRouter(fallback), keyManager,
		WithTrustedChains(settings.TrustedChains),
		WithMocknet(settings.AllowMocknet),
		WithLogger(logger),
	), nil
}
