package blockcerts

// keymanager.go resolves the public keys used to verify issuer signatures.
//
// Keys come from two places, checked in order:
//   - pinned keys loaded at startup from a directory of JWK files
//   - the issuer's JWKS endpoint (jwksUrl), fetched through an auto-refreshing cache
//
// The jwksUrl must be served from the host of the issuer profile id. Keys carried in the certificate
// itself are never used: anyone can write them.
//
// Key ids listed in the issuer profile's revokedKeys are rejected regardless of where the key was found.

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/crypto"
	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
)

// maxJWKSBytes bounds the size of a fetched JWKS document
const maxJWKSBytes = 1 << 20

// KeyManagerConfig holds configuration for the IssuerKeyManager.
type KeyManagerConfig struct {
	// PinnedKeysDir is an optional directory of issuer keys received out of band.
	// Each file must contain exactly one public key with a kid.
	// Supported file extensions: .jwk, .jwks, .jwks.json
	PinnedKeysDir string

	// HTTPTimeout is the timeout for HTTP requests to fetch JWK sets.
	HTTPTimeout time.Duration

	// SkipJWKCache fetches the JWKS on every verification instead of caching it
	SkipJWKCache bool

	JWKCacheMinRefreshInterval time.Duration
	JWKCacheMaxRefreshInterval time.Duration
}

// IssuerKeyManager manages issuer public keys for JWS verification.
type IssuerKeyManager struct {
	config *KeyManagerConfig
	logger *slog.Logger

	// pinned is keyed by kid
	pinned map[string]jwk.Key

	jwkCache   *jwk.Cache
	registered map[string]bool
	httpClient *http.Client

	mu sync.RWMutex
}

// NewIssuerKeyManager creates a key manager. The context bounds the lifetime of the JWK cache.
func NewIssuerKeyManager(ctx context.Context, config *KeyManagerConfig, logger *slog.Logger) (*IssuerKeyManager, error) {
	if config == nil {
		return nil, NewIssuerKeyError("config is nil")
	}
	if logger == nil {
		return nil, NewIssuerKeyError("logger cannot be nil")
	}
	if config.HTTPTimeout == 0 {
		return nil, NewIssuerKeyError("HTTPTimeout is required")
	}

	km := &IssuerKeyManager{
		config:     config,
		logger:     logger,
		pinned:     make(map[string]jwk.Key),
		registered: make(map[string]bool),
		httpClient: &http.Client{Timeout: config.HTTPTimeout},
	}

	if config.PinnedKeysDir != "" {
		if err := km.loadPinnedKeys(); err != nil {
			return nil, WrapIssuerKeyError(err, "failed to load pinned keys")
		}
		logger.Info("pinned issuer keys loaded", slog.Int("keys", len(km.pinned)))
	}

	if !config.SkipJWKCache {
		cache, err := jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return nil, WrapIssuerKeyError(err, "failed to create JWK cache")
		}
		km.jwkCache = cache
		logger.Debug("JWK cache initialized")
	} else {
		logger.Info("JWK cache initialization skipped")
	}

	return km, nil
}

// loadPinnedKeys loads single-key JWK files from the pinned keys directory.
// Files that cannot be used are logged and skipped.
func (k *IssuerKeyManager) loadPinnedKeys() error {
	dir := k.config.PinnedKeysDir
	k.logger.Info("loading pinned issuer keys", slog.String("dir", dir))

	info, err := os.Stat(dir)
	if err != nil {
		return WrapIssuerKeyError(err, fmt.Sprintf("pinned keys directory %s is not accessible", dir))
	}
	if !info.IsDir() {
		return NewIssuerKeyError(fmt.Sprintf("pinned keys path is not a directory: %s", dir))
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return WrapIssuerKeyError(err, "failed to open pinned keys directory")
	}
	defer root.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return WrapIssuerKeyError(err, "failed to read pinned keys directory")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		filename := entry.Name()

		if !strings.HasSuffix(filename, ".jwk") &&
			!strings.HasSuffix(filename, ".jwks") &&
			!strings.HasSuffix(filename, ".jwks.json") {
			k.logger.Debug("skipping: non-JWK file", slog.String("file", filename))
			continue
		}

		data, err := root.ReadFile(filename)
		if err != nil {
			k.logger.Error("skipping: failed to read pinned key file",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}

		set, err := crypto.ParseKeySet(data)
		if err != nil {
			k.logger.Error("skipping: failed to parse pinned key file",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}
		if set.Len() > 1 {
			k.logger.Error("skipping: pinned key file contains multiple keys",
				slog.String("file", filename),
				slog.Int("key_count", set.Len()))
			continue
		}

		key, _ := set.Key(0)
		kid, _ := key.KeyID()

		if _, err := crypto.Ed25519JWKToPublicKey(key); err != nil {
			k.logger.Error("skipping: pinned key is not an Ed25519 public key",
				slog.String("file", filename),
				slog.String("error", err.Error()))
			continue
		}

		k.pinned[kid] = key
		k.logger.Debug("loaded pinned key", slog.String("file", filename), slog.String("kid", kid))
	}
	return nil
}

// Pin adds a public key under kid.
func (k *IssuerKeyManager) Pin(kid string, publicKey ed25519.PublicKey) error {
	key, err := crypto.Ed25519PublicKeyToJWK(publicKey, kid)
	if err != nil {
		return WrapIssuerKeyError(err, "failed to pin key")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pinned[kid] = key
	return nil
}

// PinnedKeySet returns the pinned keys as a JWK set, sorted by kid.
func (k *IssuerKeyManager) PinnedKeySet() (jwk.Set, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	kids := make([]string, 0, len(k.pinned))
	for kid := range k.pinned {
		kids = append(kids, kid)
	}
	slices.Sort(kids)

	set := jwk.NewSet()
	for _, kid := range kids {
		if err := set.AddKey(k.pinned[kid]); err != nil {
			return nil, WrapIssuerKeyError(err, fmt.Sprintf("failed to add pinned key %s", kid))
		}
	}
	return set, nil
}

// RemoteKeySet returns the JWKS published at jwksURL.
func (k *IssuerKeyManager) RemoteKeySet(ctx context.Context, jwksURL string) (jwk.Set, error) {
	u, err := url.Parse(jwksURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, NewIssuerKeyError(fmt.Sprintf("invalid jwksUrl %q", jwksURL))
	}

	if k.jwkCache == nil {
		return k.fetchKeySet(ctx, jwksURL)
	}

	if err := k.register(ctx, jwksURL); err != nil {
		return nil, err
	}

	// auto-refreshed by the jwx library
	set, err := k.jwkCache.Lookup(ctx, jwksURL)
	if err != nil {
		return nil, WrapIssuerKeyError(err, "failed to lookup issuer JWK set")
	}
	return set, nil
}

// register adds jwksURL to the cache the first time it is seen
func (k *IssuerKeyManager) register(ctx context.Context, jwksURL string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.registered[jwksURL] {
		return nil
	}

	err := k.jwkCache.Register(ctx, jwksURL,
		jwk.WithMinInterval(k.config.JWKCacheMinRefreshInterval),
		jwk.WithMaxInterval(k.config.JWKCacheMaxRefreshInterval),
		jwk.WithWaitReady(true),
	)
	if err != nil {
		return WrapIssuerKeyError(err, "failed to register issuer JWK endpoint")
	}

	k.registered[jwksURL] = true
	k.logger.Info("registered issuer JWK endpoint", slog.String("jwk_url", jwksURL))
	return nil
}

func (k *IssuerKeyManager) fetchKeySet(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, WrapIssuerKeyError(err, "failed to create JWKS request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, WrapIssuerKeyError(err, "failed to fetch issuer JWK set")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewIssuerKeyError(fmt.Sprintf("issuer JWK endpoint returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, WrapIssuerKeyError(err, "failed to read issuer JWK set")
	}

	set, err := crypto.ParseKeySet(data)
	if err != nil {
		return nil, WrapIssuerKeyError(err, "invalid issuer JWK set")
	}
	return set, nil
}

// KeyProvider returns a jws.KeyProvider bound to one issuer profile.
func (k *IssuerKeyManager) KeyProvider(issuer Issuer) (jws.KeyProvider, error) {
	p := &issuerKeyProvider{
		km:      k,
		revoked: make(map[string]bool, len(issuer.RevokedKeys)),
	}
	for _, kid := range issuer.RevokedKeys {
		p.revoked[kid] = true
	}
	if issuer.JWKSURL != "" {
		if err := checkJWKSHost(issuer.ID, issuer.JWKSURL); err != nil {
			return nil, err
		}
		p.jwksURL = issuer.JWKSURL
	}
	return p, nil
}

// checkJWKSHost requires the JWKS URL to be on the same host as the issuer profile id
func checkJWKSHost(issuerID, jwksURL string) error {
	keysURL, err := url.Parse(jwksURL)
	if err != nil || keysURL.Host == "" {
		return NewIssuerKeyError(fmt.Sprintf("invalid issuer jwksUrl: %s", jwksURL))
	}
	profileURL, err := url.Parse(issuerID)
	if err != nil || profileURL.Host == "" {
		return NewIssuerKeyError("an issuer publishing a jwksUrl must have a URL as its profile id")
	}
	if !strings.EqualFold(keysURL.Host, profileURL.Host) {
		return NewIssuerKeyError(fmt.Sprintf("issuer jwksUrl host %s does not match the issuer profile host %s", keysURL.Host, profileURL.Host))
	}
	return nil
}

type issuerKeyProvider struct {
	km      *IssuerKeyManager
	jwksURL string
	revoked map[string]bool
}

// FetchKeys implements the jws.KeyProvider interface.
//
// The key is selected by the kid of the JWS protected header; a revoked kid fails verification.
func (p *issuerKeyProvider) FetchKeys(ctx context.Context, sink jws.KeySink, sig *jws.Signature, msg *jws.Message) error {
	kid, ok := sig.ProtectedHeaders().KeyID()
	if !ok || kid == "" {
		return NewIssuerKeyError("kid is required in the issuer signature header")
	}
	alg, ok := sig.ProtectedHeaders().Algorithm()
	if !ok {
		return NewIssuerKeyError("alg is required in the issuer signature header")
	}

	if p.revoked[kid] {
		return NewCheckFailedError(fmt.Sprintf("the issuer key %s has been revoked", kid))
	}

	// 1. pinned keys
	p.km.mu.RLock()
	key, found := p.km.pinned[kid]
	p.km.mu.RUnlock()
	if found {
		sink.Key(alg, key)
		return nil
	}

	// 2. issuer JWKS endpoint
	if p.jwksURL != "" {
		set, err := p.km.RemoteKeySet(ctx, p.jwksURL)
		if err != nil {
			return err
		}
		if key, found := set.LookupKeyID(kid); found {
			p.km.logger.Debug("found remote issuer key", slog.String("kid", kid), slog.String("jwk_url", p.jwksURL))
			sink.Key(alg, key)
			return nil
		}
	}

	return NewIssuerKeyError(fmt.Sprintf("issuer key not found: %s", kid))
}
