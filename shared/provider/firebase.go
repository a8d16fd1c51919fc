package provider

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	// FirebaseKeysURL serves the public keys that sign Firebase ID tokens.
	FirebaseKeysURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

	firebaseIssuerPrefix = "https://securetoken.google.com/"
	keySetMaxAge         = time.Hour

	// minKeyRefresh bounds how often an unknown kid may trigger a refetch.
	minKeyRefresh = time.Minute
)

var errUnknownKid = errors.New("kid not found")

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

// FirebaseVerifier verifies Firebase ID tokens against the issuer's public key set.
type FirebaseVerifier struct {
	projectID string
	keysURL   string
	http      *http.Client
	now       func() time.Time

	refresh   singleflight.Group
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewFirebaseVerifier creates a verifier for tokens minted for projectID.
// An empty keysURL uses FirebaseKeysURL.
func NewFirebaseVerifier(projectID, keysURL string, client *http.Client) *FirebaseVerifier {
	if keysURL == "" {
		keysURL = FirebaseKeysURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &FirebaseVerifier{
		projectID: projectID,
		keysURL:   keysURL,
		http:      client,
		now:       time.Now,
	}
}

func (f *FirebaseVerifier) VerifyToken(ctx context.Context, token string) (*IdentityClaim, error) {
	if f.projectID == "" {
		return nil, errors.New("firebase project id is not configured")
	}

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return f.keyForKid(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(firebaseIssuerPrefix+f.projectID),
		jwt.WithAudience(f.projectID),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	return &IdentityClaim{
		UID:            claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
		Name:           claims.Name,
		Picture:        claims.Picture,
		SignInProvider: claims.Firebase.SignInProvider,
	}, nil
}

func (f *FirebaseVerifier) keyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	f.mu.RLock()
	key, ok := f.keys[kid]
	age := f.now().Sub(f.fetchedAt)
	f.mu.RUnlock()

	switch {
	case ok && age < keySetMaxAge:
		return key, nil
	case !ok && age < minKeyRefresh:
		// Keys rotate, but not faster than minKeyRefresh.
		return nil, errUnknownKid
	}

	if err := f.refreshKeys(ctx); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if key, ok := f.keys[kid]; ok {
		return key, nil
	}

	return nil, errUnknownKid
}

// refreshKeys refetches the key set. Concurrent callers share one fetch, and a
// set fetched within minKeyRefresh is reused.
func (f *FirebaseVerifier) refreshKeys(ctx context.Context) error {
	_, err, _ := f.refresh.Do(f.keysURL, func() (any, error) {
		f.mu.RLock()
		recent := f.keys != nil && f.now().Sub(f.fetchedAt) < minKeyRefresh
		f.mu.RUnlock()
		if recent {
			return nil, nil
		}

		keys, err := f.fetchKeys(ctx)
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		f.keys = keys
		f.fetchedAt = f.now()
		f.mu.Unlock()

		return nil, nil
	})

	return err
}

func (f *FirebaseVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.keysURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: jwks http %d", ErrVerifierUnavailable, resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, err
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		pub, err := rsaPublicKey(k)
		if err != nil {
			return nil, fmt.Errorf("decode key %s: %w", k.Kid, err)
		}
		keys[k.Kid] = pub
	}

	return keys, nil
}

func rsaPublicKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}

	e := 65537
	if len(eb) > 0 {
		e = 0
		for _, b := range eb {
			e = (e << 8) | int(b)
		}
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
