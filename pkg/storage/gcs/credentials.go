package gcs

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
)

const storageScope = "https://www.googleapis.com/auth/devstorage.read_write"

// signer holds the service account key used for signed download URLs.
type signer struct {
	email string
	key   *rsa.PrivateKey
}

// credentials resolves the bearer token source. Inline JSON wins over a
// credentials file; with neither, Application Default Credentials apply and
// URLs cannot be signed.
func credentials(ctx context.Context, gcp config.GCPConfig) (oauth2.TokenSource, *signer, error) {
	raw := []byte(gcp.CredentialsJSON)
	if len(raw) == 0 && gcp.ApplicationCredentials != "" {
		data, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, nil, fmt.Errorf("read gcp credentials: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		ts, err := google.DefaultTokenSource(ctx, storageScope)
		if err != nil {
			return nil, nil, fmt.Errorf("default gcp credentials: %w", err)
		}
		return ts, nil, nil
	}

	conf, err := google.JWTConfigFromJSON(raw, storageScope)
	if err != nil {
		return nil, nil, fmt.Errorf("parse service account: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(conf.PrivateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("service account key: %w", err)
	}
	return conf.TokenSource(ctx), &signer{email: conf.Email, key: key}, nil
}
