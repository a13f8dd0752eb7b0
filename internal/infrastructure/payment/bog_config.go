package payment

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

const (
	bogDefaultAuthURL = "https://oauth2.bog.ge/auth/realms/bog/protocol/openid-connect/token"
	bogDefaultBaseURL = "https://api.bog.ge/payments/v1"
)

// BOGConfig holds Bank of Georgia gateway credentials and endpoints.
type BOGConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string // OAuth 2.0 token endpoint
	BaseURL      string // payments API base
	CallbackURL  string // webhook URL sent with recurring charges
	PublicKeyPEM string // RSA public key for callback signatures, optional
	Timeout      time.Duration

	publicKey *rsa.PublicKey
}

// Validate checks required fields and parses the signature public key.
func (c *BOGConfig) Validate() error {
	if c.ClientID == "" {
		return errors.New("bog: client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("bog: client secret is required")
	}
	if c.AuthURL == "" {
		c.AuthURL = bogDefaultAuthURL
	}
	if c.BaseURL == "" {
		c.BaseURL = bogDefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}

	if c.PublicKeyPEM != "" {
		key, err := parseRSAPublicKey(c.PublicKeyPEM)
		if err != nil {
			return fmt.Errorf("bog: invalid public key: %w", err)
		}
		c.publicKey = key
	}

	return nil
}

// PublicKey returns the parsed signature key, nil when not configured.
func (c *BOGConfig) PublicKey() *rsa.PublicKey {
	return c.publicKey
}

func parseRSAPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		// Some keys are distributed in PKCS#1 form
		if rsaKey, err1 := x509.ParsePKCS1PublicKey(block.Bytes); err1 == nil {
			return rsaKey, nil
		}
		return nil, err
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaKey, nil
}
