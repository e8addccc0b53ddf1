// Package ledger talks to the external blockchain HTTP API that is the
// system of record for medical records. The contract is small: a login
// endpoint that issues a bearer token and a blocks endpoint that appends a
// record. Only HTTP 200 counts as success; any other status or transport
// error is surfaced as a ledger failure with no automatic retry.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrUnavailable wraps every ledger-side failure so callers can map the
// whole class to one user-facing "please try again" response.
var ErrUnavailable = errors.New("ledger unavailable")

// expirySkew is subtracted from a token's exp claim so we re-authenticate
// before the ledger starts rejecting the old token mid-request.
const expirySkew = 30 * time.Second

type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   zerolog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExp    time.Time
}

func NewClient(baseURL, username, password string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// CreateRecord appends a medical record block for the patient. The fields
// map carries the record-type-specific values and is merged into the block
// payload alongside patient_id and type.
func (c *Client) CreateRecord(ctx context.Context, patientID, recordType string, fields map[string]string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	payload := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["patient_id"] = patientID
	payload["type"] = recordType

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode block payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/blocks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build block request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post block: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			// Cached token no longer accepted; next call re-authenticates.
			c.mu.Lock()
			c.accessToken = ""
			c.mu.Unlock()
		}
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("patient_id", patientID).
			Str("record_type", recordType).
			Msg("ledger rejected block")
		return fmt.Errorf("%w: block creation returned status %d", ErrUnavailable, resp.StatusCode)
	}

	c.logger.Info().
		Str("patient_id", patientID).
		Str("record_type", recordType).
		Msg("medical record created on ledger")
	return nil
}

// token returns a cached access token, re-authenticating when the cached one
// is missing or near expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && (c.tokenExp.IsZero() || time.Now().Before(c.tokenExp.Add(-expirySkew))) {
		return c.accessToken, nil
	}

	token, err := c.authenticate(ctx)
	if err != nil {
		return "", err
	}

	c.accessToken = token
	c.tokenExp = tokenExpiry(token)
	return token, nil
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("encode auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: authenticate: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: authentication returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode auth response: %v", ErrUnavailable, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: auth response missing access_token", ErrUnavailable)
	}

	c.logger.Info().Msg("ledger authentication successful")
	return out.AccessToken, nil
}

// tokenExpiry reads the exp claim from the token without verifying the
// signature; the ledger owns the signature, we only need the lifetime. A
// token that does not parse as a JWT is treated as non-expiring and will be
// replaced when the ledger rejects it.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
