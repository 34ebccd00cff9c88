// Package processor is a minimal client for the custodial payment processor
// API: connected accounts, payment intents, transfers and payouts.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

var ErrInvalidSignature = errors.New("processor: invalid webhook signature")

type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	webhookSecret string
}

func NewClient(httpClient *http.Client, baseURL, apiKey, webhookSecret string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
	}
}

// Account is the processor's view of a connected account.
type Account struct {
	ID               string   `json:"id"`
	PayoutsEnabled   bool     `json:"payouts_enabled"`
	DetailsSubmitted bool     `json:"details_submitted"`
	Requirements     []string `json:"requirements"`
}

// Intent is a created payment intent plus the client-confirmable secret.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CreateConnectedAccount registers a custodial account for a talent.
func (c *Client) CreateConnectedAccount(ctx context.Context, userID int) (Account, error) {
	var account Account
	payload := map[string]any{
		"type":     "express",
		"metadata": map[string]string{"user_id": strconv.Itoa(userID)},
	}
	if err := c.post(ctx, "/v1/accounts", payload, &account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// CreatePaymentIntent reserves an escrow funding charge; the caller's client
// completes authorization with the returned secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (Intent, error) {
	var intent Intent
	payload := map[string]any{
		"amount":   amount,
		"currency": currency,
		"metadata": metadata,
	}
	if err := c.post(ctx, "/v1/payment_intents", payload, &intent); err != nil {
		return Intent{}, err
	}
	return intent, nil
}

// CreateTransfer moves escrowed funds to a connected account and returns the
// transfer id.
func (c *Client) CreateTransfer(ctx context.Context, amount int64, destination string, metadata map[string]string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]any{
		"amount":      amount,
		"destination": destination,
		"metadata":    metadata,
	}
	if err := c.post(ctx, "/v1/transfers", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreatePayout issues a payout from a connected account to its bank and
// returns the payout id.
func (c *Client) CreatePayout(ctx context.Context, amount int64, currency, account string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	payload := map[string]any{
		"amount":   amount,
		"currency": currency,
		"account":  account,
	}
	if err := c.post(ctx, "/v1/payouts", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) RetrieveAccount(ctx context.Context, id string) (Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/accounts/"+id, http.NoBody)
	if err != nil {
		return Account{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Account{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Account{}, fmt.Errorf("processor: unexpected status %s", resp.Status)
	}

	var account Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return Account{}, err
	}
	return account, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("processor: unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
