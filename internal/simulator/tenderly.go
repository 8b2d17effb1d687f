// Package simulator implements the optional third-party simulation
// bundle client (Tenderly-shaped, per the SIMULATOR_* configuration).
// Grounded on original_source/crolens-api/src/infra/tenderly.rs, which
// notes Tenderly dropped Cronos support — the client here still speaks
// Tenderly's simulate-bundle API when configured, and tools fall back to
// a bare eth_call/eth_estimateGas simulation when it isn't.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/crolens/crolens-api/internal/apierr"
	"github.com/crolens/crolens-api/internal/tools"
)

// Client is a Tenderly-shaped simulate-bundle HTTP client.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	accountSlug  string
	projectSlug  string
}

// New builds a Client. A Client with an empty apiKey or baseURL reports
// Configured() == false, so every call site must check before using it.
func New(baseURL, apiKey, accountSlug, projectSlug string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     baseURL,
		apiKey:      apiKey,
		accountSlug: accountSlug,
		projectSlug: projectSlug,
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != "" && c.accountSlug != "" && c.projectSlug != ""
}

type simulateBundleRequest struct {
	Simulations []simulationInput `json:"simulations"`
}

type simulationInput struct {
	NetworkID string `json:"network_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Input     string `json:"input"`
	Value     string `json:"value"`
	Save      bool   `json:"save"`
}

type simulateBundleResponse struct {
	SimulationResults []struct {
		Transaction struct {
			Status  bool   `json:"status"`
			GasUsed uint64 `json:"gas_used"`
		} `json:"transaction"`
		Simulation struct {
			ErrorMessage string `json:"error_message"`
			Logs         []struct {
				Raw struct {
					Topics []string `json:"topics"`
					Data   string   `json:"data"`
				} `json:"raw"`
			} `json:"logs"`
		} `json:"simulation"`
	} `json:"simulation_results"`
}

// SimulateBundle submits calls as one Tenderly simulate-bundle request
// and maps each result onto tools.SimulationResult in call order.
func (c *Client) SimulateBundle(ctx context.Context, calls []tools.SimulationCall) ([]tools.SimulationResult, error) {
	if !c.Configured() {
		return nil, apierr.New(apierr.KindUnavailable, "simulator not configured")
	}

	sims := make([]simulationInput, len(calls))
	for i, call := range calls {
		value := call.Value
		if value == "" {
			value = "0"
		}
		sims[i] = simulationInput{NetworkID: "25", From: call.From, To: call.To, Input: call.Data, Value: value, Save: false}
	}

	body, err := json.Marshal(simulateBundleRequest{Simulations: sims})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "marshal simulate-bundle request", err)
	}

	url := fmt.Sprintf("%s/api/v1/account/%s/project/%s/simulate-bundle", c.baseURL, c.accountSlug, c.projectSlug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "build simulate-bundle request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Access-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "simulate-bundle request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, apierr.New(apierr.KindUnavailable, fmt.Sprintf("simulate-bundle status %d", resp.StatusCode))
	}

	var parsed simulateBundleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apierr.Wrap(apierr.KindUnavailable, "decode simulate-bundle response", err)
	}

	results := make([]tools.SimulationResult, len(parsed.SimulationResults))
	for i, r := range parsed.SimulationResults {
		var changes []string
		for _, l := range r.Simulation.Logs {
			changes = append(changes, l.Raw.Data)
		}
		results[i] = tools.SimulationResult{
			Success:      r.Transaction.Status,
			GasUsed:      r.Transaction.GasUsed,
			StateChanges: changes,
			Error:        r.Simulation.ErrorMessage,
		}
	}
	return results, nil
}
