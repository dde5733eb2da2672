package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/vectorgate/internal/http"
)

// apiClient calls a running vectorgate server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON and decodes the envelope. Error envelopes become
// errors carrying the server's message.
func (c *apiClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !env.Success {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, env.Error)
	}
	return env.Data, nil
}

func newStoreCmd() *cobra.Command {
	var vector, payload string
	cmd := &cobra.Command{
		Use:   "store <id>",
		Short: "Store an embedding under a caller id",
		Long: `Store an embedding, replacing any previous record with the same id.

Examples:
  vectorgate store user:42 --vector 0.1,0.2,0.3 --payload '{"allow_reference":true}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := parseVector(vector)
			if err != nil {
				return err
			}
			var p map[string]any
			if err := json.Unmarshal([]byte(payload), &p); err != nil {
				return fmt.Errorf("invalid --payload: %w", err)
			}

			data, err := newAPIClient(30*time.Second).do(cmd.Context(), http.MethodPost, "/qdrant/store",
				httpserver.StoreRequest{ID: args[0], Vector: vec, Payload: p})
			if err != nil {
				return err
			}
			var rec httpserver.RecordData
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", rec.ID, rec.QdrantID)
			return nil
		},
	}
	cmd.Flags().StringVar(&vector, "vector", "", "comma-separated vector components")
	cmd.Flags().StringVar(&payload, "payload", "{}", "payload as a JSON object")
	_ = cmd.MarkFlagRequired("vector")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		vector string
		limit  int
		filter string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the most similar embeddings",
		Long: `Search for embeddings similar to a vector. Results print one per line
as "<id>\t<score>", best first.

Examples:
  vectorgate search --vector 0.1,0.2,0.3 --limit 5
  vectorgate search --vector 0.1,0.2,0.3 --filter '{"categories":"a"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vec, err := parseVector(vector)
			if err != nil {
				return err
			}
			req := httpserver.SearchRequest{Vector: vec}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			if filter != "" {
				if err := json.Unmarshal([]byte(filter), &req.Filter); err != nil {
					return fmt.Errorf("invalid --filter: %w", err)
				}
			}

			data, err := newAPIClient(30*time.Second).do(cmd.Context(), http.MethodPost, "/qdrant/search", req)
			if err != nil {
				return err
			}
			var found httpserver.SearchData
			if err := json.Unmarshal(data, &found); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			for _, r := range found.Results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.6f\n", r.ID, r.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&vector, "vector", "", "comma-separated vector components")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (server default when unset)")
	cmd.Flags().StringVar(&filter, "filter", "", "equality filter as a JSON object")
	_ = cmd.MarkFlagRequired("vector")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the embedding stored under a caller id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(30*time.Second).do(cmd.Context(), http.MethodDelete, "/qdrant/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			var rec httpserver.RecordData
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Message)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check vectorgate server health",
		Long: `Check the health status of the vectorgate server and its engine.

Examples:
  vectorgate health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := strings.TrimRight(serverURL, "/") + "/health"
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", endpoint, err)
			}
			defer resp.Body.Close()

			var health httpserver.HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned status %d: %s", resp.StatusCode, health.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", health.Status)
			return nil
		},
	}
}

// parseVector parses "0.1, 0.2,0.3".
func parseVector(s string) ([]float32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("--vector is required")
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %d %q: %w", i, p, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}
