package executable

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// Client talks to one mesh executable service endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a client for the given base endpoint, e.g.
// "http://head-node:8421". A nil httpClient uses http.DefaultClient: the
// protocol deliberately carries no timeouts, a hung cluster call blocks
// the run.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// Load deploys (or re-attaches to) an executable and returns a handle.
func (c *Client) Load(ctx context.Context, req LoadRequest) (*Remote, error) {
	var resp LoadResponse
	if err := c.post(ctx, "/v1/executables", req, &resp); err != nil {
		return nil, fmt.Errorf("load executable %q: %w", req.Model, err)
	}
	if resp.ExecutableID == "" {
		return nil, fmt.Errorf("load executable %q: service returned no executable id", req.Model)
	}
	return &Remote{
		client:     c,
		id:         resp.ExecutableID,
		params:     Params{ID: resp.ParamsID},
		flopCount:  resp.FlopCount,
		numDevices: resp.NumDevices,
		numHosts:   resp.NumHosts,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("service error (%d): %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("service error (%d): %s", resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Remote is a deployed executable reachable through a Client. It is safe
// to share across episodes: the weights are read-only and the cache is
// threaded by the caller.
type Remote struct {
	client     *Client
	id         string
	params     Params
	flopCount  float64
	numDevices int
	numHosts   int
}

// Params returns the resident-weights handle for this executable.
func (r *Remote) Params() Params {
	return r.params
}

// FlopCount reports the analytic FLOP count of one full forward pass, as
// measured by the compiler that produced the executable.
func (r *Remote) FlopCount() float64 {
	return r.flopCount
}

// NumDevices reports how many devices the executable is sharded across.
func (r *Remote) NumDevices() int {
	return r.numDevices
}

// NumHosts reports how many hosts participate in the pipeline.
func (r *Remote) NumHosts() int {
	return r.numHosts
}

type runRequest struct {
	Params Params     `json:"params"`
	Inputs StepInputs `json:"inputs"`
}

// Run executes one decode step on the cluster.
func (r *Remote) Run(ctx context.Context, params Params, in StepInputs) (StepOutputs, error) {
	var out StepOutputs
	err := r.client.post(ctx, "/v1/executables/"+r.id+"/run", runRequest{Params: params, Inputs: in}, &out)
	if err != nil {
		return StepOutputs{}, fmt.Errorf("run step: %w", err)
	}
	if out.AttentionCache == nil {
		return StepOutputs{}, fmt.Errorf("run step: service returned no cache")
	}
	return out, nil
}

// Sync blocks until all in-flight device work for this executable drains.
func (r *Remote) Sync(ctx context.Context) error {
	if err := r.client.post(ctx, "/v1/executables/"+r.id+"/sync", struct{}{}, nil); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}
