package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/firstset/cosmon/internal/errs"
	"github.com/firstset/cosmon/internal/network"
)

// uptimeWindowSize is the number of recent blocks requested per poll, matching the original
// NgExplorers poller's validator_uptime query (?count=100).
const uptimeWindowSize = 100

// NgExplorersPoller polls an NgExplorers-compatible uptime endpoint for one validator. Per
// Open Question #1's resolution, each block's `signed` bool is treated as the sole
// explorer-derived liveness signal — the ambiguous Mintscan missed_blocks heuristic is not
// implemented. Grounded on validator_uptime/poll in
// _examples/original_source/src/collector/poller/ngexplorers.rs: fetch a window of recent
// blocks and count how many were not signed.
type NgExplorersPoller struct {
	networkID string
	host      string
	valAddr   string
	client    *http.Client
}

// uptimeBlock is one entry of the uptime window, mirroring the original source's Block struct.
type uptimeBlock struct {
	Height int64 `json:"height"`
	Signed bool  `json:"signed"`
}

// NewNgExplorersPoller builds a poller against host for valAddr.
func NewNgExplorersPoller(networkID, host, valAddr string) *NgExplorersPoller {
	return &NgExplorersPoller{
		networkID: networkID,
		host:      host,
		valAddr:   valAddr,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Poll fetches the validator's recent signing window and returns the number of blocks in it
// that were not signed, as a per-tick snapshot (not an accumulated streak).
func (p *NgExplorersPoller) Poll(ctx context.Context) (network.PollEvent, error) {
	url := fmt.Sprintf("%s/api/blocks/uptime/%s?count=%d", p.host, p.valAddr, uptimeWindowSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return network.PollEvent{}, errs.New(errs.Config, "build ngexplorers request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return network.PollEvent{}, errs.New(errs.Rpc, "query ngexplorers", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return network.PollEvent{}, errs.New(errs.Rpc, "query ngexplorers", fmt.Errorf("status %d", resp.StatusCode))
	}

	var blocks []uptimeBlock
	if err := json.NewDecoder(resp.Body).Decode(&blocks); err != nil {
		return network.PollEvent{}, errs.New(errs.Decode, "decode ngexplorers response", err)
	}

	var missed int64
	for _, b := range blocks {
		if !b.Signed {
			missed++
		}
	}
	return network.PollEvent{
		Source:       "ngexplorers",
		NetworkID:    p.networkID,
		MissedBlocks: &missed,
	}, nil
}
