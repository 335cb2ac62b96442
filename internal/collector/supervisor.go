package collector

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/firstset/cosmon/internal/config"
	"github.com/firstset/cosmon/internal/health"
	"github.com/firstset/cosmon/internal/metrics"
	"github.com/firstset/cosmon/internal/network"
	"github.com/firstset/cosmon/internal/pager"
	"github.com/firstset/cosmon/internal/poller"
)

const queueDepthSamplePeriod = time.Second

// Supervisor starts and joins the collector's parallel loops: HTTPRouter, PollerSet, Pager,
// all routed through CollectorService's request queue (§5).
type Supervisor struct {
	cfg *config.CollectorConfig
	reg *health.Registry
}

// New builds a Supervisor from collector config. reg may be nil, in which case no self-health
// gauges are sampled (the caller did not configure [collector.prometheus]).
func New(cfg *config.CollectorConfig, reg *health.Registry) *Supervisor {
	return &Supervisor{cfg: cfg, reg: reg}
}

// Run builds the registry, metrics emitter, poller set, pager and HTTP server, then blocks
// until ctx is canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	emitter, err := metrics.New(s.cfg.Statsd, s.cfg.MetricsPrefix, buildTeamTables(s.cfg.Teams))
	if err != nil {
		return err
	}

	specs := make([]network.NetworkSpec, 0, len(s.cfg.Networks.Tendermint))
	for _, n := range s.cfg.Networks.Tendermint {
		specs = append(specs, network.NetworkSpec{
			ChainID:              n.ChainID,
			MissedBlockThreshold: int64(n.Threshold(s.cfg.MissedBlockThreshold)),
		})
	}
	registry, err := network.NewRegistry(specs, emitter, s.cfg.EventLogDir, s.cfg.PageIntervalOrDefault())
	if err != nil {
		return err
	}
	defer registry.Close()

	svc := NewService(registry)

	pollerSet, err := poller.New(*s.cfg, svc)
	if err != nil {
		return err
	}

	sinks := buildSinks(s.cfg)
	pgr := pager.New(time.Second, svc, sinks...)

	router := NewRouter(svc)
	httpServer := &http.Server{Addr: s.cfg.ListenAddr, Handler: router}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); svc.Run(ctx) }()
	go func() { defer wg.Done(); pollerSet.Run(ctx) }()
	go func() { defer wg.Done(); pgr.Run(ctx) }()
	go func() {
		defer wg.Done()
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("collector: http server: %v", err)
		}
	}()

	if s.reg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.sampleQueueDepth(ctx, svc)
		}()
	}

	<-ctx.Done()
	_ = httpServer.Close()
	wg.Wait()
	return nil
}

// sampleQueueDepth periodically copies the CollectorService's real request-queue depth into
// the self-health gauge, until ctx is canceled.
func (s *Supervisor) sampleQueueDepth(ctx context.Context, svc *Service) {
	ticker := time.NewTicker(queueDepthSamplePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reg.CollectorQueueDepth.Set(float64(svc.QueueDepth()))
		}
	}
}

func buildTeamTables(teams []config.TeamConfig) metrics.TeamTables {
	t := metrics.TeamTables{
		AddressToTeam:   make(map[string]string),
		ChannelIDToTeam: make(map[string]string),
		ClientIDToTeam:  make(map[string]string),
	}
	for _, team := range teams {
		if team.Address != "" {
			t.AddressToTeam[team.Address] = team.Name
		}
		if team.ChannelID != "" {
			t.ChannelIDToTeam[team.ChannelID] = team.Name
		}
		if team.ClientID != "" {
			t.ClientIDToTeam[team.ClientID] = team.Name
		}
	}
	return t
}

func buildSinks(cfg *config.CollectorConfig) []pager.Sink {
	var sinks []pager.Sink
	if cfg.Datadog != nil {
		sinks = append(sinks, pager.NewDatadogSink(cfg.Datadog.APIKey, cfg.Datadog.Site))
	}
	if cfg.Pagerduty != nil {
		sinks = append(sinks, pager.NewPagerDutySink(cfg.Pagerduty.RoutingKey))
	}
	if cfg.Telegram != nil {
		tg, err := pager.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Printf("collector: telegram sink unavailable: %v", err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	return sinks
}
