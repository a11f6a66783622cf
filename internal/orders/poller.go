package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"pharmacie-admin/internal/dataprovider"
	"pharmacie-admin/pkg/config"
	apperrors "pharmacie-admin/pkg/errors"
	"pharmacie-admin/pkg/eventbus"

	"go.uber.org/zap"
)

const resource = "commandes"

// Lister is the slice of the data provider the poller needs.
type Lister interface {
	List(ctx context.Context, resource string, params dataprovider.ListParams) (*dataprovider.ListResult, error)
}

// Poller watches the draft orders of one session at a fixed interval. The
// badge it feeds is at most one interval plus one request latency old.
type Poller struct {
	lister    Lister
	sessionID string
	cfg       config.OrdersConfig
	bus       *eventbus.Bus
	logger    *zap.Logger

	mu        sync.Mutex
	count     int
	baselined bool
}

func NewPoller(lister Lister, sessionID string, cfg config.OrdersConfig, bus *eventbus.Bus, logger *zap.Logger) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.PendingStatus == "" {
		cfg.PendingStatus = "BROUILLON"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Poller{
		lister:    lister,
		sessionID: sessionID,
		cfg:       cfg,
		bus:       bus,
		logger:    logger.Named("orders").With(zap.String("session", sessionID)),
	}
}

// Count is the pending count seen by the last successful poll.
func (p *Poller) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Run polls immediately and then every interval until ctx ends or the session
// expires.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			if errors.Is(err, apperrors.ErrSessionExpired) || ctx.Err() != nil {
				return err
			}
			p.logger.Warn("pending orders poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll runs one round. The first successful round only records the count;
// later rounds publish PendingOrdersChanged whenever the count moved, with the
// newest orders attached when it grew.
func (p *Poller) Poll(ctx context.Context) error {
	res, err := p.lister.List(ctx, resource, dataprovider.ListParams{
		Pagination: dataprovider.Pagination{Page: 1, PerPage: p.cfg.PageSize},
		Sort:       dataprovider.Sort{Field: "date_demande", Order: dataprovider.OrderDESC},
		Filter:     dataprovider.Filter{"statut": p.cfg.PendingStatus},
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	prev, baselined := p.count, p.baselined
	p.count, p.baselined = res.Total, true
	p.mu.Unlock()

	if !baselined {
		p.bus.Publish(ctx, eventbus.PendingOrdersChanged{SessionID: p.sessionID, Count: res.Total})
		return nil
	}
	if res.Total == prev {
		return nil
	}

	ev := eventbus.PendingOrdersChanged{SessionID: p.sessionID, Count: res.Total}
	if diff := res.Total - prev; diff > 0 {
		ev.Arrived = arrived(res.Data, diff)
		p.logger.Info("new pending orders", zap.Int("new", diff), zap.Int("pending", res.Total))
	}
	p.bus.Publish(ctx, ev)
	return nil
}

func arrived(records []dataprovider.Record, n int) []eventbus.PendingOrder {
	if n > len(records) {
		n = len(records)
	}
	out := make([]eventbus.PendingOrder, 0, n)
	for _, r := range records[:n] {
		o := eventbus.PendingOrder{ID: recordInt(r["id"])}
		o.NumeroCommande, _ = r["numero_commande"].(string)
		o.DateDemande, _ = r["date_demande"].(string)
		if svc, ok := r["service"].(map[string]any); ok {
			o.Service, _ = svc["nom"].(string)
		}
		out = append(out, o)
	}
	return out
}

func recordInt(v any) int64 {
	switch n := v.(type) {
	case interface{ Int64() (int64, error) }:
		i, _ := n.Int64()
		return i
	case float64:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}
