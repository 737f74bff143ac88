package usecase

import (
	"context"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	icache "ZPulse/internal/service/cache"
	xlogger "ZPulse/pkg/logger"
)

// AlertDispatcher fans one alert out to every configured destination:
// console, Kafka, ClickHouse, and the recent-alerts cache. Each destination
// is optional and each failure is logged and contained; the engine never
// sees sink errors.
type AlertDispatcher struct {
	console *ConsoleSink
	pub     domrepo.AlertPublisher
	store   domrepo.AlertStore
	cache   *icache.AlertCache
	log     *xlogger.Logger
}

// NewAlertDispatcher creates a dispatcher. Any destination may be nil.
func NewAlertDispatcher(console *ConsoleSink, pub domrepo.AlertPublisher, store domrepo.AlertStore, cache *icache.AlertCache, log *xlogger.Logger) *AlertDispatcher {
	return &AlertDispatcher{console: console, pub: pub, store: store, cache: cache, log: log}
}

// Emit implements repository.AlertSink.
func (d *AlertDispatcher) Emit(ctx context.Context, a *models.Alert) {
	if d.console != nil {
		d.console.Emit(ctx, a)
	}
	if d.pub != nil {
		if err := d.pub.Publish(ctx, a); err != nil {
			d.log.Warn("alert publish failed",
				xlogger.String("symbol", a.Symbol),
				xlogger.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Store(ctx, a); err != nil {
			d.log.Warn("alert store failed",
				xlogger.String("symbol", a.Symbol),
				xlogger.Error(err))
		}
	}
	if d.cache != nil {
		if err := d.cache.Append(a); err != nil {
			d.log.Warn("alert cache failed",
				xlogger.String("symbol", a.Symbol),
				xlogger.Error(err))
		}
	}
}

var _ domrepo.AlertSink = (*AlertDispatcher)(nil)
