package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ZPulse/internal/domain/models"
	domrepo "ZPulse/internal/domain/repository"
	xlogger "ZPulse/pkg/logger"
	"ZPulse/pkg/util"
)

// Source replays historical ticks through the same interface as the live
// stream. The window ends days_ago days in the past and spans ndays. Original
// ordering is preserved; sequence numbers are assigned chronologically per
// symbol so the engine sees the exact contract live data honors.
type Source struct {
	reader  domrepo.TickReader
	symbols []string
	daysAgo int
	ndays   int
	log     *xlogger.Logger

	loaded []*models.Observation
	ready  bool
}

// New creates a replay source over the given tick reader.
func New(reader domrepo.TickReader, symbols []string, daysAgo, ndays int, log *xlogger.Logger) *Source {
	return &Source{
		reader:  reader,
		symbols: symbols,
		daysAgo: daysAgo,
		ndays:   ndays,
		log:     log,
	}
}

// Connect loads the replay window into memory.
func (s *Source) Connect(ctx context.Context) error {
	from, to, err := util.ReplayWindow(time.Now(), s.daysAgo, s.ndays)
	if err != nil {
		return fmt.Errorf("replay window: %w", err)
	}

	ticks, err := s.reader.ReadWindow(ctx, s.symbols, from, to)
	if err != nil {
		return fmt.Errorf("replay load: %w", err)
	}
	if len(ticks) == 0 {
		return fmt.Errorf("replay window %s..%s holds no ticks", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	// stable sort keeps same-timestamp ticks in stored order
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp < ticks[j].Timestamp
	})

	seq := make(map[string]uint64, len(s.symbols))
	s.loaded = make([]*models.Observation, 0, len(ticks))
	for _, t := range ticks {
		seq[t.Symbol]++
		s.loaded = append(s.loaded, &models.Observation{
			Symbol:     t.Symbol,
			Price:      t.Price,
			Timestamp:  time.Unix(t.Timestamp, 0).UTC(),
			SequenceNo: seq[t.Symbol],
		})
	}
	s.ready = true

	s.log.Info("replay window loaded",
		xlogger.String("from", from.Format("2006-01-02")),
		xlogger.String("to", to.Format("2006-01-02")),
		xlogger.Int("ticks", len(s.loaded)))
	return nil
}

// Subscribe is a no-op for replay; the window was selected at Connect.
func (s *Source) Subscribe(ctx context.Context) error {
	if !s.ready {
		return fmt.Errorf("replay source not connected")
	}
	return nil
}

// Read streams the loaded observations and closes the channel when the window
// is exhausted.
func (s *Source) Read(ctx context.Context) (<-chan *models.Observation, <-chan error) {
	out := make(chan *models.Observation, 1024)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)
		for _, obs := range s.loaded {
			select {
			case out <- obs:
			case <-ctx.Done():
				return
			}
		}
		s.log.Info("replay complete", xlogger.Int("observations", len(s.loaded)))
	}()

	return out, errs
}

// Reconnect re-reads the window.
func (s *Source) Reconnect(ctx context.Context) error {
	s.ready = false
	return s.Connect(ctx)
}

// Close releases the loaded window.
func (s *Source) Close() error {
	s.loaded = nil
	s.ready = false
	return nil
}

// IsConnected reports whether the window is loaded.
func (s *Source) IsConnected() bool { return s.ready }
