// Package ivmd implements the demo HTTP introspection host that embeds
// one IVM engine instance, grounded on the teacher's indexer/pkg/server
// (Config/Validate/New/Run split) and api/metrics (promauto metric set).
package ivmd

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config configures one Server. Validate fills in defaults, the same
// discipline as the teacher's dzrevdist.ViewConfig.Validate.
type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock

	ListenAddr      string
	ShutdownTimeout time.Duration

	// StatsInterval is how often the server logs engine statistics in the
	// background (spec §6 statistics()). Zero disables the loop.
	StatsInterval time.Duration

	// PrefilterMaxElements/PrefilterFalsePositiveRate, when PrefilterMaxElements
	// is nonzero, enable the bloomx prefilter on every dimension this
	// server's demo pipeline builds (spec §9(b): off by default).
	PrefilterMaxElements       uint64
	PrefilterFalsePositiveRate float64
}

func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}
