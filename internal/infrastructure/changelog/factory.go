package changelog

import (
	"errors"
	"fmt"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/config"
	"github.com/Shrijana18/StockPilot-v1-sub005/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrDatabaseUnavailable is returned when the database sink is requested without a SQL connection
var ErrDatabaseUnavailable = errors.New("database change log sink requires a sql connection")

// NewFromConfig builds the change logger selected by cfg.Sinks. db may be nil
// when the database sink is not configured. The returned close function
// releases sink resources such as the Kafka writer.
func NewFromConfig(cfg config.ChangeLogConfig, db *gorm.DB, logger *zap.Logger) (*MultiSink, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		sinks   []NamedSink
		closers []func() error
	)
	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkDatabase:
			if db == nil {
				return nil, nil, ErrDatabaseUnavailable
			}
			sinks = append(sinks, NamedSink{Name: name, Sink: persistence.NewGormChangeLogger(db)})
		case config.SinkKafka:
			k := NewKafkaSink(cfg, logger)
			sinks = append(sinks, NamedSink{Name: name, Sink: k})
			closers = append(closers, k.Close)
		case config.SinkLog:
			sinks = append(sinks, NamedSink{Name: name, Sink: NewLogSink(logger)})
		default:
			return nil, nil, fmt.Errorf("unknown change log sink %q", name)
		}
	}

	logger.Info("change log sinks configured", zap.Strings("sinks", cfg.Sinks))

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return NewMultiSink(sinks...), closeAll, nil
}
