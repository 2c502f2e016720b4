package di

import (
	"io"
	"log/slog"
	"os"

	"github.com/kcaldas/blockfit/pkg/blocks"
	"github.com/kcaldas/blockfit/pkg/config"
	"github.com/kcaldas/blockfit/pkg/coordinator"
	"github.com/kcaldas/blockfit/pkg/events"
	"github.com/kcaldas/blockfit/pkg/logging"
)

// App is the fully wired object graph the CLI commands work against.
type App struct {
	Settings    config.Settings
	Logger      logging.Logger
	Bus         *events.InMemoryBus
	Selector    *blocks.Selector
	Coordinator *coordinator.Coordinator
}

// Close drains pending events.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Shutdown()
	}
}

// LogOutput is where the wired logger writes.
type LogOutput io.Writer

// DebugLogFile is the fallback name passed to the env file logger.
const DebugLogFile = "blockfit-debug.log"

// ProvideLogger builds the application logger at the configured level and
// installs it as the global logger so component loggers follow it.
// Setting BLOCKFIT_DEBUG_FILE redirects logs to that file instead of out.
func ProvideLogger(settings config.Settings, out LogOutput) logging.Logger {
	var logger logging.Logger
	if os.Getenv(logging.EnvDebugFile) != "" {
		logger = logging.NewFileLoggerFromEnv(DebugLogFile)
	} else {
		logger = logging.NewLogger(logging.Config{
			Level:  logging.ParseLevel(settings.LogLevel, slog.LevelInfo),
			Format: logging.FormatText,
			Output: out,
		})
	}
	logging.SetGlobalLogger(logger)
	return logger
}

func ProvideEventBus(logger logging.Logger) *events.InMemoryBus {
	bus := events.NewEventBus()
	bus.Subscribe(events.TopicRunFinished, func(e any) {
		if fin, ok := e.(events.RunFinishedEvent); ok {
			logger.Debug("run finished", "run_id", fin.RunID, "status", fin.Status, "duration", fin.Duration)
		}
	})
	return bus
}

func ProvideCounter(settings config.Settings) blocks.Counter {
	if settings.Model != "" {
		if c, err := blocks.NewTiktokenCounterForModel(settings.Model); err == nil {
			return c
		}
	}
	return blocks.NewCounter(settings.Encoding)
}

func ProvideSelector(counter blocks.Counter, logger logging.Logger) *blocks.Selector {
	return blocks.NewSelector(
		blocks.WithCounter(counter),
		blocks.WithLogger(logger.With("component", "selector")),
	)
}

func ProvideCoordinator(settings config.Settings, selector *blocks.Selector, logger logging.Logger, bus *events.InMemoryBus) *coordinator.Coordinator {
	return coordinator.New(
		coordinator.WithSelector(selector),
		coordinator.WithLogger(logger.With("component", "coordinator")),
		coordinator.WithPublisher(bus),
		coordinator.WithPollInterval(settings.PollInterval()),
		coordinator.WithValidationTimeout(settings.ValidationTimeout()),
		coordinator.WithBatchTimeout(settings.BatchTimeout()),
	)
}
