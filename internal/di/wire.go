//go:build wireinject

package di

import (
	"github.com/google/wire"
	"github.com/kcaldas/blockfit/pkg/config"
)

var AppSet = wire.NewSet(
	ProvideLogger,
	ProvideEventBus,
	ProvideCounter,
	ProvideSelector,
	ProvideCoordinator,
	wire.Struct(new(App), "*"),
)

// InjectApp builds the application graph from resolved settings.
func InjectApp(settings config.Settings, out LogOutput) *App {
	wire.Build(AppSet)
	return nil
}
