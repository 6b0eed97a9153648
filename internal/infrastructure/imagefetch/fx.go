package imagefetch

import (
	dispatchdeps "github.com/Conte777/affiliate-relay/internal/domain/dispatch/deps"
	"go.uber.org/fx"
)

// Module provides the product image fetcher for fx DI
var Module = fx.Module("imagefetch",
	fx.Provide(
		NewFetcher,
		func(f *Fetcher) dispatchdeps.ImageFetcher { return f },
	),
)
