package snapshot

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/server"
	"github.com/burakenal/data/core/storage"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the snapshot feature. It is disabled unless both a
// database and a storage client are available.
func NewFeature(adapter *database.Adapter, client storage.Client, storageCfg storage.Config, serverCfg server.Config, logger *zap.Logger) *Feature {
	if adapter == nil || client == nil {
		return &Feature{}
	}
	svc := NewService(adapter, client, storageCfg, serverCfg, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "snapshot"
}

// IsEnabled reports whether the feature has everything it needs.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
