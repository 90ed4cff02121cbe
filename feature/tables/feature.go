package tables

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/server"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the tables feature. A nil adapter disables it.
func NewFeature(adapter *database.Adapter, cfg server.Config, logger *zap.Logger) *Feature {
	if adapter == nil {
		return &Feature{}
	}
	svc := NewService(adapter, cfg, logger)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "tables"
}

// IsEnabled reports whether a database is available.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
