package snapshot

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/command"
	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/logger"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/table"
)

// Handler handles HTTP requests for snapshots.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the snapshot routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/snapshots")
	group.Get("/", h.HandleList)
	group.Post("/:table", h.HandleExport)
	group.Post("/:table/import", h.HandleImport)
	group.Delete("/:table", h.HandleDelete)
}

// HandleList lists stored snapshots.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	entries, err := h.service.List(c.Context())
	if err != nil {
		return h.fail(c, "Snapshot listing failed", err)
	}
	return c.JSON(fiber.Map{"count": len(entries), "snapshots": entries})
}

// HandleExport stores a snapshot of a table.
func (h *Handler) HandleExport(c *fiber.Ctx) error {
	res, err := h.service.Export(c.Context(), c.Params("table"))
	if err != nil {
		return h.fail(c, "Snapshot export failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// HandleImport reconciles a table with its snapshot.
// Query: prune=true deletes rows missing from the snapshot, confirm=true
// writes the changes, dry_run=true forces a report.
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	opts := ImportOptions{
		Prune:     c.QueryBool("prune"),
		DryRun:    c.QueryBool("dry_run"),
		Confirmed: c.QueryBool("confirm"),
	}
	res, err := h.service.Import(c.Context(), c.Params("table"), opts)
	if err != nil {
		return h.fail(c, "Snapshot import failed", err)
	}
	return c.JSON(res)
}

// HandleDelete removes a stored snapshot.
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), c.Params("table")); err != nil {
		return h.fail(c, "Snapshot delete failed", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusOf(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Warn(msg, zap.Error(err), zap.Int("status", status))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrTableNotAllowed), errors.Is(err, ErrSnapshotNotFound), errors.Is(err, database.ErrTableNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrReadOnly):
		return fiber.StatusForbidden
	case command.IsConstraintViolation(err), errors.Is(err, ErrTableMismatch):
		return fiber.StatusConflict
	case errors.Is(err, table.ErrUnknownColumn), errors.Is(err, table.ErrInvalidValue),
		errors.Is(err, reconcile.ErrMissingPrimaryKey):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
