package tables

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/burakenal/data/core/command"
	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/logger"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/table"
	"github.com/burakenal/data/core/utils"
)

// reserved query parameters; every other parameter filters by equality
var reserved = map[string]bool{"fields": true, "order": true, "skip": true, "take": true, "api_key": true}

// Handler handles HTTP requests for tables.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the tables routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/tables")
	group.Get("/:name", h.HandleList)
	group.Get("/:name/first", h.HandleFirst)
	group.Get("/:name/schema", h.HandleSchema)
	group.Post("/:name/changes", h.HandleChanges)
}

// HandleList returns the rows of a table.
// Query: fields=a,b order=col|-col skip=N take=N and col=value filters.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	name := c.Params("name")
	rows, err := h.service.List(c.Context(), name, parseListRequest(c))
	if err != nil {
		return h.fail(c, "List failed", err)
	}
	return c.JSON(fiber.Map{
		"table": name,
		"count": len(rows),
		"rows":  rows,
	})
}

// HandleFirst returns the first matching row, or 404.
func (h *Handler) HandleFirst(c *fiber.Ctx) error {
	row, err := h.service.First(c.Context(), c.Params("name"), parseListRequest(c))
	if err != nil {
		return h.fail(c, "First failed", err)
	}
	if row == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no matching row"})
	}
	return c.JSON(row)
}

// HandleSchema returns the stored column schema of a table.
func (h *Handler) HandleSchema(c *fiber.Ctx) error {
	cols, err := h.service.Schema(c.Context(), c.Params("name"))
	if err != nil {
		return h.fail(c, "Schema lookup failed", err)
	}
	out := make([]fiber.Map, len(cols))
	for i, col := range cols {
		out[i] = fiber.Map{
			"name":     col.Name,
			"type":     col.Type.String(),
			"key":      col.IsKey,
			"identity": col.IsIdentity,
			"nullable": col.Nullable,
		}
	}
	return c.JSON(fiber.Map{"table": c.Params("name"), "columns": out})
}

// HandleChanges applies inserts, updates and deletes in one transaction.
func (h *Handler) HandleChanges(c *fiber.Ctx) error {
	var req ChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body: " + err.Error()})
	}
	if c.QueryBool("dry_run") {
		req.DryRun = true
	}

	res, err := h.service.Apply(c.Context(), c.Params("name"), req)
	if err != nil {
		return h.fail(c, "Apply changes failed", err)
	}
	return c.JSON(res)
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusOf(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Debug(msg, zap.Error(err), zap.Int("status", status))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusOf(err error) int {
	var convErr *utils.ConversionError
	switch {
	case errors.Is(err, ErrTableNotAllowed), errors.Is(err, database.ErrTableNotFound), errors.Is(err, ErrRowNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrReadOnly):
		return fiber.StatusForbidden
	case command.IsConstraintViolation(err):
		return fiber.StatusConflict
	case errors.Is(err, table.ErrUnknownColumn), errors.Is(err, ErrMissingKey),
		errors.Is(err, reconcile.ErrMissingPrimaryKey), errors.Is(err, table.ErrInvalidValue),
		errors.As(err, &convErr):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func parseListRequest(c *fiber.Ctx) ListRequest {
	req := ListRequest{
		Skip:    c.QueryInt("skip", 0),
		Take:    c.QueryInt("take", 0),
		Filters: make(map[string]string),
	}
	if fields := c.Query("fields"); fields != "" {
		for _, f := range strings.Split(fields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				req.Fields = append(req.Fields, f)
			}
		}
	}
	if order := c.Query("order"); order != "" {
		req.Desc = strings.HasPrefix(order, "-")
		req.OrderBy = strings.TrimPrefix(order, "-")
	}
	for k, v := range c.Queries() {
		if !reserved[k] {
			req.Filters[k] = v
		}
	}
	return req
}
