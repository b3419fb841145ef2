package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/dto"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/identity"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/models"
	"github.com/ahmetcoskunkizilkaya/catalog-cases/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CaseHandler struct {
	caseService *services.CaseService
}

func NewCaseHandler(caseService *services.CaseService) *CaseHandler {
	return &CaseHandler{caseService: caseService}
}

func (h *CaseHandler) List(c *fiber.Ctx) error {
	caller, kind, err := callerAndKind(c)
	if err != nil {
		return caseError(c, err)
	}
	filter := listFilter(c)

	cases, total, err := h.caseService.List(c.UserContext(), caller, kind, filter)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(listResponse(cases, total, filter))
}

func (h *CaseHandler) ListMine(c *fiber.Ctx) error {
	caller, kind, err := callerAndKind(c)
	if err != nil {
		return caseError(c, err)
	}
	filter := listFilter(c)

	cases, total, err := h.caseService.ListOwn(c.UserContext(), caller, kind, filter)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(listResponse(cases, total, filter))
}

func (h *CaseHandler) Get(c *fiber.Ctx) error {
	caller, kind, id, err := callerKindAndID(c)
	if err != nil {
		return caseError(c, err)
	}

	found, err := h.caseService.Get(c.UserContext(), caller, kind, id)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(found)
}

func (h *CaseHandler) Stats(c *fiber.Ctx) error {
	caller, kind, err := callerAndKind(c)
	if err != nil {
		return caseError(c, err)
	}

	stats, err := h.caseService.Stats(c.UserContext(), caller, kind)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(fiber.Map{
		"kind":   kind,
		"counts": stats,
	})
}

func (h *CaseHandler) CreateContribution(c *fiber.Ctx) error {
	caller, ok := identity.Get(c)
	if !ok {
		return unauthorized(c)
	}

	var req dto.CreateContributionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := h.caseService.CreateContribution(c.UserContext(), caller, &req)
	if err != nil {
		return caseError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *CaseHandler) ResubmitContribution(c *fiber.Ctx) error {
	caller, ok := identity.Get(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid case ID")
	}

	var req dto.ResubmitContributionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	updated, err := h.caseService.ResubmitContribution(c.UserContext(), caller, id, &req)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(updated)
}

func (h *CaseHandler) CreateReport(c *fiber.Ctx) error {
	caller, ok := identity.Get(c)
	if !ok {
		return unauthorized(c)
	}
	kind, ok := parseReportKind(c.Params("kind"))
	if !ok {
		return notFound(c, "Unknown report kind")
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := h.caseService.CreateReport(c.UserContext(), caller, kind, &req)
	if err != nil {
		return caseError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.CreatedResponse{
		ID:     created.ID.String(),
		Kind:   string(created.Kind),
		Status: string(created.Status),
	})
}

func (h *CaseHandler) Claim(c *fiber.Ctx) error {
	caller, kind, id, err := callerKindAndID(c)
	if err != nil {
		return caseError(c, err)
	}

	claimed, err := h.caseService.Claim(c.UserContext(), caller, kind, id)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(claimed)
}

func (h *CaseHandler) Release(c *fiber.Ctx) error {
	caller, kind, id, err := callerKindAndID(c)
	if err != nil {
		return caseError(c, err)
	}

	released, err := h.caseService.Release(c.UserContext(), caller, kind, id)
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(released)
}

func (h *CaseHandler) Resolve(c *fiber.Ctx) error {
	caller, kind, id, err := callerKindAndID(c)
	if err != nil {
		return caseError(c, err)
	}

	var req dto.ResolveCaseRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Status) == "" {
		return badRequest(c, "status is required")
	}

	resolved, err := h.caseService.Resolve(c.UserContext(), caller, kind, id, services.Resolution{
		Status:      req.Status,
		Notes:       req.Notes,
		ActionTaken: req.ActionTaken,
	})
	if err != nil {
		return caseError(c, err)
	}
	return c.JSON(resolved)
}

// requestError is a malformed request detected before reaching the service.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func callerAndKind(c *fiber.Ctx) (identity.Identity, models.CaseKind, error) {
	caller, ok := identity.Get(c)
	if !ok {
		return caller, "", &requestError{fiber.StatusUnauthorized, "unauthenticated", "Unauthorized"}
	}
	kind, ok := models.ParseCaseKind(c.Params("kind"))
	if !ok {
		return caller, "", &requestError{fiber.StatusNotFound, "not_found", "Unknown case kind"}
	}
	return caller, kind, nil
}

func callerKindAndID(c *fiber.Ctx) (identity.Identity, models.CaseKind, uuid.UUID, error) {
	caller, kind, err := callerAndKind(c)
	if err != nil {
		return caller, kind, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return caller, kind, uuid.Nil, &requestError{fiber.StatusBadRequest, "validation", "Invalid case ID"}
	}
	return caller, kind, id, nil
}

// parseReportKind accepts both "comment" and "comment_report".
func parseReportKind(s string) (models.CaseKind, bool) {
	kind, ok := models.ParseCaseKind(s)
	if !ok {
		kind, ok = models.ParseCaseKind(s + "_report")
	}
	if !ok || !kind.IsReport() {
		return "", false
	}
	return kind, true
}

func listFilter(c *fiber.Ctx) services.ListFilter {
	filter := services.ListFilter{
		Status: c.Query("status", ""),
		Limit:  c.QueryInt("limit", services.DefaultPageSize),
		Offset: c.QueryInt("offset", 0),
	}
	filter.Normalize()
	return filter
}

func listResponse(cases []models.Case, total int64, filter services.ListFilter) dto.CaseListResponse {
	return dto.CaseListResponse{Cases: cases, Total: total, Limit: filter.Limit, Offset: filter.Offset}
}

// caseError maps service errors to status codes and stable error codes.
func caseError(c *fiber.Ctx, err error) error {
	var (
		reqErr   *requestError
		assigned *services.AlreadyAssignedError
	)
	switch {
	case errors.As(err, &reqErr):
		return c.Status(reqErr.status).JSON(dto.ErrorResponse{
			Error: true, Code: reqErr.code, Message: reqErr.message,
		})
	case errors.As(err, &assigned):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Code: "already_assigned", Message: err.Error(), Assignee: assigned.Assignee.String(),
		})
	case errors.Is(err, services.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, services.ErrNotAuthorized):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Code: "not_authorized", Message: err.Error(),
		})
	case errors.Is(err, services.ErrValidation):
		return badRequest(c, err.Error())
	case errors.Is(err, services.ErrDuplicateReport):
		return conflict(c, "duplicate", err)
	case errors.Is(err, services.ErrSelfReport):
		return conflict(c, "self_report", err)
	case errors.Is(err, services.ErrInvalidTransition):
		return conflict(c, "invalid_transition", err)
	case errors.Is(err, services.ErrApplyFailed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Code: "apply_failed", Message: err.Error(),
		})
	}

	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	slog.Error("case request failed",
		"error", err, "method", c.Method(), "path", c.Path(),
		"request_id", requestID(c), "case_kind", c.Params("kind"), "case_id", c.Params("id"))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Code: "unauthenticated", Message: "Unauthorized",
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Code: "validation", Message: message,
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
		Error: true, Code: "not_found", Message: message,
	})
}

func conflict(c *fiber.Ctx, code string, err error) error {
	return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
		Error: true, Code: code, Message: err.Error(),
	})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}
