package handlers

import (
	"net/http"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/services"

	"github.com/gofiber/fiber/v3"
)

type CancelRequestHandler struct {
	cancelRequestService *services.CancelRequestService
	queryService         *services.QueryService
}

func NewCancelRequestHandler(cancelRequestService *services.CancelRequestService, queryService *services.QueryService) *CancelRequestHandler {
	return &CancelRequestHandler{
		cancelRequestService: cancelRequestService,
		queryService:         queryService,
	}
}

func (h *CancelRequestHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy/protected/api/v2")

	cancelRequestGr := protectedGr.Group("/cancel_request")
	cancelRequestGr.Post("/", h.CreateCancelRequest)
	cancelRequestGr.Put("/review/:id", h.ReviewCancelRequest)
	cancelRequestGr.Post("/revoke/:id", h.RevokeCancelRequest)
	cancelRequestGr.Post("/dispute/:id", h.EscalateDispute)
	cancelRequestGr.Put("/resolve-dispute/:id", h.ResolveDispute)
	cancelRequestGr.Put("/payment-outcome/:id", h.RecordCompensationOutcome)
	cancelRequestGr.Get("/policy/:policy_id", h.GetRequestsByPolicy)
	cancelRequestGr.Get("/:id", h.GetCancelRequest)
}

func (h *CancelRequestHandler) CreateCancelRequest(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}

	var req models.CreateCancelRequestRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.cancelRequestService.Create(c.Context(), userID, req)
	if err != nil {
		return respondError(c, "create cancel request", err)
	}
	return c.Status(http.StatusCreated).JSON(models.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) ReviewCancelRequest(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req models.ReviewCancelRequestRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.cancelRequestService.Review(c.Context(), requestID, userID, req)
	if err != nil {
		return respondError(c, "review cancel request", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) RevokeCancelRequest(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.cancelRequestService.Revoke(c.Context(), requestID, userID)
	if err != nil {
		return respondError(c, "revoke cancel request", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) EscalateDispute(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}

	res, err := h.cancelRequestService.EscalateDispute(c.Context(), requestID, userID, req.Reason)
	if err != nil {
		return respondError(c, "escalate dispute", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) ResolveDispute(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req models.ResolveDisputeRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.cancelRequestService.ResolveDispute(c.Context(), requestID, userID, req)
	if err != nil {
		return respondError(c, "resolve dispute", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

// RecordCompensationOutcome is the HTTP fallback for the payment executor's
// report on a compensation transfer. The normal path is the payment_events
// queue.
func (h *CancelRequestHandler) RecordCompensationOutcome(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req models.RecordPaymentOutcomeRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	var res *models.CancelRequest
	var err error
	if req.Succeeded {
		res, err = h.cancelRequestService.MarkPaid(c.Context(), requestID, userID)
	} else {
		res, err = h.cancelRequestService.MarkPaymentFailed(c.Context(), requestID, userID, req.FailureReason)
	}
	if err != nil {
		return respondError(c, "record compensation outcome", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) GetCancelRequest(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetCancelRequestForParty(c.Context(), requestID, userID)
	if err != nil {
		return respondError(c, "get cancel request", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *CancelRequestHandler) GetRequestsByPolicy(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	policyID, ok := parseIDParam(c, "policy_id")
	if !ok {
		return nil
	}

	requests, err := h.queryService.GetCancelRequestsByPolicyForParty(c.Context(), policyID, userID)
	if err != nil {
		return respondError(c, "list cancel requests", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"cancel_requests": requests,
		"count":           len(requests),
		"policy_id":       policyID,
	}))
}
