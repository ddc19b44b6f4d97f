package handlers

import (
	"net/http"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/services"

	"github.com/gofiber/fiber/v3"
)

type PayoutHandler struct {
	claimService *services.ClaimService
	queryService *services.QueryService
}

func NewPayoutHandler(claimService *services.ClaimService, queryService *services.QueryService) *PayoutHandler {
	return &PayoutHandler{
		claimService: claimService,
		queryService: queryService,
	}
}

func (h *PayoutHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy/protected/api/v2")

	payoutGr := protectedGr.Group("/payout")
	payoutGr.Put("/outcome/:id", h.RecordPaymentOutcome)
	payoutGr.Post("/confirm/:id", h.ConfirmReceipt)
	payoutGr.Post("/cancel/:id", h.CancelPayout)
	payoutGr.Get("/claim/:claim_id", h.GetPayoutByClaim)

	farmerGr := payoutGr.Group("/read-own")
	farmerGr.Get("/me", h.GetOwnPayouts)
	farmerGr.Get("/:id", h.GetOwnPayout)

	partnerGr := payoutGr.Group("/read-partner")
	partnerGr.Get("/:id", h.GetPartnerPayout)
}

// RecordPaymentOutcome is the HTTP fallback for the payment executor's
// report. The normal path is the payment_events queue.
func (h *PayoutHandler) RecordPaymentOutcome(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	payoutID, ok := parseIDParam(c, "id")
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

	res, err := h.claimService.RecordPaymentOutcome(c.Context(), payoutID, userID, req)
	if err != nil {
		return respondError(c, "record payment outcome", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PayoutHandler) ConfirmReceipt(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req models.ConfirmReceiptRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.claimService.ConfirmReceipt(c.Context(), payoutID, userID, req)
	if err != nil {
		return respondError(c, "confirm payout receipt", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PayoutHandler) CancelPayout(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	payoutID, ok := parseIDParam(c, "id")
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

	res, err := h.claimService.CancelPayout(c.Context(), payoutID, userID, req.Reason)
	if err != nil {
		return respondError(c, "cancel payout", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PayoutHandler) GetOwnPayouts(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}

	payouts, err := h.queryService.GetPayoutsByFarmer(c.Context(), userID)
	if err != nil {
		return respondError(c, "list payouts", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"payouts":   payouts,
		"count":     len(payouts),
		"farmer_id": userID,
	}))
}

func (h *PayoutHandler) GetOwnPayout(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetPayoutForFarmer(c.Context(), payoutID, userID)
	if err != nil {
		return respondError(c, "get payout", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PayoutHandler) GetPartnerPayout(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	payoutID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetPayoutForPartner(c.Context(), payoutID, userID)
	if err != nil {
		return respondError(c, "get payout", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PayoutHandler) GetPayoutByClaim(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	claimID, ok := parseIDParam(c, "claim_id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetPayoutByClaimForFarmer(c.Context(), claimID, userID)
	if err != nil {
		return respondError(c, "get payout by claim", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}
