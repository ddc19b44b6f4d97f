package handlers

import (
	"net/http"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/services"

	"github.com/gofiber/fiber/v3"
)

type PolicyHandler struct {
	policyService *services.RegisteredPolicyService
	queryService  *services.QueryService
}

func NewPolicyHandler(policyService *services.RegisteredPolicyService, queryService *services.QueryService) *PolicyHandler {
	return &PolicyHandler{
		policyService: policyService,
		queryService:  queryService,
	}
}

func (h *PolicyHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy/protected/api/v2")

	policyGr := protectedGr.Group("/registered_policy")
	policyGr.Post("/", h.RegisterPolicy)
	policyGr.Post("/submit/:id", h.SubmitForUnderwriting)
	policyGr.Put("/underwrite/:id", h.Underwrite)
	policyGr.Post("/premium-paid/:id", h.MarkPremiumPaid)

	farmerGr := policyGr.Group("/read-own")
	farmerGr.Get("/me", h.GetOwnPolicies)

	partnerGr := policyGr.Group("/read-partner")
	partnerGr.Get("/own", h.GetPartnerPolicies)

	policyGr.Get("/:id", h.GetPolicy)
}

func (h *PolicyHandler) RegisterPolicy(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}

	var req models.CreatePolicyRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.policyService.Register(c.Context(), userID, req)
	if err != nil {
		return respondError(c, "register policy", err)
	}
	return c.Status(http.StatusCreated).JSON(models.CreateSuccessResponse(res))
}

func (h *PolicyHandler) SubmitForUnderwriting(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	policyID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	if err := h.policyService.SubmitForUnderwriting(c.Context(), policyID, userID); err != nil {
		return respondError(c, "submit policy for underwriting", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"policy_id": policyID,
		"status":    models.PolicyPendingReview,
	}))
}

func (h *PolicyHandler) Underwrite(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	policyID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req models.UnderwriteRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.policyService.Underwrite(c.Context(), policyID, userID, req)
	if err != nil {
		return respondError(c, "underwrite policy", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PolicyHandler) MarkPremiumPaid(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	policyID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	if err := h.policyService.MarkPremiumPaid(c.Context(), policyID, userID); err != nil {
		return respondError(c, "mark premium paid", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"policy_id": policyID,
		"status":    models.PolicyActive,
	}))
}

func (h *PolicyHandler) GetPolicy(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	policyID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetPolicyForParty(c.Context(), policyID, userID)
	if err != nil {
		return respondError(c, "get policy", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *PolicyHandler) GetOwnPolicies(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}

	policies, err := h.queryService.GetPoliciesByFarmer(c.Context(), userID)
	if err != nil {
		return respondError(c, "list policies", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"policies":  policies,
		"count":     len(policies),
		"farmer_id": userID,
	}))
}

func (h *PolicyHandler) GetPartnerPolicies(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}

	policies, err := h.queryService.GetPoliciesByProvider(c.Context(), userID)
	if err != nil {
		return respondError(c, "list policies", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"policies":    policies,
		"count":       len(policies),
		"provider_id": userID,
	}))
}
