package handlers

import (
	"net/http"
	"policy-lifecycle/internal/models"
	"policy-lifecycle/internal/services"

	"github.com/gofiber/fiber/v3"
)

type ClaimHandler struct {
	claimService *services.ClaimService
	queryService *services.QueryService
}

func NewClaimHandler(claimService *services.ClaimService, queryService *services.QueryService) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		queryService: queryService,
	}
}

func (h *ClaimHandler) Register(app *fiber.App) {
	protectedGr := app.Group("policy/protected/api/v2")

	claimGr := protectedGr.Group("/claim")
	claimGr.Post("/", h.GenerateClaim)
	claimGr.Post("/submit/:id", h.SubmitForReview)
	claimGr.Put("/decide/:id", h.PartnerDecide)
	claimGr.Get("/policy/:policy_id", h.GetClaimsByPolicy)

	farmerGr := claimGr.Group("/read-own")
	farmerGr.Get("/:id", h.GetOwnClaim)

	partnerGr := claimGr.Group("/read-partner")
	partnerGr.Get("/:id", h.GetPartnerClaim)
}

func (h *ClaimHandler) GenerateClaim(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}

	var req models.GenerateClaimRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.claimService.Generate(c.Context(), userID, req)
	if err != nil {
		return respondError(c, "generate claim", err)
	}
	return c.Status(http.StatusCreated).JSON(models.CreateSuccessResponse(res))
}

func (h *ClaimHandler) SubmitForReview(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	claimID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.claimService.SubmitForReview(c.Context(), claimID, userID)
	if err != nil {
		return respondError(c, "submit claim for review", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *ClaimHandler) PartnerDecide(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	claimID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	var req models.PartnerDecideRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body: "+err.Error()))
	}
	if err := req.Validate(); err != nil {
		return respondValidation(c, err)
	}

	res, err := h.claimService.PartnerDecide(c.Context(), claimID, userID, req)
	if err != nil {
		return respondError(c, "decide claim", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *ClaimHandler) GetOwnClaim(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	claimID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetClaimForFarmer(c.Context(), claimID, userID)
	if err != nil {
		return respondError(c, "get claim", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *ClaimHandler) GetPartnerClaim(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	claimID, ok := parseIDParam(c, "id")
	if !ok {
		return nil
	}

	res, err := h.queryService.GetClaimForPartner(c.Context(), claimID, userID)
	if err != nil {
		return respondError(c, "get claim", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(res))
}

func (h *ClaimHandler) GetClaimsByPolicy(c fiber.Ctx) error {
	userID, ok := actorID(c)
	if !ok {
		return nil
	}
	policyID, ok := parseIDParam(c, "policy_id")
	if !ok {
		return nil
	}

	claims, err := h.queryService.GetClaimsByPolicyForParty(c.Context(), policyID, userID)
	if err != nil {
		return respondError(c, "list claims", err)
	}
	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(map[string]any{
		"claims":    claims,
		"count":     len(claims),
		"policy_id": policyID,
	}))
}
