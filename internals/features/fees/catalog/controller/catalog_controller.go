package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolflow_backend/internals/features/fees/catalog/dto"
	"schoolflow_backend/internals/features/fees/catalog/model"
	helper "schoolflow_backend/internals/helpers"
	"schoolflow_backend/internals/helpers/errs"
)

type CatalogController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewCatalogController(db *gorm.DB) *CatalogController {
	return &CatalogController{DB: db, Validator: validator.New()}
}

/* =======================================================================
   Fee components
======================================================================= */

// POST /fees/components
func (h *CatalogController) CreateComponent(c *fiber.Ctx) error {
	var req dto.CreateFeeComponentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	m := req.ToModel()
	if err := h.DB.WithContext(c.Context()).Create(m).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "create fee component failed")
	}
	return helper.JsonCreated(c, "fee component created", m)
}

// GET /fees/components
func (h *CatalogController) ListComponents(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	var total int64
	if err := h.DB.WithContext(c.Context()).Model(&model.FeeComponent{}).Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	var items []model.FeeComponent
	if err := h.DB.WithContext(c.Context()).
		Order("fee_component_created_at ASC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&items).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonList(c, "", items, helper.BuildPagination(total, paging.Page, paging.PerPage))
}

/* =======================================================================
   Fee plans
======================================================================= */

// POST /fees/plans
func (h *CatalogController) CreatePlan(c *fiber.Ctx) error {
	var req dto.CreateFeePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	m := req.ToModel()
	if err := h.DB.WithContext(c.Context()).Create(m).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "create fee plan failed")
	}
	return helper.JsonCreated(c, "fee plan created", m)
}

// GET /fees/plans
func (h *CatalogController) ListPlans(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	var total int64
	if err := h.DB.WithContext(c.Context()).Model(&model.FeePlan{}).Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	var plans []model.FeePlan
	if err := h.DB.WithContext(c.Context()).
		Order("fee_plan_created_at ASC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&plans).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonList(c, "", plans, helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// GET /fees/plans/:id
func (h *CatalogController) GetPlan(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid id")
	}

	var plan model.FeePlan
	if err := h.DB.WithContext(c.Context()).
		First(&plan, "fee_plan_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "fee plan not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	var components []model.FeePlanComponent
	if err := h.DB.WithContext(c.Context()).
		Where("fee_plan_component_plan_id = ?", id).
		Order("fee_plan_component_created_at ASC").
		Find(&components).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	return helper.JsonOK(c, "", dto.FromPlanModel(&plan, components))
}

// POST /fees/plans/:id/components
func (h *CatalogController) AddPlanComponent(c *fiber.Ctx) error {
	planID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid id")
	}

	var req dto.AddPlanComponentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if !req.FeePlanComponentAmount.IsPositive() {
		return helper.JsonError(c, fiber.StatusBadRequest, "amount must be positive")
	}

	var plan model.FeePlan
	if err := h.DB.WithContext(c.Context()).First(&plan, "fee_plan_id = ?", planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "fee plan not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	// A plan already invoiced is logically frozen; price changes go into a new
	// plan row so past invoices keep their snapshotted amounts.
	var consumed int64
	if err := h.DB.WithContext(c.Context()).
		Table("fee_assignments").
		Where("fee_assignment_plan_id = ? AND fee_assignment_invoice_id IS NOT NULL AND fee_assignment_deleted_at IS NULL", planID).
		Count(&consumed).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	if consumed > 0 {
		return helper.JsonError(c, fiber.StatusConflict, "fee plan is already referenced by an invoice; create a new plan version instead")
	}

	m := &model.FeePlanComponent{
		FeePlanComponentPlanID:      planID,
		FeePlanComponentComponentID: req.FeePlanComponentComponentID,
		FeePlanComponentAmount:      req.FeePlanComponentAmount,
	}
	if err := h.DB.WithContext(c.Context()).Create(m).Error; err != nil {
		if errs.IsUniqueViolation(err) {
			return helper.JsonError(c, fiber.StatusConflict, "component already priced into this plan")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "add plan component failed")
	}
	return helper.JsonCreated(c, "plan component added", m)
}
