package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolflow_backend/internals/features/fees/assignments/dto"
	"schoolflow_backend/internals/features/fees/assignments/model"
	"schoolflow_backend/internals/features/fees/assignments/service"
	helper "schoolflow_backend/internals/helpers"
	"schoolflow_backend/internals/helpers/errs"
)

type AssignmentController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewAssignmentController(db *gorm.DB) *AssignmentController {
	return &AssignmentController{DB: db, Validator: validator.New()}
}

// POST /fees/assignments
func (h *AssignmentController) Create(c *fiber.Ctx) error {
	var req dto.CreateAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	m := req.ToModel()
	if m.FeeAssignmentConcession.IsNegative() {
		return helper.JsonError(c, fiber.StatusBadRequest, "concession must not be negative")
	}
	if err := h.DB.WithContext(c.Context()).Create(m).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "create assignment failed")
	}
	return helper.JsonCreated(c, "assignment created", m)
}

// GET /fees/assignments
func (h *AssignmentController) List(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.WithContext(c.Context()).Model(&model.FeeAssignment{})
	if s := c.Query("student_id"); s != "" {
		sid, err := uuid.Parse(s)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid student_id")
		}
		q = q.Where("fee_assignment_student_id = ?", sid)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	var items []model.FeeAssignment
	if err := q.Order("fee_assignment_created_at ASC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&items).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonList(c, "", items, helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// GET /fees/assignments/:id/resolution previews the invoice lines an
// assignment would produce, without writing anything.
func (h *AssignmentController) Resolution(c *fiber.Ctx) error {
	m, err := h.load(c)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	res, err := service.ResolvePlanLines(c.Context(), h.DB, m.FeeAssignmentPlanID, m.FeeAssignmentConcession)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	return helper.JsonOK(c, "", res)
}

// PATCH /fees/assignments/:id
func (h *AssignmentController) Patch(c *fiber.Ctx) error {
	m, err := h.load(c)
	if err != nil {
		return helper.JsonFromError(c, err)
	}

	var patch dto.UpdateAssignmentRequest
	if err := c.BodyParser(&patch); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&patch); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}
	patch.Apply(m)
	if m.FeeAssignmentConcession.IsNegative() {
		return helper.JsonError(c, fiber.StatusBadRequest, "concession must not be negative")
	}

	if err := h.DB.WithContext(c.Context()).Save(m).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "save failed")
	}
	return helper.JsonUpdated(c, "assignment updated", m)
}

// DELETE /fees/assignments/:id, refused once an invoice consumed it.
func (h *AssignmentController) Delete(c *fiber.Ctx) error {
	m, err := h.load(c)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	if m.IsConsumed() {
		return helper.JsonError(c, fiber.StatusConflict, "assignment already consumed by an invoice")
	}
	if err := h.DB.WithContext(c.Context()).Delete(m).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "delete failed")
	}
	return helper.JsonDeleted(c, "assignment deleted", fiber.Map{"fee_assignment_id": m.FeeAssignmentID})
}

func (h *AssignmentController) load(c *fiber.Ctx) (*model.FeeAssignment, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, errs.Validation("invalid id")
	}
	var m model.FeeAssignment
	if err := h.DB.WithContext(c.Context()).First(&m, "fee_assignment_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("assignment not found")
		}
		return nil, err
	}
	return &m, nil
}
