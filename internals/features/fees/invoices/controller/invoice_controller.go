package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	assignmentModel "schoolflow_backend/internals/features/fees/assignments/model"
	assignmentSvc "schoolflow_backend/internals/features/fees/assignments/service"
	"schoolflow_backend/internals/features/fees/invoices/dto"
	"schoolflow_backend/internals/features/fees/invoices/model"
	"schoolflow_backend/internals/features/fees/invoices/service"
	helper "schoolflow_backend/internals/helpers"
)

type InvoiceController struct {
	DB        *gorm.DB
	Validator *validator.Validate
}

func NewInvoiceController(db *gorm.DB) *InvoiceController {
	return &InvoiceController{DB: db, Validator: validator.New()}
}

// POST /fees/invoices
func (h *InvoiceController) Create(c *fiber.Ctx) error {
	var req dto.CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid json: "+err.Error())
	}
	if err := h.Validator.Struct(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, err.Error())
	}

	in := service.CreateInvoiceInput{
		StudentID: req.FeeInvoiceStudentID,
		InvoiceNo: req.FeeInvoiceNo,
		Period:    req.FeeInvoicePeriod,
		DueDate:   req.FeeInvoiceDueDate,
		FeePlanID: req.FeePlanID,
		Amount:    req.Amount,
	}
	if req.Concession != nil {
		in.Concession = *req.Concession
	}

	// Assignment-driven creation: plan and concession come from the
	// assignment, and the assignment gets the invoice back-reference.
	var assignment *assignmentModel.FeeAssignment
	if req.FeeAssignmentID != nil {
		var a assignmentModel.FeeAssignment
		if err := h.DB.WithContext(c.Context()).First(&a, "fee_assignment_id = ?", *req.FeeAssignmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return helper.JsonError(c, fiber.StatusNotFound, "assignment not found")
			}
			return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
		}
		if a.IsConsumed() {
			return helper.JsonError(c, fiber.StatusConflict, "assignment already consumed by an invoice")
		}
		assignment = &a
		in.StudentID = a.FeeAssignmentStudentID
		in.FeePlanID = &a.FeeAssignmentPlanID
		in.Concession = a.FeeAssignmentConcession
	}

	var inv *model.FeeInvoice
	err := h.DB.WithContext(c.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = service.CreateInvoice(c.Context(), tx, in)
		if err != nil {
			return err
		}
		if assignment != nil {
			assignment.FeeAssignmentInvoiceID = &inv.FeeInvoiceID
			return tx.Save(assignment).Error
		}
		return nil
	})
	if err != nil {
		return helper.JsonFromError(c, err)
	}

	items := resolvedItems(c, h.DB, in)
	bal := service.Balance{
		AmountDue:  inv.FeeInvoiceAmountDue,
		PaidAmount: decimal.Zero,
		Balance:    inv.FeeInvoiceAmountDue,
		Status:     inv.FeeInvoiceStatus,
	}
	return helper.JsonCreated(c, "invoice created", dto.FromModel(inv, bal, items))
}

// GET /fees/invoices/:id, always served with the derived paid/balance pair.
func (h *InvoiceController) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "invalid id")
	}

	inv, err := service.GetInvoice(c.Context(), h.DB, id)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	bal, err := service.ComputeBalance(c.Context(), h.DB, id)
	if err != nil {
		return helper.JsonFromError(c, err)
	}
	return helper.JsonOK(c, "", dto.FromModel(inv, bal, nil))
}

// GET /fees/invoices
func (h *InvoiceController) List(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	q := h.DB.WithContext(c.Context()).Model(&model.FeeInvoice{})
	if s := c.Query("student_id"); s != "" {
		sid, err := uuid.Parse(s)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "invalid student_id")
		}
		q = q.Where("fee_invoice_student_id = ?", sid)
	}
	if s := c.Query("status"); s != "" {
		q = q.Where("fee_invoice_status = ?", model.NormalizeInvoiceStatus(s))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	var items []model.FeeInvoice
	if err := q.Order("fee_invoice_created_at DESC").
		Offset(paging.Offset).Limit(paging.Limit).
		Find(&items).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.JsonList(c, "", items, helper.BuildPagination(total, paging.Page, paging.PerPage))
}

func resolvedItems(c *fiber.Ctx, db *gorm.DB, in service.CreateInvoiceInput) []assignmentSvc.LineItem {
	if in.FeePlanID == nil {
		return nil
	}
	res, err := assignmentSvc.ResolvePlanLines(c.Context(), db, *in.FeePlanID, in.Concession)
	if err != nil {
		// best effort; the invoice itself is already committed
		return nil
	}
	return res.Lines
}
