package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"schoolflow_backend/internals/helpers/errs"
)

// LineItem is one payable line of a resolved plan. The concession line, when
// present, carries a negative amount.
type LineItem struct {
	Title  string          `json:"title"`
	Amount decimal.Decimal `json:"amount"`
}

type PlanResolution struct {
	Lines      []LineItem      `json:"lines"`
	ItemsTotal decimal.Decimal `json:"items_total"`
	NetDue     decimal.Decimal `json:"net_due"`
}

// ResolvePlanLines derives the ordered line items for an invoice from the
// plan's priced components plus an optional flat concession. Pure read, safe
// to call repeatedly. A concession exceeding the items total clamps NetDue to
// zero rather than erroring.
func ResolvePlanLines(ctx context.Context, db *gorm.DB, planID uuid.UUID, concession decimal.Decimal) (PlanResolution, error) {
	var res PlanResolution

	type lineRow struct {
		Title  string          `gorm:"column:title"`
		Amount decimal.Decimal `gorm:"column:amount"`
	}
	var rows []lineRow
	if err := db.WithContext(ctx).
		Table("fee_plan_components").
		Select("fee_components.fee_component_name AS title, fee_plan_components.fee_plan_component_amount AS amount").
		Joins("JOIN fee_components ON fee_components.fee_component_id = fee_plan_components.fee_plan_component_component_id AND fee_components.fee_component_deleted_at IS NULL").
		Where("fee_plan_components.fee_plan_component_plan_id = ?", planID).
		Order("fee_plan_components.fee_plan_component_created_at ASC, fee_plan_components.fee_plan_component_id ASC").
		Scan(&rows).Error; err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, errs.NotFound("fee plan %s has no components", planID)
	}

	res.ItemsTotal = decimal.Zero
	for _, r := range rows {
		res.Lines = append(res.Lines, LineItem{Title: r.Title, Amount: r.Amount})
		res.ItemsTotal = res.ItemsTotal.Add(r.Amount)
	}

	if concession.IsPositive() {
		res.Lines = append(res.Lines, LineItem{Title: "Concession", Amount: concession.Neg()})
	}

	res.NetDue = res.ItemsTotal.Sub(concession)
	if res.NetDue.IsNegative() {
		res.NetDue = decimal.Zero
	}
	return res, nil
}
