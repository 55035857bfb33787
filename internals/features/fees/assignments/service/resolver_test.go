package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	catalogModel "schoolflow_backend/internals/features/fees/catalog/model"
	"schoolflow_backend/internals/helpers/errs"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&catalogModel.FeeComponent{},
		&catalogModel.FeePlan{},
		&catalogModel.FeePlanComponent{},
	))
	return db
}

// seedPlan prices the named components into a fresh plan, in order.
func seedPlan(t *testing.T, db *gorm.DB, lines map[string]string, order []string) uuid.UUID {
	t.Helper()
	plan := catalogModel.FeePlan{
		FeePlanName:         "Grade 5 " + t.Name(),
		FeePlanAcademicYear: "2026-27",
		FeePlanFrequency:    catalogModel.FeePlanFrequencyTermly,
	}
	require.NoError(t, db.Create(&plan).Error)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range order {
		comp := catalogModel.FeeComponent{FeeComponentName: name}
		require.NoError(t, db.Create(&comp).Error)
		amount, err := decimal.NewFromString(lines[name])
		require.NoError(t, err)
		pc := catalogModel.FeePlanComponent{
			FeePlanComponentPlanID:      plan.FeePlanID,
			FeePlanComponentComponentID: comp.FeeComponentID,
			FeePlanComponentAmount:      amount,
			FeePlanComponentCreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&pc).Error)
	}
	return plan.FeePlanID
}

func TestResolvePlanLines_OrderAndTotal(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db,
		map[string]string{"Tuition": "1200", "Transport": "300", "Library": "150"},
		[]string{"Tuition", "Transport", "Library"},
	)

	res, err := ResolvePlanLines(context.Background(), db, planID, decimal.Zero)
	require.NoError(t, err)

	require.Len(t, res.Lines, 3)
	assert.Equal(t, "Tuition", res.Lines[0].Title)
	assert.Equal(t, "Transport", res.Lines[1].Title)
	assert.Equal(t, "Library", res.Lines[2].Title)
	assert.True(t, res.ItemsTotal.Equal(decimal.NewFromInt(1650)), "items_total = %s", res.ItemsTotal)
	assert.True(t, res.NetDue.Equal(decimal.NewFromInt(1650)))
}

func TestResolvePlanLines_ConcessionLine(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db,
		map[string]string{"Tuition": "1200", "Transport": "300"},
		[]string{"Tuition", "Transport"},
	)

	res, err := ResolvePlanLines(context.Background(), db, planID, decimal.NewFromInt(200))
	require.NoError(t, err)

	require.Len(t, res.Lines, 3)
	last := res.Lines[2]
	assert.Equal(t, "Concession", last.Title)
	assert.True(t, last.Amount.Equal(decimal.NewFromInt(-200)))
	assert.True(t, res.ItemsTotal.Equal(decimal.NewFromInt(1500)), "concession must not change items_total")
	assert.True(t, res.NetDue.Equal(decimal.NewFromInt(1300)))
}

func TestResolvePlanLines_ConcessionClampsToZero(t *testing.T) {
	db := openTestDB(t)
	planID := seedPlan(t, db,
		map[string]string{"Tuition": "500"},
		[]string{"Tuition"},
	)

	res, err := ResolvePlanLines(context.Background(), db, planID, decimal.NewFromInt(900))
	require.NoError(t, err)
	assert.True(t, res.NetDue.IsZero(), "net_due = %s", res.NetDue)
}

func TestResolvePlanLines_EmptyPlan(t *testing.T) {
	db := openTestDB(t)

	_, err := ResolvePlanLines(context.Background(), db, uuid.New(), decimal.Zero)
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}
