package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"schoolflow_backend/internals/configs"
	assignmentModel "schoolflow_backend/internals/features/fees/assignments/model"
	catalogModel "schoolflow_backend/internals/features/fees/catalog/model"
	invoiceModel "schoolflow_backend/internals/features/fees/invoices/model"
	paymentModel "schoolflow_backend/internals/features/fees/payments/model"
	receiptModel "schoolflow_backend/internals/features/fees/receipts/model"
)

var DB *gorm.DB

func ConnectDB() {
	log.Println("[INFO] connecting to PostgreSQL...")

	sslmode := getenv("DB_SSLMODE", "require")
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=schoolflow&options=-c statement_timeout=3000",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
		sslmode,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // required for PgBouncer transaction pooling
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
	})
	if err != nil {
		log.Fatalf("[ERROR] DB connect failed: %v", err)
	}
	DB = db
	log.Println("[INFO] DB connected.")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("[WARN] pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// Migrate creates/updates the fee ledger tables. The unique indexes declared on the
// models are load-bearing: payment de-duplication and receipt uniqueness rely on them.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&catalogModel.FeeComponent{},
		&catalogModel.FeePlan{},
		&catalogModel.FeePlanComponent{},
		&assignmentModel.FeeAssignment{},
		&invoiceModel.FeeInvoice{},
		&paymentModel.Payment{},
		&paymentModel.PaymentGatewayEvent{},
		&receiptModel.Receipt{},
	)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
