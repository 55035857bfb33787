package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptDocument is the renderer input: everything a receipt artifact shows.
type ReceiptDocument struct {
	ReceiptNo string
	InvoiceNo string
	StudentID uuid.UUID
	Amount    decimal.Decimal
	PaidAt    time.Time
	Provider  string
}

// Renderer produces the receipt artifact and returns its storage path.
// Rendering mechanics are an external concern; the issuer only cares that a
// path comes back or an error does.
type Renderer interface {
	Render(ctx context.Context, doc ReceiptDocument) (string, error)
}

// FileRenderer writes a minimal artifact to disk. Production swaps in a real
// PDF renderer behind the same interface.
type FileRenderer struct {
	Dir string
}

func (r *FileRenderer) Render(ctx context.Context, doc ReceiptDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(r.Dir, doc.ReceiptNo+".pdf")
	body := fmt.Sprintf(
		"Receipt %s\nInvoice %s\nStudent %s\nAmount %s\nProvider %s\nPaid at %s\n",
		doc.ReceiptNo, doc.InvoiceNo, doc.StudentID, doc.Amount.StringFixed(2),
		doc.Provider, doc.PaidAt.Format(time.RFC3339),
	)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
