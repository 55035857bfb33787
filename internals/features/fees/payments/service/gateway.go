package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"

	invoiceModel "schoolflow_backend/internals/features/fees/invoices/model"
)

/* =========================================================
   Gateway contract
========================================================= */

// Order is the provider-side order reference returned at pre-capture time.
// AmountMinor is what actually went over the wire (paise / smallest unit).
type Order struct {
	OrderRef    string `json:"order_ref"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	Token       string `json:"token,omitempty"`
}

type Gateway interface {
	Provider() string
	CreateOrder(ctx context.Context, inv *invoiceModel.FeeInvoice, amount decimal.Decimal) (Order, error)
	// VerifyWebhook checks the delivery signature against the raw body.
	VerifyWebhook(payload []byte, signature string) bool
}

/* =========================================================
   Razorpay-style gateway (HMAC-SHA256 webhook signatures)
========================================================= */

type RazorpayGateway struct {
	KeyID         string
	WebhookSecret string
}

func (g *RazorpayGateway) Provider() string { return "razorpay" }

// CreateOrder hands out a local order reference; the provider-side order is
// created lazily at checkout. Amount goes out in paise.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, inv *invoiceModel.FeeInvoice, amount decimal.Decimal) (Order, error) {
	return Order{
		OrderRef:    GenOrderRef("order"),
		AmountMinor: MajorToMinor(amount),
		Currency:    "INR",
	}, nil
}

func (g *RazorpayGateway) VerifyWebhook(payload []byte, signature string) bool {
	if g.WebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.WebhookSecret))
	mac.Write(payload)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

/* =========================================================
   Midtrans gateway (Snap checkout)
========================================================= */

type MidtransGateway struct {
	ServerKey string
	Snap      snap.Client
}

func NewMidtransGateway(serverKey string, useProduction bool) *MidtransGateway {
	g := &MidtransGateway{ServerKey: serverKey}
	if useProduction {
		g.Snap.New(serverKey, midtrans.Production)
	} else {
		g.Snap.New(serverKey, midtrans.Sandbox)
	}
	return g
}

func (g *MidtransGateway) Provider() string { return "midtrans" }

func (g *MidtransGateway) CreateOrder(ctx context.Context, inv *invoiceModel.FeeInvoice, amount decimal.Decimal) (Order, error) {
	orderRef := GenOrderRef("order")
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID: orderRef,
			// Midtrans bills whole currency units.
			GrossAmt: amount.Round(0).IntPart(),
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    inv.FeeInvoiceNo,
				Price: amount.Round(0).IntPart(),
				Qty:   1,
				Name:  "School fee " + inv.FeeInvoicePeriod,
			},
		},
	}
	resp, err := g.Snap.CreateTransaction(req)
	if err != nil {
		return Order{}, err
	}
	return Order{
		OrderRef:    orderRef,
		AmountMinor: MajorToMinor(amount),
		Currency:    "IDR",
		CheckoutURL: resp.RedirectURL,
		Token:       resp.Token,
	}, nil
}

// VerifyWebhook checks the Midtrans notification signature:
// SHA512(order_id + status_code + gross_amount + ServerKey).
func (g *MidtransGateway) VerifyWebhook(payload []byte, signature string) bool {
	if g.ServerKey == "" || signature == "" {
		return false
	}
	var notif struct {
		OrderID     string `json:"order_id"`
		StatusCode  string `json:"status_code"`
		GrossAmount string `json:"gross_amount"`
	}
	if err := json.Unmarshal(payload, &notif); err != nil {
		return false
	}
	sum := sha512.Sum512([]byte(notif.OrderID + notif.StatusCode + notif.GrossAmount + g.ServerKey))
	want := hex.EncodeToString(sum[:])
	return want == strings.ToLower(strings.TrimSpace(signature))
}

/* =========================================================
   Utils
========================================================= */

// GenOrderRef builds a prefixed order reference, e.g. order-20250101-120000-AB12CD34.
func GenOrderRef(prefix string) string {
	now := time.Now().Format("20060102-150405")
	u := uuid.New().String()
	if len(u) > 8 {
		u = u[:8]
	}
	return prefix + "-" + now + "-" + strings.ToUpper(u)
}
