package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/service"
	"github.com/farmadigital/pharmacy/pkg/httpx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// CheckoutHandler serves the purchase endpoint.
type CheckoutHandler struct {
	PurchaseService *service.PurchaseService
}

type checkoutLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type checkoutCard struct {
	Number    string `json:"number"`
	Holder    string `json:"holder"`
	CVV       string `json:"cvv"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	IsPrimary bool   `json:"is_primary"`
}

type checkoutRequest struct {
	Lines         []checkoutLine `json:"lines"`
	PaymentMethod string         `json:"payment_method"`
	Code          string         `json:"code,omitempty"`
	Card          *checkoutCard  `json:"card,omitempty"`
	SaveCard      bool           `json:"save_card,omitempty"`
	StoredCardID  string         `json:"stored_card_id,omitempty"`
}

type checkoutResponse struct {
	OrderID       string    `json:"order_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	SubtotalCents int64     `json:"subtotal_cents"`
	TaxCents      int64     `json:"tax_cents"`
	TotalCents    int64     `json:"total_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// HandleCheckout handles POST /v1/checkout.
func (h *CheckoutHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing subject")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse checkout request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	purchase := service.PurchaseRequest{
		Method:       method,
		Code:         req.Code,
		SaveCard:     req.SaveCard,
		StoredCardID: req.StoredCardID,
		Origin:       remoteIP(r),
	}
	for _, l := range req.Lines {
		purchase.Lines = append(purchase.Lines, service.PurchaseLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		})
	}
	if req.Card != nil {
		purchase.NewCard = &domain.CardDetails{
			Number:    req.Card.Number,
			Holder:    req.Card.Holder,
			CVV:       req.Card.CVV,
			ExpMonth:  req.Card.ExpMonth,
			ExpYear:   req.Card.ExpYear,
			IsPrimary: req.Card.IsPrimary,
		}
	}

	res, err := h.PurchaseService.Checkout(ctx, userID, purchase)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:       res.OrderID,
		InvoiceID:     res.InvoiceID,
		InvoiceNumber: res.InvoiceNumber,
		SubtotalCents: res.SubtotalCents,
		TaxCents:      res.TaxCents,
		TotalCents:    res.TotalCents,
		Status:        string(res.Status),
		CreatedAt:     res.CreatedAt,
	})
}
