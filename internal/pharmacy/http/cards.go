package http

import (
	"encoding/json"
	"net/http"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/service"
	"github.com/farmadigital/pharmacy/pkg/httpx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// CardsHandler serves the stored-card endpoints.
type CardsHandler struct {
	CardService *service.CardService
}

type saveCardRequest struct {
	Code      string `json:"code"`
	Number    string `json:"number"`
	Holder    string `json:"holder"`
	CVV       string `json:"cvv"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	IsPrimary bool   `json:"is_primary"`
}

type cardResponse struct {
	ID        string `json:"id"`
	Last4     string `json:"last4"`
	Brand     string `json:"brand"`
	Holder    string `json:"holder"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	IsPrimary bool   `json:"is_primary"`
}

func toCardResponse(c domain.Card) cardResponse {
	return cardResponse{
		ID:        c.ID,
		Last4:     c.Last4,
		Brand:     string(c.Brand),
		Holder:    c.Holder,
		ExpMonth:  c.ExpMonth,
		ExpYear:   c.ExpYear,
		IsPrimary: c.IsPrimary,
	}
}

// HandleSave handles POST /v1/cards.
func (h *CardsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing subject")
		return
	}

	var req saveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to parse save-card request", "err", err)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	card, err := h.CardService.SaveCard(ctx, userID, req.Code, domain.CardDetails{
		Number:    req.Number,
		Holder:    req.Holder,
		CVV:       req.CVV,
		ExpMonth:  req.ExpMonth,
		ExpYear:   req.ExpYear,
		IsPrimary: req.IsPrimary,
	}, remoteIP(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, toCardResponse(card))
}

// HandleList handles GET /v1/cards.
func (h *CardsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing subject")
		return
	}

	cards, err := h.CardService.ListCards(ctx, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cards": out})
}

// HandleDelete handles DELETE /v1/cards/{id}.
func (h *CardsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromCtx(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing subject")
		return
	}

	cardID := r.PathValue("id")
	if cardID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing card id")
		return
	}

	if err := h.CardService.DeleteCard(ctx, userID, cardID, remoteIP(r)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
