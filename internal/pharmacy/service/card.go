package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/cryptox"
	"github.com/farmadigital/pharmacy/pkg/idx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// CardService stores and removes payment cards. Full card numbers exist in
// memory only long enough to validate and encrypt; the store sees ciphertext
// and the last four digits, nothing more.
type CardService struct {
	Store  store.Store
	Cipher *cryptox.CardCipher

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

func (s *CardService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// SaveCard validates and stores a card for the user. The caller must prove
// freshness with a one-time code; a bearer token alone is not enough to
// write payment data.
func (s *CardService) SaveCard(ctx context.Context, userID, code string, details domain.CardDetails, origin string) (domain.Card, error) {
	now := s.now()

	if err := verifyActiveCode(ctx, s.Store, userID, code, origin, now); err != nil {
		return domain.Card{}, err
	}
	if err := details.Validate(now); err != nil {
		return domain.Card{}, err
	}

	numberEnc, err := s.Cipher.Encrypt(details.Number)
	if err != nil {
		return domain.Card{}, fmt.Errorf("encrypt card number: %w", err)
	}

	card := domain.Card{
		ID:        idx.New().String(),
		UserID:    userID,
		Last4:     details.Last4(),
		Brand:     domain.DetectBrand(details.Number),
		Holder:    details.Holder,
		ExpMonth:  details.ExpMonth,
		ExpYear:   details.ExpYear,
		NumberEnc: numberEnc,
		IsPrimary: details.IsPrimary,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if card.IsPrimary {
			if err := tx.Cards().DemotePrimary(ctx, userID); err != nil {
				return err
			}
		}
		return tx.Cards().CreateCard(ctx, card)
	})
	if err != nil {
		return domain.Card{}, err
	}

	emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditCardSaved,
		fmt.Sprintf("card %s (%s ****%s) saved", card.ID, card.Brand, card.Last4), origin)
	slogx.FromContext(ctx).Info("card saved",
		slog.String("user_id", userID),
		slog.String("card_id", card.ID),
		slog.String("brand", string(card.Brand)),
	)

	// Callers get the stored shape minus the ciphertext.
	card.NumberEnc = nil
	return card, nil
}

// ListCards returns the user's active cards, primary first.
func (s *CardService) ListCards(ctx context.Context, userID string) ([]domain.Card, error) {
	cards, err := s.Store.Cards().ListCardsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].NumberEnc = nil
	}
	return cards, nil
}

// DeleteCard soft-deletes one of the user's cards. Ownership is enforced in
// the store query; a foreign card id fails like not-found on the wire but is
// recorded as an authentication failure.
func (s *CardService) DeleteCard(ctx context.Context, userID, cardID, origin string) error {
	now := s.now()

	if err := s.Store.Cards().DeactivateCard(ctx, cardID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if card, lookErr := s.Store.Cards().GetCardByID(ctx, cardID); lookErr == nil && card.UserID != userID {
				emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditCardAccessDenied,
					fmt.Sprintf("delete attempt on card %s belonging to another user", cardID), origin)
				return fmt.Errorf("%w: card not found", domain.ErrAuthentication)
			}
		}
		return err
	}

	emitAudit(ctx, s.Store.AuditEvents(), now, userID, domain.AuditCardDeleted,
		fmt.Sprintf("card %s deleted", cardID), origin)
	return nil
}
