package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/recur-sync/internal/domain"
)

const (
	maxNameRunes  = 100
	maxNotesRunes = 2000
	dateLayout    = "2006-01-02"
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// validateDraft rejects drafts the queue could never replay.
func validateDraft(d NewAction) error {
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidAction, d.Type)
	}
	if !d.Entity.Valid() {
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidAction, d.Entity)
	}
	if !Supported(d.Entity, d.Type) {
		return fmt.Errorf("%w: %s %s", ErrUnsupportedAction, d.Type, d.Entity)
	}
	trimmed := bytes.TrimSpace(d.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || !json.Valid(trimmed) {
		return fmt.Errorf("%w: data must be a JSON document", ErrInvalidAction)
	}
	if d.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidAction)
	}
	return checkPayload(d.Entity, d.Type, trimmed)
}

// normalizeText applies NFC and collapses runs of whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func normalizeName(s string) (string, error) {
	s = normalizeText(s)
	if s == "" || utf8.RuneCountInString(s) > maxNameRunes {
		return "", ErrInvalidName
	}
	return s, nil
}

// normalizeCurrency returns the canonical upper-case ISO 4217 code.
func normalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return unit.String(), nil
}

// NormalizeSubscription validates s in place. requireID is set for updates.
func NormalizeSubscription(s *domain.Subscription, requireID bool) error {
	if requireID && s.ID == "" {
		return ErrMissingID
	}
	name, err := normalizeName(s.Name)
	if err != nil {
		return err
	}
	s.Name = name

	if s.Amount < 0 || math.IsNaN(s.Amount) || math.IsInf(s.Amount, 0) {
		return ErrInvalidAmount
	}
	if s.Currency, err = normalizeCurrency(s.Currency); err != nil {
		return err
	}

	s.BillingCycle = domain.BillingCycle(strings.ToLower(strings.TrimSpace(string(s.BillingCycle))))
	if s.BillingCycle == "" {
		s.BillingCycle = domain.BillingMonthly
	}
	if !s.BillingCycle.Valid() {
		return ErrInvalidBillingCycle
	}

	if s.NextBillingDate = strings.TrimSpace(s.NextBillingDate); s.NextBillingDate != "" {
		if _, err := time.Parse(dateLayout, s.NextBillingDate); err != nil {
			return fmt.Errorf("%w: next_billing_date must be YYYY-MM-DD", ErrInvalidPayload)
		}
	}

	s.Notes = strings.TrimSpace(norm.NFC.String(s.Notes))
	if utf8.RuneCountInString(s.Notes) > maxNotesRunes {
		return fmt.Errorf("%w: notes too long", ErrInvalidPayload)
	}
	return nil
}

// NormalizeCategory validates c in place. requireID is set for updates.
func NormalizeCategory(c *domain.Category, requireID bool) error {
	if requireID && c.ID == "" {
		return ErrMissingID
	}
	name, err := normalizeName(c.Name)
	if err != nil {
		return err
	}
	c.Name = name

	if c.Color = strings.TrimSpace(c.Color); c.Color != "" {
		if !colorRe.MatchString(c.Color) {
			return ErrInvalidColor
		}
		c.Color = strings.ToLower(c.Color)
	}
	return nil
}

// NormalizeProfile validates the fields present in p.
func NormalizeProfile(p *domain.UserProfile) error {
	if p.Name != "" {
		name, err := normalizeName(p.Name)
		if err != nil {
			return err
		}
		p.Name = name
	}
	if p.Email = strings.TrimSpace(p.Email); p.Email != "" {
		addr, err := mail.ParseAddress(p.Email)
		if err != nil || addr.Address != p.Email {
			return ErrInvalidEmail
		}
	}
	if p.DefaultCurrency != "" {
		code, err := normalizeCurrency(p.DefaultCurrency)
		if err != nil {
			return err
		}
		p.DefaultCurrency = code
	}
	return nil
}
