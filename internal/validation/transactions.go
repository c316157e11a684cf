package validation

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/melnicenkovadik/my-tax-calculator/internal/domain"
	"github.com/melnicenkovadik/my-tax-calculator/pkg/dateutil"
)

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidTemplate    = errors.New("invalid template")
)

var (
	validate         = validator.New()
	strictHTMLPolicy = bluemonday.StrictPolicy()
)

// TransactionInput is a transaction as submitted by a user or an import file.
type TransactionInput struct {
	ID          string               `json:"id,omitempty" yaml:"id,omitempty"`
	Date        string               `json:"date" yaml:"date" validate:"required"`
	Amount      domain.NumericString `json:"amount" yaml:"amount" validate:"required"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty" validate:"max=500"`
	Sender      string               `json:"sender,omitempty" yaml:"sender,omitempty" validate:"max=200"`
	BillTo      string               `json:"billTo,omitempty" yaml:"bill_to,omitempty" validate:"max=200"`
	Notes       string               `json:"notes,omitempty" yaml:"notes,omitempty" validate:"max=2000"`
	Causale     string               `json:"causale,omitempty" yaml:"causale,omitempty" validate:"max=500"`
}

// TemplateInput is a transaction template as submitted by a user.
type TemplateInput struct {
	Name   string `json:"name" yaml:"name" validate:"required,max=200"`
	Sender string `json:"sender,omitempty" yaml:"sender,omitempty" validate:"max=200"`
	BillTo string `json:"billTo,omitempty" yaml:"bill_to,omitempty" validate:"max=200"`
	Notes  string `json:"notes,omitempty" yaml:"notes,omitempty" validate:"max=2000"`
}

// NormalizeTransaction cleans the free text fields, checks the required ones
// and converts date and amount to their canonical form. The ID is passed
// through untouched; callers decide whether to keep it (see IsTransactionID).
func NormalizeTransaction(in TransactionInput) (domain.RevenueTransaction, error) {
	in = TransactionInput{
		ID:          strings.TrimSpace(in.ID),
		Date:        strings.TrimSpace(in.Date),
		Amount:      domain.NumericString(strings.TrimSpace(string(in.Amount))),
		Description: SanitizeText(in.Description),
		Sender:      SanitizeText(in.Sender),
		BillTo:      SanitizeText(in.BillTo),
		Notes:       SanitizeText(in.Notes),
		Causale:     SanitizeText(in.Causale),
	}
	if err := validate.Struct(in); err != nil {
		return domain.RevenueTransaction{}, fmt.Errorf("%w: %s", ErrInvalidTransaction, describe(err))
	}

	date, ok := dateutil.NormalizeDate(in.Date)
	if !ok {
		return domain.RevenueTransaction{}, fmt.Errorf("%w: unrecognised date %q", ErrInvalidTransaction, in.Date)
	}
	amount, ok := ParseNumber(string(in.Amount))
	if !ok {
		return domain.RevenueTransaction{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidTransaction, in.Amount)
	}

	return domain.RevenueTransaction{
		ID:          in.ID,
		Date:        date,
		Amount:      amount,
		Description: in.Description,
		Sender:      in.Sender,
		BillTo:      in.BillTo,
		Notes:       in.Notes,
		Causale:     in.Causale,
	}, nil
}

// NormalizeTemplate trims and sanitizes a template. The name must not be
// blank.
func NormalizeTemplate(in TemplateInput) (domain.TransactionTemplate, error) {
	in = TemplateInput{
		Name:   SanitizeText(in.Name),
		Sender: SanitizeText(in.Sender),
		BillTo: SanitizeText(in.BillTo),
		Notes:  SanitizeText(in.Notes),
	}
	if err := validate.Struct(in); err != nil {
		return domain.TransactionTemplate{}, fmt.Errorf("%w: %s", ErrInvalidTemplate, describe(err))
	}
	return domain.TransactionTemplate{
		Name:   in.Name,
		Sender: in.Sender,
		BillTo: in.BillTo,
		Notes:  in.Notes,
	}, nil
}

// IsTransactionID reports whether id is an RFC 4122 UUID of version 1-5, the
// only client supplied IDs the store accepts.
func IsTransactionID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil || len(id) != 36 {
		return false
	}
	v := parsed.Version()
	return v >= 1 && v <= 5 && parsed.Variant() == uuid.RFC4122
}

// SanitizeText removes every HTML tag and control character and trims the
// result. Entities escaped by the policy are decoded again so that "R&D"
// stays "R&D".
func SanitizeText(s string) string {
	cleaned := strictHTMLPolicy.Sanitize(StripUnprintable(s))
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// SanitizeForFormulaInjection prefixes a quote when a spreadsheet would
// interpret the cell as a formula.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// StripUnprintable drops non-printable runes but keeps tabs and newlines.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
