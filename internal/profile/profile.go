// Package profile turns free-text form input into a validated usage profile and
// encodes it for share links.
package profile

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
	"github.com/josz5930/CDC-Value-For-You/pkg/valuation"
)

// Input holds the raw form fields as typed by the user.
type Input struct {
	VoucherAmount       string `json:"voucherAmount" yaml:"voucherAmount" mapstructure:"voucherAmount"`
	VoucherDenomination string `json:"voucherDenomination" yaml:"voucherDenomination" mapstructure:"voucherDenomination"`
	SupermarketSpend    string `json:"supermarketSpend" yaml:"supermarketSpend" mapstructure:"supermarketSpend"`
	SupermarketVisits   string `json:"supermarketVisits" yaml:"supermarketVisits" mapstructure:"supermarketVisits"`
	HeartlandSpend      string `json:"heartlandSpend" yaml:"heartlandSpend" mapstructure:"heartlandSpend"`
	HeartlandVisits     string `json:"heartlandVisits" yaml:"heartlandVisits" mapstructure:"heartlandVisits"`
	WTPPercentage       string `json:"wtpPercentage" yaml:"wtpPercentage" mapstructure:"wtpPercentage"`
}

// Defaults returns the form's initial values.
func Defaults() Input {
	return FromProfile(valuation.UsageProfile{
		VoucherTotal: constants.DefaultVoucherTotal,
		Denomination: constants.DefaultDenomination,
		CategoryA: valuation.Category{
			SpendPerVisit: constants.DefaultSupermarketSpend,
			Visits:        constants.DefaultSupermarketVisits,
		},
		CategoryB: valuation.Category{
			SpendPerVisit: constants.DefaultHeartlandSpend,
			Visits:        constants.DefaultHeartlandVisits,
		},
		WTPPercent: constants.DefaultWTPPercent,
	})
}

// FromProfile renders a profile back into form fields.
func FromProfile(p valuation.UsageProfile) Input {
	return Input{
		VoucherAmount:       formatNumber(p.VoucherTotal),
		VoucherDenomination: formatNumber(p.Denomination),
		SupermarketSpend:    formatNumber(p.CategoryA.SpendPerVisit),
		SupermarketVisits:   strconv.Itoa(p.CategoryA.Visits),
		HeartlandSpend:      formatNumber(p.CategoryB.SpendPerVisit),
		HeartlandVisits:     strconv.Itoa(p.CategoryB.Visits),
		WTPPercentage:       formatNumber(p.WTPPercent),
	}
}

// Merge returns in with every empty field filled from base.
func (in Input) Merge(base Input) Input {
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	return Input{
		VoucherAmount:       pick(in.VoucherAmount, base.VoucherAmount),
		VoucherDenomination: pick(in.VoucherDenomination, base.VoucherDenomination),
		SupermarketSpend:    pick(in.SupermarketSpend, base.SupermarketSpend),
		SupermarketVisits:   pick(in.SupermarketVisits, base.SupermarketVisits),
		HeartlandSpend:      pick(in.HeartlandSpend, base.HeartlandSpend),
		HeartlandVisits:     pick(in.HeartlandVisits, base.HeartlandVisits),
		WTPPercentage:       pick(in.WTPPercentage, base.WTPPercentage),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	htmlTagPattern      = regexp.MustCompile(`<[^>]*>`)
	scriptSchemePattern = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+=`)
)

// Sanitize strips markup from raw and keeps only the characters of a decimal
// number: digits, the first '.', and a '-' in leading position.
func Sanitize(raw string) string {
	sanitized := strings.TrimSpace(raw)
	if sanitized == "" {
		return ""
	}

	sanitized = htmlTagPattern.ReplaceAllString(sanitized, "")
	sanitized = scriptSchemePattern.ReplaceAllString(sanitized, "")
	sanitized = eventHandlerPattern.ReplaceAllString(sanitized, "")

	var b strings.Builder
	hasDecimal := false
	for i, ch := range sanitized {
		switch {
		case ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch == '.' && !hasDecimal:
			b.WriteRune(ch)
			hasDecimal = true
		case ch == '-' && i == 0:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// ParseNumber sanitizes raw and parses it. ok is false when nothing numeric remains.
func ParseNumber(raw string) (value float64, ok bool) {
	s := Sanitize(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FieldError describes why one form field was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field. It wraps valuation.ErrInvalidInput.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("%v: %s", valuation.ErrInvalidInput, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return valuation.ErrInvalidInput
}

// Message returns the error for field, or "" if it passed.
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// Field names as reported in FieldError.
const (
	FieldVoucherAmount       = "voucherAmount"
	FieldVoucherDenomination = "voucherDenomination"
	FieldSupermarketSpend    = "supermarketSpend"
	FieldSupermarketVisits   = "supermarketVisits"
	FieldHeartlandSpend      = "heartlandSpend"
	FieldHeartlandVisits     = "heartlandVisits"
	FieldWTPPercentage       = "wtpPercentage"
)

const msgInvalidNumber = "Please enter a valid number"

// numbers mirrors Input after parsing; the tags hold the per-field domain rules.
// The visit bound matches constants.MaxVisits.
type numbers struct {
	VoucherAmount       float64 `field:"voucherAmount" validate:"gt=0,lte=2000"`
	VoucherDenomination float64 `field:"voucherDenomination" validate:"gt=0"`
	SupermarketSpend    float64 `field:"supermarketSpend" validate:"gte=0"`
	SupermarketVisits   float64 `field:"supermarketVisits" validate:"gte=0,lte=1000,whole"`
	HeartlandSpend      float64 `field:"heartlandSpend" validate:"gte=0"`
	HeartlandVisits     float64 `field:"heartlandVisits" validate:"gte=0,lte=1000,whole"`
	WTPPercentage       float64 `field:"wtpPercentage" validate:"gte=0,lte=100"`
}

type fieldRef struct {
	field string
	value string
	dest  *float64
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
	_ = v.RegisterValidation("whole", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f == math.Trunc(f)
	})
	return v
}

// Parse sanitizes and validates every field of in. On failure the returned
// error is a *ValidationError naming each rejected field.
func Parse(in Input) (valuation.UsageProfile, error) {
	var n numbers
	raw := []fieldRef{
		{FieldVoucherAmount, in.VoucherAmount, &n.VoucherAmount},
		{FieldVoucherDenomination, in.VoucherDenomination, &n.VoucherDenomination},
		{FieldSupermarketSpend, in.SupermarketSpend, &n.SupermarketSpend},
		{FieldSupermarketVisits, in.SupermarketVisits, &n.SupermarketVisits},
		{FieldHeartlandSpend, in.HeartlandSpend, &n.HeartlandSpend},
		{FieldHeartlandVisits, in.HeartlandVisits, &n.HeartlandVisits},
		{FieldWTPPercentage, in.WTPPercentage, &n.WTPPercentage},
	}

	unparsed := make(map[string]bool)
	verr := &ValidationError{}
	for _, r := range raw {
		v, ok := ParseNumber(r.value)
		if !ok {
			unparsed[r.field] = true
			verr.Fields = append(verr.Fields, FieldError{Field: r.field, Message: msgInvalidNumber})
			continue
		}
		*r.dest = v
	}

	if err := validate.Struct(n); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return valuation.UsageProfile{}, fmt.Errorf("%w: %v", valuation.ErrInvalidInput, err)
		}
		for _, fe := range errs {
			if unparsed[fe.Field()] {
				continue
			}
			verr.Fields = append(verr.Fields, FieldError{Field: fe.Field(), Message: ruleMessage(fe.Field(), fe.Tag())})
		}
	}

	if len(verr.Fields) > 0 {
		sortFields(verr.Fields)
		return valuation.UsageProfile{}, verr
	}

	return valuation.UsageProfile{
		VoucherTotal: n.VoucherAmount,
		Denomination: n.VoucherDenomination,
		CategoryA: valuation.Category{
			SpendPerVisit: n.SupermarketSpend,
			Visits:        int(n.SupermarketVisits),
		},
		CategoryB: valuation.Category{
			SpendPerVisit: n.HeartlandSpend,
			Visits:        int(n.HeartlandVisits),
		},
		WTPPercent: n.WTPPercentage,
	}, nil
}

func ruleMessage(field, tag string) string {
	switch {
	case field == FieldWTPPercentage:
		return "Must be between 0 and 100"
	case tag == "gt":
		return "Must be greater than 0"
	case tag == "lte" && field == FieldVoucherAmount:
		return fmt.Sprintf("Must not exceed $%d", int(constants.MaxVoucherTotal))
	case tag == "lte":
		return fmt.Sprintf("Must not exceed %d", constants.MaxVisits)
	case tag == "whole":
		return "Must be a whole number"
	default:
		return "Must be 0 or greater"
	}
}

var fieldOrder = map[string]int{
	FieldVoucherAmount:       0,
	FieldVoucherDenomination: 1,
	FieldSupermarketSpend:    2,
	FieldSupermarketVisits:   3,
	FieldHeartlandSpend:      4,
	FieldHeartlandVisits:     5,
	FieldWTPPercentage:       6,
}

// sortFields orders errors as the fields appear on the form.
func sortFields(fields []FieldError) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fieldOrder[fields[i].Field] < fieldOrder[fields[j].Field]
	})
}
