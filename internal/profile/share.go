package profile

import (
	"math"
	"net/url"

	"github.com/josz5930/CDC-Value-For-You/pkg/constants"
)

// EncodeQuery builds the share-link query for in.
func EncodeQuery(in Input) url.Values {
	q := url.Values{}
	q.Set(constants.ParamAmount, in.VoucherAmount)
	q.Set(constants.ParamDenomination, in.VoucherDenomination)
	q.Set(constants.ParamSuperSpend, in.SupermarketSpend)
	q.Set(constants.ParamSuperVisits, in.SupermarketVisits)
	q.Set(constants.ParamHeartSpend, in.HeartlandSpend)
	q.Set(constants.ParamHeartVisits, in.HeartlandVisits)
	q.Set(constants.ParamWTP, in.WTPPercentage)
	return q
}

// HasShareParams reports whether q carries any share-link parameter.
func HasShareParams(q url.Values) bool {
	for _, p := range shareParams {
		if q.Has(p.name) {
			return true
		}
	}
	return false
}

type shareParam struct {
	name  string
	field func(*Input) *string
	valid func(float64) bool
}

var shareParams = []shareParam{
	{constants.ParamAmount, func(in *Input) *string { return &in.VoucherAmount },
		func(v float64) bool { return v > 0 && v <= constants.MaxVoucherTotal }},
	{constants.ParamDenomination, func(in *Input) *string { return &in.VoucherDenomination },
		func(v float64) bool { return v > 0 }},
	{constants.ParamSuperSpend, func(in *Input) *string { return &in.SupermarketSpend }, nonNegative},
	{constants.ParamSuperVisits, func(in *Input) *string { return &in.SupermarketVisits }, wholeNonNegative},
	{constants.ParamHeartSpend, func(in *Input) *string { return &in.HeartlandSpend }, nonNegative},
	{constants.ParamHeartVisits, func(in *Input) *string { return &in.HeartlandVisits }, wholeNonNegative},
	{constants.ParamWTP, func(in *Input) *string { return &in.WTPPercentage },
		func(v float64) bool { return v >= 0 && v <= constants.MaxWTPPercent }},
}

func nonNegative(v float64) bool { return v >= 0 }

func wholeNonNegative(v float64) bool {
	return v >= 0 && v <= constants.MaxVisits && v == math.Trunc(v)
}

// DecodeQuery overlays the share-link parameters in q onto base. A parameter is
// applied only if it sanitizes to a number inside its field's domain; anything
// else leaves the base value in place.
func DecodeQuery(base Input, q url.Values) Input {
	out := base
	for _, p := range shareParams {
		if !q.Has(p.name) {
			continue
		}
		sanitized := Sanitize(q.Get(p.name))
		v, ok := ParseNumber(sanitized)
		if !ok || !p.valid(v) {
			continue
		}
		*p.field(&out) = sanitized
	}
	return out
}
