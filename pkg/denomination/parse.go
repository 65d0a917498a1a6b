package denomination

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseUnit parses a stack written as "QUANTITYxFACE", e.g. "15x2" or "6x$10".
func ParseUnit(stack string) (Unit, error) {
	trimmed := strings.ToLower(strings.TrimSpace(stack))
	qtyPart, facePart, ok := strings.Cut(trimmed, "x")
	if !ok {
		return Unit{}, fmt.Errorf("invalid voucher stack %q: expected QUANTITYxFACE", stack)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(qtyPart))
	if err != nil || qty < 0 {
		return Unit{}, fmt.Errorf("invalid voucher quantity in %q", stack)
	}

	face, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(facePart), "$"), 64)
	if err != nil || face <= 0 {
		return Unit{}, fmt.Errorf("invalid voucher face value in %q", stack)
	}

	return Unit{FaceValue: face, Quantity: qty}, nil
}

// ParseUnits parses every stack with ParseUnit.
func ParseUnits(stacks []string) ([]Unit, error) {
	units := make([]Unit, 0, len(stacks))
	for _, stack := range stacks {
		u, err := ParseUnit(stack)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, nil
}

// String renders the stack in the form accepted by ParseUnit.
func (u Unit) String() string {
	return fmt.Sprintf("%dx%s", u.Quantity, strconv.FormatFloat(u.FaceValue, 'f', -1, 64))
}
