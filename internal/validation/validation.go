package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrAmountNotInteger is returned when the count parameter is not a base-10 integer.
var ErrAmountNotInteger = errors.New("count must be an integer")

// ErrAmountNegative is returned when the count parameter is below zero.
var ErrAmountNegative = errors.New("count must not be negative")

// ErrAmountTooLarge is returned when the count parameter exceeds the configured maximum.
var ErrAmountTooLarge = errors.New("count too large")

var validate = validator.New()

// ParseAmount parses the raw count query value. Empty input (after trim) yields def.
// maxAmount <= 0 disables the upper bound. Errors are suitable for 400 INVALID_AMOUNT responses.
func ParseAmount(raw string, def, maxAmount int) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrAmountNotInteger, s)
	}
	if err := validate.Var(n, "gte=0"); err != nil {
		return 0, ErrAmountNegative
	}
	if maxAmount > 0 {
		if err := validate.Var(n, "lte="+strconv.Itoa(maxAmount)); err != nil {
			return 0, fmt.Errorf("%w: max %d", ErrAmountTooLarge, maxAmount)
		}
	}
	return n, nil
}
