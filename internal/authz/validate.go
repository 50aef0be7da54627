package authz

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/accessd/accessd/internal/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals

// Validate checks the struct tags of a command or query input and reports
// violations as an InvalidArgument error.
func Validate(op string, in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.E(errs.InvalidArgument, op, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Namespace()+" failed "+fe.Tag())
	}

	return errs.E(errs.InvalidArgument, op, strings.Join(fields, "; "))
}
