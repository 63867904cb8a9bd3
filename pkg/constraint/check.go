package constraint

import "github.com/goliatone/go-formcheck/internal/coerce"

// CheckFunc decides whether value satisfies a constraint with parameter
// param. Flag constraints ignore param.
type CheckFunc func(value any, param float64) bool

var checks = [kindCount]CheckFunc{
	KindRequired:  checkPresent,
	KindMin:       checkMin,
	KindMax:       checkMax,
	KindMinLength: checkMinLength,
	KindMaxLength: checkMaxLength,
	// checked shares required's semantics but stays a separate kind so the
	// reported reason matches the declared name.
	KindChecked: checkPresent,
}

// Check runs the check for k. Unknown kinds pass.
func Check(k Kind, value any, param float64) bool {
	if !k.Valid() {
		return true
	}
	return checks[k](value, param)
}

func checkPresent(value any, _ float64) bool {
	return coerce.Truthy(value)
}

func checkMin(value any, param float64) bool {
	n, ok := coerce.Number(value)
	return ok && n >= param
}

func checkMax(value any, param float64) bool {
	n, ok := coerce.Number(value)
	return ok && n <= param
}

func checkMinLength(value any, param float64) bool {
	return float64(coerce.Length(value)) >= param
}

func checkMaxLength(value any, param float64) bool {
	return float64(coerce.Length(value)) <= param
}
