package constraint

// Kind is the closed set of constraints a declaration can name. The declared
// order is the scan order: options, statuses and failure reasons are always
// reported in it, regardless of the order tokens appear in a declaration.
type Kind int

const (
	KindRequired Kind = iota
	KindMin
	KindMax
	KindMinLength
	KindMaxLength
	KindChecked

	kindCount
)

// Declaration tokens recognised by ParseDirective and Resolve.
const (
	TokenRequired  = "required"
	TokenMin       = "min"
	TokenMax       = "max"
	TokenMinLength = "min:length"
	TokenMaxLength = "max:length"
	TokenChecked   = "checked"
)

// State keys used in serialized options and statuses, and as failure reasons.
const (
	KeyRequired  = "required"
	KeyMin       = "min"
	KeyMax       = "max"
	KeyMinLength = "minLength"
	KeyMaxLength = "maxLength"
	KeyChecked   = "checked"
)

var kindTokens = [kindCount]string{
	KindRequired:  TokenRequired,
	KindMin:       TokenMin,
	KindMax:       TokenMax,
	KindMinLength: TokenMinLength,
	KindMaxLength: TokenMaxLength,
	KindChecked:   TokenChecked,
}

var kindKeys = [kindCount]string{
	KindRequired:  KeyRequired,
	KindMin:       KeyMin,
	KindMax:       KeyMax,
	KindMinLength: KeyMinLength,
	KindMaxLength: KeyMaxLength,
	KindChecked:   KeyChecked,
}

// Kinds returns every kind in scan order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Token returns the declaration token for k (e.g. "min:length").
func (k Kind) Token() string {
	if !k.Valid() {
		return ""
	}
	return kindTokens[k]
}

// Key returns the state key for k (e.g. "minLength").
func (k Kind) Key() string {
	if !k.Valid() {
		return ""
	}
	return kindKeys[k]
}

// String implements fmt.Stringer using the state key.
func (k Kind) String() string {
	if key := k.Key(); key != "" {
		return key
	}
	return "unknown"
}

// Parameterized reports whether k takes a numeric argument token.
func (k Kind) Parameterized() bool {
	switch k {
	case KindMin, KindMax, KindMinLength, KindMaxLength:
		return true
	default:
		return false
	}
}

// KindFromToken maps a declaration token onto its kind.
func KindFromToken(token string) (Kind, bool) {
	for k, candidate := range kindTokens {
		if candidate == token {
			return Kind(k), true
		}
	}
	return 0, false
}

// KindFromKey maps a state key onto its kind.
func KindFromKey(key string) (Kind, bool) {
	for k, candidate := range kindKeys {
		if candidate == key {
			return Kind(k), true
		}
	}
	return 0, false
}

// Lookup accepts either a state key or a declaration token.
func Lookup(name string) (Kind, bool) {
	if k, ok := KindFromKey(name); ok {
		return k, true
	}
	return KindFromToken(name)
}
