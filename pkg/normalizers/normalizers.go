package normalizers

import "strings"

// Func normalizes a string value
type Func func(string) string

// Registry holds named string normalizers that can be chained from configuration
// (for example the field rules of the auto-link scorer). It is built once and
// read concurrently afterwards.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry returns a registry with the built-in normalizers
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	r.funcs["lowercase"] = strings.ToLower
	r.funcs["uppercase"] = strings.ToUpper
	r.funcs["trim"] = strings.TrimSpace
	r.funcs["collapse_whitespace"] = CollapseWhitespace
	r.funcs["remove_whitespace"] = RemoveWhitespace
	r.funcs["remove_punctuation"] = RemovePunctuation
	r.funcs["digits_only"] = DigitsOnly
	r.funcs["nphone"] = DigitsOnly
	r.funcs["alphanumeric"] = Alphanumeric
	r.funcs["fold_diacritics"] = FoldDiacritics
	r.funcs["nemail"] = func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	r.funcs["nname"] = NormalizeName
	r.funcs["naddress"] = func(s string) string { return strings.Join(AddressTokens(s), " ") }
	return r
}

// With returns a copy of the registry with an extra normalizer
func (r *Registry) With(name string, fn Func) *Registry {
	funcs := make(map[string]Func, len(r.funcs)+1)
	for k, v := range r.funcs {
		funcs[k] = v
	}
	funcs[name] = fn
	return &Registry{funcs: funcs}
}

// Get retrieves a normalizer by name
func (r *Registry) Get(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Apply applies a named normalizer; unknown names leave the value unchanged
func (r *Registry) Apply(value, name string) string {
	fn, ok := r.funcs[name]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies normalizers in sequence
func (r *Registry) ApplyChain(value string, names ...string) string {
	result := value
	for _, name := range names {
		result = r.Apply(result, name)
	}
	return result
}
