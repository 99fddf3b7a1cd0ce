package logging

// ValueOr returns def iff ok is false, otherwise v. It gives argument
// accessors an ergonomic default-value form: ValueOr(arg.AsI64()).
func ValueOr[T any](v T, ok bool, def T) T {
	if !ok {
		return def
	}
	return v
}
