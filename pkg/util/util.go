package util

// Must returns t, panicking if err is non-nil. Only for setup code where a failure is a programming error.
func Must[T any](t T, err error) T {
	if err != nil {
		panic(err)
	}
	return t
}
