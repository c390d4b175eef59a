package utils

// Recover calls fn and converts a panic into an error.
func Recover(fn func() error) (finalErr error) {
	defer func() {
		if e := recover(); e != nil {
			finalErr = ConvertPanicValueToError(e)
		}
	}()
	return fn()
}
