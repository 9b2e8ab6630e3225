package retry

type fn func() error
type shouldRetry func(err error, attempt int) bool

// Wrap - wraps the given function, retries it as long as it fails and
// shouldRetry returns true.
func Wrap(f fn, shouldRetry shouldRetry) fn {
	return func() error {
		attempt := 0

		for {
			err := f()
			if err == nil {
				return nil
			}

			attempt++

			if !shouldRetry(err, attempt) {
				return err
			}
		}
	}
}
