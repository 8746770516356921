package downloader

import (
	"errors"
	"fmt"
)

// Category classifies a failure for the HTTP layer. Everything that can
// go wrong before streaming begins falls into one of these buckets.
type Category int

const (
	// CategoryInvalidInput is a client error: malformed URL or an
	// unrecognized quality selector. Never retried.
	CategoryInvalidInput Category = iota
	// CategoryExtraction covers every upstream failure: unsupported
	// site, removed or private content, network errors reaching the
	// platform, anti-bot rejections.
	CategoryExtraction
	// CategoryMux means the local audio/video combination failed,
	// typically a missing or broken ffmpeg binary.
	CategoryMux
	// CategoryBusy means the admission limiter rejected the request.
	CategoryBusy
)

type categorizedError struct {
	category Category
	err      error
}

func (e *categorizedError) Error() string { return e.err.Error() }
func (e *categorizedError) Unwrap() error { return e.err }

func wrapCategory(cat Category, err error) error {
	if err == nil {
		return nil
	}
	return &categorizedError{category: cat, err: err}
}

func invalidInputf(format string, args ...any) error {
	return wrapCategory(CategoryInvalidInput, fmt.Errorf(format, args...))
}

// errNoFormats means the probe succeeded but reported nothing usable.
var errNoFormats = errors.New("no downloadable formats available")

// CategoryOf reports the failure category of err, walking the wrap
// chain. ok is false for uncategorized errors.
func CategoryOf(err error) (Category, bool) {
	var ce *categorizedError
	if errors.As(err, &ce) {
		return ce.category, true
	}
	return 0, false
}

// ensureCategory assigns cat to errors a collaborator failed to
// classify, leaving already-categorized ones untouched.
func ensureCategory(err error, cat Category) error {
	if err == nil {
		return nil
	}
	if _, ok := CategoryOf(err); ok {
		return err
	}
	return wrapCategory(cat, err)
}
