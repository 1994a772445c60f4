package domain

import "errors"

// Error kinds surfaced by the core. Callers distinguish them with errors.Is;
// wrapping sites attach detail with fmt.Errorf("...: %w", Err...).
var (
	// ErrUnsupportedFileFormat is returned for uploads whose extension is
	// neither .txt nor .pdf.
	ErrUnsupportedFileFormat = errors.New("unsupported file format")

	// ErrMalformedExtraction is returned when the text-understanding service
	// replies with output that does not conform to the requested schema.
	ErrMalformedExtraction = errors.New("malformed extraction response")

	// ErrExtractionUnavailable is returned after the bounded retries against
	// the text-understanding service are exhausted.
	ErrExtractionUnavailable = errors.New("extraction service unavailable")

	// ErrInvalidDateFormat is returned when a date text matches none of the
	// accepted formats.
	ErrInvalidDateFormat = errors.New("invalid date format")

	// ErrFutureDate is returned for dates strictly later than today.
	ErrFutureDate = errors.New("future date in record")

	// ErrCategoryExists is returned by the explicit category-creation path
	// when an active category of that name already exists for the user.
	ErrCategoryExists = errors.New("category already exists")

	// ErrCategoryNotFoundOrProtected is returned when a delete target is
	// missing, owned by someone else, system-owned, or already deleted.
	ErrCategoryNotFoundOrProtected = errors.New("category not found or protected")

	// ErrPersistence wraps storage-level failures during commit.
	ErrPersistence = errors.New("persistence failure")
)
