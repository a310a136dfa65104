package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrNotFound
	ErrInvalid
	ErrUnknownLabel
	ErrGeneration
	ErrPersist
	ErrInternal
	ErrBodyTooLarge
)
