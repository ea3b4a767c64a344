package errors

// Error codes for the router contracts. Keep stable; used across adapters and the notifier.
const (
	ErrCodeTagLookupFailed     = "healthrouter.tag_lookup_failed"
	ErrCodeListChannelsFailed  = "healthrouter.list_channels_failed"
	ErrCodeDispatchFailed      = "healthrouter.dispatch_failed"
	ErrCodeSerializationFailed = "healthrouter.serialization_failed"
	ErrCodeMalformedEvent      = "healthrouter.malformed_event"
	ErrCodeInvalidConfig       = "healthrouter.invalid_config"
	ErrCodeNotConfigured       = "healthrouter.not_configured"
	ErrCodeUnknownTarget       = "healthrouter.unknown_target"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrTagLookupFailed     = Code(ErrCodeTagLookupFailed)
	ErrListChannelsFailed  = Code(ErrCodeListChannelsFailed)
	ErrDispatchFailed      = Code(ErrCodeDispatchFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrMalformedEvent      = Code(ErrCodeMalformedEvent)
	ErrInvalidConfig       = Code(ErrCodeInvalidConfig)
	ErrNotConfigured       = Code(ErrCodeNotConfigured)
	ErrUnknownTarget       = Code(ErrCodeUnknownTarget)
)
