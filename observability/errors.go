package observability

import "errors"

// Validation errors returned by Config.Validate and NewProvider.
var (
	ErrNilConfig          = errors.New("observability: nil config")
	ErrMissingServiceName = errors.New("observability: service.name is required when enabled")
	ErrInvalidSampleRate  = errors.New("observability: trace.sample.rate must be within [0, 1]")
	ErrInvalidProtocol    = errors.New("observability: protocol must be http or grpc")
	// ErrInvalidEndpointFormat covers grpc endpoints with a scheme and http endpoints without one.
	ErrInvalidEndpointFormat = errors.New("observability: endpoint does not match protocol")
	ErrInvalidCompression    = errors.New("observability: compression must be gzip or none")
)
