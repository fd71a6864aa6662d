package protocol

// Default decoding limits.
const (
	// DefaultMaxMessageSize bounds one encoded response.
	DefaultMaxMessageSize = 4 << 20

	// DefaultMaxDataDepth bounds the nesting of response data.
	DefaultMaxDataDepth = 64
)

// Limits bounds what a codec accepts from the remote side.
type Limits struct {
	MaxMessageSize int
	MaxDataDepth   int
}

// DefaultLimits returns the default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxMessageSize: DefaultMaxMessageSize,
		MaxDataDepth:   DefaultMaxDataDepth,
	}
}

// checkDepth walks decoded maps and slices and fails past max.
func checkDepth(v any, depth, max int) error {
	if depth > max {
		return ErrMaxDepthExceeded
	}
	switch x := v.(type) {
	case map[string]any:
		for _, item := range x {
			if err := checkDepth(item, depth+1, max); err != nil {
				return err
			}
		}
	case []any:
		for _, item := range x {
			if err := checkDepth(item, depth+1, max); err != nil {
				return err
			}
		}
	}
	return nil
}
