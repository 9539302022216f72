package livefeed

import "fmt"

// NewProvider returns the provider registered under name. The real
// protocol client adds its name here when it lands; until then only the
// simulated provider exists, and anything else is a configuration error.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "sim":
		return NewSimProvider(), nil
	default:
		return nil, fmt.Errorf("unknown livefeed provider %q", name)
	}
}
