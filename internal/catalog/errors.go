package catalog

import "fmt"

// ConfigurationError reports an invalid engine input such as a non-positive page size.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("catalog: invalid %s: %s", e.Field, e.Message)
}
