package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Explain  string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (M001-M019)
	"M001": {
		Category: CategoryConfig,
		Message:  "Component root not found",
		Explain:  "A component was declared but no element in the document carries its id attribute. The component cannot be constructed.",
	},
	"M002": {
		Category: CategoryConfig,
		Message:  "Component already registered",
		Explain:  "Two components were mounted with the same id. Component ids must be unique within a document.",
	},
	"M003": {
		Category: CategoryConfig,
		Message:  "Invalid component data",
		Explain:  "The component's data attribute is not a JSON object.",
	},
	"M004": {
		Category: CategoryConfig,
		Message:  "Markup could not be parsed",
	},

	// Protocol (M020-M029)
	"M020": {
		Category: CategoryProtocol,
		Message:  "Remote process returned an error",
		Explain:  "The response carried an error field. The cycle was aborted and the unacknowledged actions were returned to the queue.",
	},
	"M021": {
		Category: CategoryProtocol,
		Message:  "Malformed response frame",
		Explain:  "A frame from the remote process could not be decoded.",
	},
	"M022": {
		Category: CategoryProtocol,
		Message:  "Reconciliation failed",
		Explain:  "The returned markup could not be applied to the component tree.",
	},

	// Sync (M030-M039)
	"M030": {
		Category: CategorySync,
		Message:  "Stale response discarded",
		Explain:  "The response arrived after newer local actions were queued. It was dropped so that it is never applied out of order.",
	},
	"M031": {
		Category: CategorySync,
		Message:  "Response for unknown component",
		Explain:  "No registered component has the response's id. The component may have been removed from the document.",
	},
	"M032": {
		Category: CategorySync,
		Message:  "Event target not found",
		Explain:  "No element inside the component matches the requested id, key or model name.",
	},

	// Transport (M040-M049)
	"M040": {
		Category: CategoryTransport,
		Message:  "Connection failed",
	},
	"M041": {
		Category: CategoryTransport,
		Message:  "Transport closed",
	},
	"M042": {
		Category: CategoryTransport,
		Message:  "Send failed",
	},

	// Config files (M050-M059)
	"M050": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be read",
	},
	"M051": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// CLI (M060-M069)
	"M060": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
