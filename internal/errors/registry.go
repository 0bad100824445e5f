package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Capture errors (G001-G019)

	"G001": {
		Category: CategoryCapture,
		Message:  "Reactive body captures enclosing binding",
		Detail: "A reactive boundary body may only reference package-level declarations, " +
			"its own parameters, and bindings it declares itself. Pass outer values " +
			"through the state store or the body's argument instead of closing over them.",
	},
	"G002": {
		Category: CategoryCapture,
		Message:  "Source file could not be analyzed",
		Detail:   "The file failed to parse, so its boundary bodies were not checked.",
	},

	// Validation errors (G020-G039)

	"G020": {
		Category: CategoryValidation,
		Message:  "Malformed canonical dataset key",
		Detail:   "The key string does not follow the length-prefixed canonical encoding.",
	},

	// CLI errors (G040-G059)

	"G040": {
		Category: CategoryCLI,
		Message:  "Blob root directory not accessible",
		Detail:   "The directory passed to --root must exist or be creatable.",
	},
}
