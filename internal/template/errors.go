package template

import "errors"

var errEmptyRequiredField = errors.New("required field selected but empty after processing")

// ErrNoMatch indicates no template, including the universal one, matched a document.
var ErrNoMatch = errors.New("template: no template matched document")
