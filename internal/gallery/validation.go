package gallery

import (
	"slices"
	"strings"

	"github.com/go-playground/validator"
)

const (
	FieldImage       = "image"
	FieldTitle       = "title"
	FieldDescription = "description"

	// MaxFileSize is exclusive: a file must be strictly smaller.
	MaxFileSize int64 = 10 * 1024 * 1024
)

var AcceptedFormats = []string{"image/jpeg", "image/png", "image/gif"}

type Violation int

const (
	ViolationNone Violation = iota
	ViolationRequired
	ViolationTooLarge
	ViolationUnsupportedType
	ViolationUploadFailed
)

func (v Violation) String() string {
	switch v {
	case ViolationNone:
		return "none"
	case ViolationRequired:
		return "required"
	case ViolationTooLarge:
		return "too_large"
	case ViolationUnsupportedType:
		return "unsupported_type"
	case ViolationUploadFailed:
		return "upload_failed"
	default:
		return "unknown"
	}
}

// FieldError is a validation failure attached to one form input.
type FieldError struct {
	Field     string    `json:"field"`
	Violation Violation `json:"violation"`
	Message   string    `json:"message"`
}

var validate = validator.New()

func ValidateFile(file *FileInfo) Violation {
	if file == nil {
		return ViolationRequired
	}
	if file.Size >= MaxFileSize {
		return ViolationTooLarge
	}
	if !slices.Contains(AcceptedFormats, file.ContentType) {
		return ViolationUnsupportedType
	}
	return ViolationNone
}

func ValidateTitle(title string) Violation {
	return validateRequiredText(title)
}

func ValidateDescription(description string) Violation {
	return validateRequiredText(description)
}

func validateRequiredText(value string) Violation {
	if err := validate.Var(strings.TrimSpace(value), "required"); err != nil {
		return ViolationRequired
	}
	return ViolationNone
}

// Validate returns the field errors of state in field order: image, title, description.
// An upload failure recorded on the file field is reported even if the file itself is acceptable.
func Validate(state *FormState) []FieldError {
	var errs []FieldError

	fileViolation := ValidateFile(state.File)
	if fileViolation == ViolationNone && state.FileError == ViolationUploadFailed {
		fileViolation = ViolationUploadFailed
	}
	if fileViolation != ViolationNone {
		errs = append(errs, newFieldError(FieldImage, fileViolation))
	}
	if v := ValidateTitle(state.Title); v != ViolationNone {
		errs = append(errs, newFieldError(FieldTitle, v))
	}
	if v := ValidateDescription(state.Description); v != ViolationNone {
		errs = append(errs, newFieldError(FieldDescription, v))
	}
	return errs
}

func CanSubmit(state *FormState) bool {
	return len(Validate(state)) == 0
}

func newFieldError(field string, violation Violation) FieldError {
	return FieldError{Field: field, Violation: violation, Message: message(field, violation)}
}

func message(field string, violation Violation) string {
	switch violation {
	case ViolationRequired:
		switch field {
		case FieldImage:
			return "Image file is required"
		case FieldTitle:
			return "Title is required"
		default:
			return "Description is required"
		}
	case ViolationTooLarge:
		return "The file must be smaller than 10MB"
	case ViolationUnsupportedType:
		return "Only PNG, JPEG and GIF files are accepted"
	case ViolationUploadFailed:
		return "Upload failed, choose the file again"
	default:
		return ""
	}
}
