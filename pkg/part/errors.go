package part

import "fmt"

// AttributeErrorKind distinguishes the ways SetAttribute can fail.
type AttributeErrorKind int

const (
	// UnknownAttribute means the name is not declared on the part's template.
	UnknownAttribute AttributeErrorKind = iota
	// OutOfDomain means the new value violates the attribute's declared domain.
	OutOfDomain
)

func (k AttributeErrorKind) String() string {
	switch k {
	case UnknownAttribute:
		return "unknown attribute"
	case OutOfDomain:
		return "out of domain"
	default:
		return fmt.Sprintf("AttributeErrorKind(%d)", int(k))
	}
}

// AttributeError reports a rejected SetAttribute call. The part's
// geometry is untouched when one of these is returned.
type AttributeError struct {
	Kind      AttributeErrorKind
	Part      ID
	Attribute string
	Message   string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("%s: part %s attribute %q: %s", e.Kind, e.Part, e.Attribute, e.Message)
}

// TemplateError reports an invalid template definition, found at
// build time rather than at solve time.
type TemplateError struct {
	Template string
	Message  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %s", e.Template, e.Message)
}
