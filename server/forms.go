package server

import (
	"net/http"
	"strings"

	"github.com/Daskott/phonebook/server/session"
	"github.com/go-playground/validator"
)

const FORM_KEY_FIELD = "_formkey"

type FormState int

const (
	FormInitial FormState = iota
	FormRejected
	FormAccepted
)

var validationMessages = map[string]string{
	"required": "Enter a value",
	"email":    "Enter a valid email address",
	"password": "Enter a password without spaces",
}

type Field struct {
	Name  string
	Label string
	// Type is the html input type, "text" when empty
	Type string
	// Rules is a validator tag e.g. "required,email"
	Rules string
}

type Schema struct {
	Fields []Field
}

var (
	contactSchema = NewSchema(
		Field{Name: "first_name", Label: "First name", Rules: "required"},
		Field{Name: "last_name", Label: "Last name", Rules: "required"},
	)

	phoneSchema = NewSchema(
		Field{Name: "number", Label: "Number", Type: "tel", Rules: "required"},
		Field{Name: "phone_type", Label: "Phone type"},
	)

	loginSchema = NewSchema(
		Field{Name: "email", Label: "Email", Type: "email", Rules: "required,email"},
		Field{Name: "password", Label: "Password", Type: "password", Rules: "required"},
	)

	registerSchema = NewSchema(
		Field{Name: "first_name", Label: "First name", Rules: "required"},
		Field{Name: "last_name", Label: "Last name", Rules: "required"},
		Field{Name: "email", Label: "Email", Type: "email", Rules: "required,email"},
		Field{Name: "password", Label: "Password", Type: "password", Rules: "required,password"},
	)
)

func NewSchema(fields ...Field) *Schema {
	for i := range fields {
		if fields[i].Type == "" {
			fields[i].Type = "text"
		}
	}

	return &Schema{Fields: fields}
}

// Form is the outcome of processing a Schema against one request.
type Form struct {
	schema  *Schema
	State   FormState
	Values  map[string]string
	Errors  map[string]string
	Error   string
	FormKey string
}

type FieldView struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

// Process pre-fills the form from record on GET. On POST it reads the
// submitted values, checks the session form key & validates every field;
// the form is accepted only when all of that passes.
func (schema *Schema) Process(r *http.Request, sess *session.Session, record map[string]string) *Form {
	form := &Form{
		schema:  schema,
		State:   FormInitial,
		Values:  make(map[string]string, len(schema.Fields)),
		Errors:  make(map[string]string),
		FormKey: sess.FormKey(),
	}

	for _, field := range schema.Fields {
		form.Values[field.Name] = record[field.Name]
	}

	if r.Method != http.MethodPost {
		return form
	}

	if err := r.ParseForm(); err != nil {
		form.RejectForm("Unable to read the submitted form")
		return form
	}

	for _, field := range schema.Fields {
		value := r.PostForm.Get(field.Name)
		if field.Type != "password" {
			value = strings.TrimSpace(value)
		}
		form.Values[field.Name] = value

		if field.Rules == "" {
			continue
		}

		if err := validate.Var(value, field.Rules); err != nil {
			form.Errors[field.Name] = validationMessage(err)
		}
	}

	if !sess.CheckFormKey(r.PostForm.Get(FORM_KEY_FIELD)) {
		form.RejectForm("Your form has expired, please submit it again")
		return form
	}

	if len(form.Errors) > 0 {
		form.State = FormRejected
		return form
	}

	form.State = FormAccepted
	return form
}

func (form *Form) Accepted() bool {
	return form.State == FormAccepted
}

// Reject marks the form as rejected with an error on one field.
func (form *Form) Reject(field, message string) {
	form.State = FormRejected
	form.Errors[field] = message
}

// RejectForm marks the form as rejected with an error not tied to a field.
func (form *Form) RejectForm(message string) {
	form.State = FormRejected
	form.Error = message
}

// Data returns the submitted values as column => value for an update.
func (form *Form) Data() map[string]interface{} {
	data := make(map[string]interface{}, len(form.schema.Fields))
	for _, field := range form.schema.Fields {
		data[field.Name] = form.Values[field.Name]
	}

	return data
}

// View is the template data of form.html.
func (form *Form) View(title, action, cancel string) map[string]interface{} {
	fields := make([]FieldView, 0, len(form.schema.Fields))
	for _, field := range form.schema.Fields {
		value := form.Values[field.Name]
		if field.Type == "password" {
			value = ""
		}

		fields = append(fields, FieldView{
			Name:  field.Name,
			Label: field.Label,
			Type:  field.Type,
			Value: value,
			Error: form.Errors[field.Name],
		})
	}

	return map[string]interface{}{
		"Title":        title,
		"Action":       action,
		"Cancel":       cancel,
		"Fields":       fields,
		"Error":        form.Error,
		"FormKey":      form.FormKey,
		"FormKeyField": FORM_KEY_FIELD,
	}
}

func validationMessage(err error) string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return "Invalid value"
	}

	if message, ok := validationMessages[validationErrs[0].Tag()]; ok {
		return message
	}

	return "Invalid value"
}
