package booking

import (
	"fmt"
	"net/url"

	"valles-rodes/internal/models"
)

// ConfirmationMessage is shown once a booking passes validation.
const ConfirmationMessage = "¡Gracias! Recibirás confirmación por WhatsApp en breve."

// Form field names, as posted by the page.
const (
	FieldName           = "name"
	FieldPhone          = "phone"
	FieldEmail          = "email"
	FieldCity           = "city"
	FieldService        = "service"
	FieldModel          = "model"
	FieldPlate          = "plate"
	FieldTireSize       = "tireSize"
	FieldDate           = "date"
	FieldStart          = "start"
	FieldEnd            = "end"
	FieldAddress        = "address"
	FieldReplacementCar = "replacementCar"
	FieldAccept         = "accept"
)

// FormState is the live state of one booking form: the field values plus
// what is derived from them. Derived tire options are refreshed only when
// the service or the tire size text changes.
type FormState struct {
	fields  models.BookingForm
	message string
	options []models.TireOption
	size    *models.TireSize
}

// NewFormState returns an empty form with the default service selected.
func NewFormState() *FormState {
	f := &FormState{fields: models.BookingForm{Service: models.ServiceMaintenance}}
	f.recompute()
	return f
}

// FormStateFromValues replays posted form values field by field.
func FormStateFromValues(values url.Values) *FormState {
	f := NewFormState()
	for _, name := range []string{
		FieldName, FieldPhone, FieldEmail, FieldCity, FieldService, FieldModel, FieldPlate,
		FieldTireSize, FieldDate, FieldStart, FieldEnd, FieldAddress,
	} {
		if _, ok := values[name]; ok {
			f.Set(name, values.Get(name))
		}
	}
	// unchecked boxes are simply absent from a post
	f.SetBool(FieldReplacementCar, isChecked(values.Get(FieldReplacementCar)))
	f.SetBool(FieldAccept, isChecked(values.Get(FieldAccept)))
	return f
}

func isChecked(v string) bool {
	return v == "on" || v == "true" || v == "1"
}

// Set updates one text field.
func (f *FormState) Set(field, value string) error {
	switch field {
	case FieldName:
		f.fields.Name = value
	case FieldPhone:
		f.fields.Phone = value
	case FieldEmail:
		f.fields.Email = value
	case FieldCity:
		f.fields.City = value
	case FieldService:
		if f.fields.Service == value {
			return nil
		}
		f.fields.Service = value
		f.recompute()
	case FieldModel:
		f.fields.Model = value
	case FieldPlate:
		f.fields.Plate = value
	case FieldTireSize:
		if f.fields.TireSize == value {
			return nil
		}
		f.fields.TireSize = value
		f.recompute()
	case FieldDate:
		f.fields.Date = value
	case FieldStart:
		f.fields.Start = value
	case FieldEnd:
		f.fields.End = value
	case FieldAddress:
		f.fields.Address = value
	default:
		return fmt.Errorf("unknown form field %q", field)
	}
	return nil
}

// SetBool updates one checkbox.
func (f *FormState) SetBool(field string, value bool) error {
	switch field {
	case FieldReplacementCar:
		f.fields.ReplacementCar = value
	case FieldAccept:
		f.fields.Accept = value
	default:
		return fmt.Errorf("unknown checkbox %q", field)
	}
	return nil
}

func (f *FormState) recompute() {
	if size, ok := ParseTireSize(f.fields.TireSize); ok {
		f.size = &size
	} else {
		f.size = nil
	}

	if f.fields.Service != models.ServiceTires || f.size == nil {
		f.options = nil
		return
	}
	f.options = QuoteOptions(*f.size)
}

// Submit checks the time window. On failure it returns the alert to show and
// leaves the state untouched; on success it sets the confirmation message.
func (f *FormState) Submit() (alert string, ok bool) {
	if !ValidWindow(f.fields.Start, f.fields.End) {
		return WindowTooShortMessage, false
	}
	f.message = ConfirmationMessage
	return "", true
}

// Fields returns a copy of the field values.
func (f *FormState) Fields() models.BookingForm { return f.fields }

// Message is the confirmation shown after a successful submission.
func (f *FormState) Message() string { return f.message }

// Size is the parsed tire size, nil when the text does not parse.
func (f *FormState) Size() *models.TireSize {
	if f.size == nil {
		return nil
	}
	s := *f.size
	return &s
}

// TireOptions returns a copy of the derived quote.
func (f *FormState) TireOptions() []models.TireOption {
	if len(f.options) == 0 {
		return nil
	}
	out := make([]models.TireOption, len(f.options))
	copy(out, f.options)
	return out
}
