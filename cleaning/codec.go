package cleaning

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/alexisbanda/operations-management-system/docstore"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// =============================================================================
// DOCUMENT DECODING
// =============================================================================

const docTag = "doc"

var (
	timeType    = reflect.TypeOf(time.Time{})
	timePtrType = reflect.TypeOf(&time.Time{})
)

// timestampHook turns store-native timestamps into time.Time so that no
// domain type ever holds a docstore.Timestamp.
func timestampHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	ts, ok := data.(docstore.Timestamp)
	if !ok {
		return data, nil
	}
	if to == timeType || to == timePtrType {
		return ts.AsTime(), nil
	}
	return data, nil
}

// wholeNumberHook refuses to truncate fractional numbers into integer
// fields; mapstructure would otherwise drop the fraction silently.
func wholeNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() == reflect.Pointer {
		to = to.Elem()
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch n := data.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return data, nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return data, nil
}

// decodeFields decodes fields into out. With strict set, unknown keys are
// an error and the decoded keys are returned.
func decodeFields(fields docstore.Fields, out any, strict bool) ([]string, error) {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     docTag,
		Result:      out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.DecodeHookFuncType(timestampHook),
			mapstructure.DecodeHookFuncType(wholeNumberHook),
		),
		ErrorUnused: strict,
		Metadata:    &md,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]any(fields)); err != nil {
		return nil, err
	}
	return md.Keys, nil
}

// decodeDocument decodes a stored document, including its id.
func decodeDocument(doc docstore.Document, out any) error {
	fields := doc.Fields.Clone()
	if fields == nil {
		fields = docstore.Fields{}
	}
	fields["id"] = doc.ID
	if _, err := decodeFields(fields, out, false); err != nil {
		return fmt.Errorf("decode document %q: %w", doc.ID, err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{docTag, "json"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// validateStruct runs the validate tags and reports the first violation
// as a ValidationError.
func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return invalid(fe.Field(), "failed %q rule", ruleText(fe))
	}
	return invalid("", "%v", err)
}

func ruleText(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
