// Package validation materializes raw argument maps into typed structs,
// enforcing the constraints each struct declares on its fields.
//
// Constraints are attached declaratively through the validate struct tag:
//
//	type DeployArguments struct {
//	    Environment string         `mapstructure:"environment" validate:"string"`
//	    Contact     string         `mapstructure:"contact" validate:"email,omitempty"`
//	    Overrides   map[string]any `mapstructure:"overrides" validate:"object,allownil"`
//	}
//
// Every declared field is required unless marked omitempty; allownil skips
// kind checks for explicit nulls. Keys not declared on the struct are
// rejected (whitelist semantics). Failures are reported as a
// *ValidationError carrying one human-readable message per problem.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ValidationError reports one or more constraint violations.
type ValidationError struct {
	// Messages are the human-readable failure descriptions.
	Messages []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// CustomValidator is implemented by argument structs that carry
// constraints no tag can express. ValidateCustom runs after decoding and
// returns one message per violation.
type CustomValidator interface {
	ValidateCustom() []string
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// fieldSpec is the parsed declaration of one struct field.
type fieldSpec struct {
	key          string
	kinds        []string
	allowMissing bool
	allowNil     bool
}

// ValidateMap populates out (a pointer to struct) from raw, enforcing the
// declared constraints. On failure it returns a *ValidationError and out
// is left in an unspecified state.
//
// A struct with no declared fields accepts only the empty map.
func ValidateMap(raw map[string]any, out any) error {
	specs, err := fieldSpecs(out)
	if err != nil {
		return err
	}

	if len(specs) == 0 {
		if len(raw) > 0 {
			return &ValidationError{Messages: []string{"Expected the object to validate to be empty."}}
		}
		return nil
	}

	var messages []string

	byKey := make(map[string]fieldSpec, len(specs))
	for _, spec := range specs {
		byKey[strings.ToLower(spec.key)] = spec
	}

	// Whitelist: reject keys not declared on the struct.
	unexpected := make([]string, 0)
	for key := range raw {
		if _, ok := byKey[strings.ToLower(key)]; !ok {
			unexpected = append(unexpected, key)
		}
	}
	sort.Strings(unexpected)
	for _, key := range unexpected {
		messages = append(messages, fmt.Sprintf("Unexpected property %q.", key))
	}

	for _, spec := range specs {
		value, present := lookupKey(raw, spec.key)
		if !present {
			if !spec.allowMissing {
				messages = append(messages, fmt.Sprintf("Missing required property %q.", spec.key))
			}
			continue
		}
		if value == nil {
			if !spec.allowNil && len(spec.kinds) > 0 {
				messages = append(messages, fmt.Sprintf("Property %q must not be null.", spec.key))
			}
			continue
		}
		messages = append(messages, checkKinds(spec, value)...)
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}

	if err := decode(raw, out); err != nil {
		return err
	}

	if custom, ok := out.(CustomValidator); ok {
		if customMessages := custom.ValidateCustom(); len(customMessages) > 0 {
			return &ValidationError{Messages: customMessages}
		}
	}
	return nil
}

// checkKinds validates a present, non-nil value against the field's
// declared constraint kinds.
func checkKinds(spec fieldSpec, value any) []string {
	var messages []string
	for _, kind := range spec.kinds {
		switch kind {
		case "string":
			if _, ok := value.(string); !ok {
				messages = append(messages, fmt.Sprintf("Property %q must be a string.", spec.key))
			}
		case "email":
			s, ok := value.(string)
			if !ok || !emailPattern.MatchString(s) {
				messages = append(messages, fmt.Sprintf("Property %q must be an email address.", spec.key))
			}
		case "object":
			if _, ok := value.(map[string]any); !ok {
				messages = append(messages, fmt.Sprintf("Property %q must be an object.", spec.key))
			}
		}
	}
	return messages
}

// decode populates out from raw once constraints have passed.
func decode(raw map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return &ValidationError{Messages: []string{err.Error()}}
	}
	return nil
}

// fieldSpecs parses the declared fields of out's struct type.
func fieldSpecs(out any) ([]fieldSpec, error) {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("validation target must be a non-nil struct pointer, got %T", out)
	}

	structType := rv.Elem().Type()
	specs := make([]fieldSpec, 0, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() {
			continue
		}

		key := field.Name
		if tag, ok := field.Tag.Lookup("mapstructure"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				key = name
			}
		}

		spec := fieldSpec{key: key}
		if tag, ok := field.Tag.Lookup("validate"); ok {
			for part := range strings.SplitSeq(tag, ",") {
				switch part = strings.TrimSpace(part); part {
				case "omitempty":
					spec.allowMissing = true
				case "allownil":
					spec.allowNil = true
				case "":
				default:
					spec.kinds = append(spec.kinds, part)
				}
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// lookupKey finds a raw key matching the declared field key, tolerating
// case differences the same way the decoder does.
func lookupKey(raw map[string]any, key string) (any, bool) {
	if value, ok := raw[key]; ok {
		return value, true
	}
	lower := strings.ToLower(key)
	for rawKey, value := range raw {
		if strings.ToLower(rawKey) == lower {
			return value, true
		}
	}
	return nil, false
}
