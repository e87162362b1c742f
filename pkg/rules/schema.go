package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/coolbeans/archetype/pkg/domain"
)

// ValidationError represents a rule set validation error with context
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(errs), strings.Join(messages, "\n  - "))
}

// ConfigError is a fatal rule set problem detected at load time.
type ConfigError struct {
	Source string
	Errors ValidationErrors
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return "invalid rule set: " + e.Errors.Error()
	}
	return fmt.Sprintf("invalid rule set %s: %s", e.Source, e.Errors.Error())
}

func (e *ConfigError) Unwrap() error {
	return e.Errors
}

// ValidateSchema checks a rule file and returns every problem found.
func ValidateSchema(file *File) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(file.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "required field is missing",
		})
	}

	if file.Version != "" && !isValidVersion(file.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: "must be semantic version (e.g., 1.0.0)",
			Value:   file.Version,
		})
	}

	if len(file.Rules) == 0 {
		errs = append(errs, ValidationError{
			Field:   "rules",
			Message: "at least one rule is required",
		})
	}

	seen := make(map[string]int, len(file.Rules))
	for i := range file.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		spec := &file.Rules[i]

		if first, ok := seen[spec.Placeholder]; ok && spec.Placeholder != "" {
			errs = append(errs, ValidationError{
				Field:   field + ".placeholder",
				Message: fmt.Sprintf("duplicate placeholder, first defined at rules[%d]", first),
				Value:   spec.Placeholder,
			})
		} else {
			seen[spec.Placeholder] = i
		}

		errs = append(errs, validateRule(field, spec)...)
	}

	return errs
}

func validateRule(field string, spec *RuleSpec) ValidationErrors {
	var errs ValidationErrors

	if spec.Placeholder == "" {
		errs = append(errs, ValidationError{
			Field:   field + ".placeholder",
			Message: "required field is missing",
		})
	} else if !ValidPlaceholderName(spec.Placeholder) {
		errs = append(errs, ValidationError{
			Field:   field + ".placeholder",
			Message: "must be lowercase alphanumeric with hyphens, starting with a letter",
			Value:   spec.Placeholder,
		})
	}

	if len(spec.Terms) == 0 && len(spec.Patterns) == 0 {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "at least one term or pattern is required",
		})
	}

	for i, term := range spec.Terms {
		if msg := checkTerm(term); msg != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.terms[%d]", field, i),
				Message: msg,
				Value:   term,
			})
		}
	}

	for i, pattern := range spec.Patterns {
		termField := fmt.Sprintf("%s.patterns[%d]", field, i)
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, ValidationError{
				Field:   termField,
				Message: "pattern is required",
			})
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, ValidationError{
				Field:   termField,
				Message: "invalid regular expression: " + err.Error(),
				Value:   pattern,
			})
		} else if regexp.MustCompile(`(?:` + pattern + `)`).MatchString("") {
			errs = append(errs, ValidationError{
				Field:   termField,
				Message: "pattern must not match the empty string",
				Value:   pattern,
			})
		}
	}

	for name, examples := range spec.Domains {
		domainField := fmt.Sprintf("%s.domains.%s", field, name)
		if _, err := domain.Parse(name); err != nil {
			errs = append(errs, ValidationError{
				Field:   domainField,
				Message: "unknown domain",
				Value:   name,
			})
			continue
		}
		if len(examples) == 0 {
			errs = append(errs, ValidationError{
				Field:   domainField,
				Message: "at least one example term is required",
			})
		}
		for i, example := range examples {
			if strings.TrimSpace(example) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", domainField, i),
					Message: "example term must not be empty",
				})
			}
		}
	}

	return errs
}

// checkTerm returns a problem description for a literal term, or "".
func checkTerm(term string) string {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return "term must not be empty"
	}
	if strings.Contains(trimmed, TokenOpen) || strings.Contains(trimmed, TokenClose) {
		return "term must not contain token delimiters"
	}
	first, _ := utf8.DecodeRuneInString(trimmed)
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	if !IsWordRune(first) || !IsWordRune(last) {
		return "term must start and end with a word character"
	}
	return ""
}

func isValidVersion(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
