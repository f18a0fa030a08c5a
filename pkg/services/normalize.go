package services

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// DateLayout is the wire format for date-only fields.
const DateLayout = "2006-01-02"

// Field length limits mirror the column sizes in the migrations.
const (
	maxTitleLength    = 255
	maxLabelLength    = 100
	maxUsernameLength = 50
	maxEmailLength    = 255
	maxPathLength     = 500
	maxHoursWorked    = 24
)

// fieldKind selects the coercion applied to one proposal value.
type fieldKind int

const (
	kindTitle fieldKind = iota
	kindLabel
	kindText
	kindRequiredText
	kindOptionalText
	kindOptionalLabel
	kindRawText
	kindDate
	kindOptionalDate
	kindHours
	kindID
	kindOptionalID
	kindBool
	kindEmail
	kindPassword
	kindUsername
	kindPath
	kindEnum
)

type fieldSpec struct {
	kind   fieldKind
	values []string // allowed values for kindEnum
}

func enum(values []string) fieldSpec { return fieldSpec{kind: kindEnum, values: values} }

// fieldSpecs holds the value rules for every field a client may send.
var fieldSpecs = map[models.Entity]map[string]fieldSpec{
	models.EntityUser: {
		"username":  {kind: kindUsername},
		"email":     {kind: kindEmail},
		"full_name": {kind: kindText},
		"password":  {kind: kindPassword},
		"role":      enum(models.ValidRoles),
		"is_active": {kind: kindBool},
	},
	models.EntityReport: {
		"report_date":  {kind: kindDate},
		"title":        {kind: kindTitle},
		"description":  {kind: kindText},
		"hours_worked": {kind: kindHours},
		"status":       enum(models.ReportStatuses),
		"review_notes": {kind: kindOptionalText},
	},
	models.EntityIssue: {
		"report_id":   {kind: kindOptionalID},
		"title":       {kind: kindTitle},
		"description": {kind: kindText},
		"severity":    enum(models.IssueSeverities),
		"status":      enum(models.IssueStatuses),
	},
	models.EntitySolution: {
		"issue_id":     {kind: kindOptionalID},
		"title":        {kind: kindTitle},
		"description":  {kind: kindText},
		"code_snippet": {kind: kindOptionalText},
	},
	models.EntityTask: {
		"title":       {kind: kindTitle},
		"description": {kind: kindText},
		"priority":    enum(models.Priorities),
		"due_date":    {kind: kindOptionalDate},
		"status":      enum(models.TaskStatuses),
		"assigned_to": {kind: kindID},
	},
	models.EntityRequest: {
		"title":        {kind: kindTitle},
		"description":  {kind: kindText},
		"request_type": enum(models.RequestTypes),
		"priority":     enum(models.Priorities),
		"status":       enum(models.RequestStatuses),
		"response":     {kind: kindOptionalText},
		"assigned_to":  {kind: kindOptionalID},
	},
	models.EntityPrompt: {
		"report_id":     {kind: kindOptionalID},
		"ai_model":      {kind: kindLabel},
		"prompt_text":   {kind: kindRequiredText},
		"response_text": {kind: kindText},
		"category":      {kind: kindOptionalLabel},
	},
	models.EntityFileVersion: {
		"file_path":          {kind: kindPath},
		"change_description": {kind: kindText},
		"content_hash":       {kind: kindOptionalText},
		"content":            {kind: kindRawText},
	},
}

// normalizeProposal coerces a decoded JSON body into typed values.
// Fields the entity does not know are dropped; malformed values of known
// fields fail with apperrors.ErrValidation.
func normalizeProposal(entity models.Entity, raw map[string]any) (policy.Proposal, error) {
	specs, ok := fieldSpecs[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", policy.ErrUnknownEntity, entity)
	}

	out := policy.Proposal{}
	for name, value := range lo.PickByKeys(raw, lo.Keys(specs)) {
		v, err := coerce(specs[name], value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %v", apperrors.ErrValidation, name, err)
		}
		out[name] = v
	}
	return out, nil
}

func coerce(spec fieldSpec, value any) (any, error) {
	switch spec.kind {
	case kindTitle:
		return boundedString(value, maxTitleLength)
	case kindLabel:
		return boundedString(value, maxLabelLength)
	case kindText:
		if value == nil {
			return "", nil
		}
		return stringValue(value)
	case kindRequiredText:
		return requiredString(value)
	case kindRawText:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		return s, nil
	case kindOptionalText, kindOptionalLabel:
		if value == nil {
			return nil, nil
		}
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		if spec.kind == kindOptionalLabel && len([]rune(s)) > maxLabelLength {
			return nil, fmt.Errorf("must be at most %d characters", maxLabelLength)
		}
		return s, nil
	case kindDate:
		return dateValue(value)
	case kindOptionalDate:
		if value == nil || value == "" {
			return nil, nil
		}
		return dateValue(value)
	case kindHours:
		f, err := floatValue(value)
		if err != nil {
			return nil, err
		}
		if f < 0 || f > maxHoursWorked {
			return nil, fmt.Errorf("must be between 0 and %d", maxHoursWorked)
		}
		return f, nil
	case kindID:
		return idValue(value)
	case kindOptionalID:
		if value == nil {
			return nil, nil
		}
		return idValue(value)
	case kindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil
	case kindEmail:
		s, err := boundedString(value, maxEmailLength)
		if err != nil {
			return nil, err
		}
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, fmt.Errorf("must be a valid email address")
		}
		return strings.ToLower(s), nil
	case kindPassword:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		if len(s) < auth.MinPasswordLength {
			return nil, fmt.Errorf("must be at least %d characters", auth.MinPasswordLength)
		}
		return s, nil
	case kindUsername:
		s, err := boundedString(value, maxUsernameLength)
		if err != nil {
			return nil, err
		}
		if strings.ContainsAny(s, " \t\r\n") {
			return nil, fmt.Errorf("must not contain whitespace")
		}
		return s, nil
	case kindPath:
		return boundedString(value, maxPathLength)
	case kindEnum:
		s, err := stringValue(value)
		if err != nil {
			return nil, err
		}
		if !lo.Contains(spec.values, s) {
			return nil, fmt.Errorf("must be one of %s", strings.Join(spec.values, ", "))
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported field")
}

func stringValue(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("must be a string")
	}
	return strings.TrimSpace(s), nil
}

func requiredString(value any) (string, error) {
	s, err := stringValue(value)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("must not be empty")
	}
	return s, nil
}

func boundedString(value any, max int) (string, error) {
	s, err := requiredString(value)
	if err != nil {
		return "", err
	}
	if len([]rune(s)) > max {
		return "", fmt.Errorf("must be at most %d characters", max)
	}
	return s, nil
}

func dateValue(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Truncate(24 * time.Hour), nil
	case string:
		s := strings.TrimSpace(v)
		if d, err := time.Parse(DateLayout, s); err == nil {
			return d, nil
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			y, m, d := ts.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("must be a date (YYYY-MM-DD)")
}

func floatValue(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		f = parsed
	default:
		return 0, fmt.Errorf("must be a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be a number")
	}
	return f, nil
}

func idValue(value any) (int64, error) {
	var id int64
	switch v := value.(type) {
	case int64:
		id = v
	case int:
		id = int64(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 {
			return 0, fmt.Errorf("must be an integer id")
		}
		id = int64(v)
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("must be an integer id")
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be an integer id")
		}
		id = parsed
	default:
		return 0, fmt.Errorf("must be an integer id")
	}
	if id <= 0 {
		return 0, fmt.Errorf("must be a positive id")
	}
	return id, nil
}

// Typed accessors for normalized proposals used by Create.

func stringField(p policy.Proposal, name string) string {
	s, _ := p[name].(string)
	return s
}

func optionalString(p policy.Proposal, name string) *string {
	if s, ok := p[name].(string); ok {
		return &s
	}
	return nil
}

func optionalID(p policy.Proposal, name string) *int64 {
	if id, ok := p[name].(int64); ok {
		return &id
	}
	return nil
}

func optionalDate(p policy.Proposal, name string) *time.Time {
	if d, ok := p[name].(time.Time); ok {
		return &d
	}
	return nil
}

// requireFields fails with ErrValidation naming the first missing field.
func requireFields(p policy.Proposal, names ...string) error {
	for _, name := range names {
		if v, ok := p[name]; !ok || v == nil {
			return fmt.Errorf("%w: %s is required", apperrors.ErrValidation, name)
		}
	}
	return nil
}
