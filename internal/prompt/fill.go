package prompt

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-esign-templates/internal/esign"
	"github.com/a3tai/mcp-esign-templates/internal/service"
)

// SkipOption leaves a radio group or list as stored
const SkipOption = "(leave unchanged)"

// BuildFill asks for a value for every fillable field of the recipients
// holding roles (all recipients when roles is empty). A label shared by
// several fields of one recipient is asked once.
func BuildFill(ctx context.Context, d Driver, info *service.TemplateInfo, roles []string) (*esign.Fill, error) {
	fill := &esign.Fill{}
	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		wanted[r] = true
	}

	for _, recipient := range info.Recipients {
		if len(wanted) > 0 && !wanted[recipient.RoleName] {
			continue
		}
		if len(recipient.Fields) == 0 {
			continue
		}
		if err := d.Info(ctx, fmt.Sprintf("%s (%s)", recipient.RoleName, recipient.Type)); err != nil {
			return nil, err
		}

		asked := make(map[string]bool)
		for _, field := range recipient.Fields {
			if field.Label == "" || asked[field.Label] {
				continue
			}
			asked[field.Label] = true

			value, ok, err := ask(ctx, d, field)
			if err != nil {
				return nil, fmt.Errorf("field %s of %s: %w", field.Label, recipient.RoleName, err)
			}
			if ok {
				fill.Set(recipient.RoleName, field.Label, value)
			}
		}
	}
	return fill, nil
}

func ask(ctx context.Context, d Driver, field service.FieldInfo) (any, bool, error) {
	message := fmt.Sprintf("%s (page %d)", field.Label, field.Page)

	switch field.Kind {
	case esign.TabTypeCheckbox:
		checked, err := d.Confirm(ctx, ConfirmConfig{
			Message: message,
			Default: field.Value == "true",
		})
		return checked, err == nil, err

	case esign.TabTypeRadioGroup, esign.TabTypeList:
		if len(field.Options) == 0 {
			return nil, false, nil
		}
		options := append([]string{SkipOption}, field.Options...)
		def := indexOf(options, field.Value)
		if field.Value == "" || def < 0 {
			def = 0
		}
		idx, err := d.Select(ctx, SelectConfig{
			Message:      message,
			Options:      options,
			DefaultIndex: def,
		})
		if err != nil {
			return nil, false, err
		}
		if idx <= 0 || idx >= len(options) {
			return nil, false, nil
		}
		return options[idx], true, nil

	default:
		text, err := d.Input(ctx, InputConfig{
			Message: message,
			Default: field.Value,
			Help:    "Leave empty to keep the stored value",
		})
		if err != nil {
			return nil, false, err
		}
		if text == "" {
			return nil, false, nil
		}
		return text, true, nil
	}
}
