package prompt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-esign-templates/internal/service"
)

type stubDriver struct {
	inputs    []string
	confirm   []bool
	selectIdx []int

	inputPos   int
	confirmPos int
	selectPos  int

	infos   []string
	selects []SelectConfig
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	s.selects = append(s.selects, cfg)
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func leaseInfo() *service.TemplateInfo {
	return &service.TemplateInfo{
		Name: "lease",
		Recipients: []service.RecipientInfo{
			{
				Type:     "signers",
				RoleName: "Tenant",
				Fields: []service.FieldInfo{
					{Label: "tenant_name", Kind: "text", Page: 1},
					{Label: "tenant_name", Kind: "text", Page: 3},
					{Label: "pets", Kind: "checkbox", Page: 1, Value: "false"},
					{Label: "term", Kind: "radiogroup", Page: 2, Options: []string{"6", "12"}, Value: "12"},
					{Label: "parking", Kind: "list", Page: 2, Options: []string{"none", "one"}},
				},
			},
			{Type: "signers", RoleName: "Landlord"},
			{
				Type:     "carbon_copies",
				RoleName: "Agent",
				Fields:   []service.FieldInfo{{Label: "agent_name", Kind: "text", Page: 1}},
			},
		},
	}
}

func TestBuildFill(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Jane Doe", "Pat"},
		confirm:   []bool{true},
		selectIdx: []int{1, 0},
	}

	fill, err := BuildFill(context.Background(), driver, leaseInfo(), nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"tenant_name": "Jane Doe", "pets": true, "term": "6"}, fill.Values["Tenant"])
	assert.Equal(t, map[string]any{"agent_name": "Pat"}, fill.Values["Agent"])
	assert.NotContains(t, fill.Values, "Landlord")
	assert.Equal(t, []string{"Tenant (signers)", "Agent (carbon_copies)"}, driver.infos)

	require.Len(t, driver.selects, 2)
	assert.Equal(t, []string{SkipOption, "6", "12"}, driver.selects[0].Options)
	assert.Equal(t, 2, driver.selects[0].DefaultIndex)
	assert.Equal(t, 0, driver.selects[1].DefaultIndex)
}

func TestBuildFill_Roles(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Pat"}}

	fill, err := BuildFill(context.Background(), driver, leaseInfo(), []string{"Agent"})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]any{"Agent": {"agent_name": "Pat"}}, fill.Values)
}

func TestBuildFill_EmptyInputKeepsValue(t *testing.T) {
	driver := &stubDriver{inputs: []string{""}}

	fill, err := BuildFill(context.Background(), driver, leaseInfo(), []string{"Agent"})
	require.NoError(t, err)
	assert.True(t, fill.IsEmpty())
}

func TestBuildFill_Aborted(t *testing.T) {
	driver := &stubDriver{inputs: []string{"Jane"}}

	_, err := BuildFill(context.Background(), driver, leaseInfo(), []string{"Tenant"})
	assert.ErrorContains(t, err, "field pets of Tenant")
}

func TestTranslateSurveyErr(t *testing.T) {
	other := errors.New("boom")
	assert.Equal(t, other, translateSurveyErr(other))
	assert.ErrorIs(t, translateSurveyErr(terminal.InterruptErr), ErrAborted)
	assert.ErrorIs(t, translateSurveyErr(fmt.Errorf("ask: %w", terminal.InterruptErr)), ErrAborted)
	assert.Equal(t, 1, indexOf([]string{"a", "b"}, "b"))
	assert.Equal(t, -1, indexOf([]string{"a"}, "z"))
}
