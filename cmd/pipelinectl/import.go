// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/applicant-pipeline/models"
)

// pipelineFile is the YAML form of a pipeline definition:
//
//	organization_id: org-1
//	name: Membership Intake
//	inactivity:
//	  timeout_preset: 3_months
//	  warning_threshold_percent: 80
//	stages:
//	  - name: Application Form
//	    type: form_submission
//	    config:
//	      form_id: intake-2026
type pipelineFile struct {
	OrganizationID string                   `yaml:"organization_id"`
	Name           string                   `yaml:"name"`
	Description    string                   `yaml:"description"`
	Active         *bool                    `yaml:"active"`
	Inactivity     *models.InactivityConfig `yaml:"inactivity"`
	Stages         []stageFile              `yaml:"stages"`
}

type stageFile struct {
	Name                  string         `yaml:"name"`
	Description           string         `yaml:"description"`
	Type                  string         `yaml:"type"`
	Required              *bool          `yaml:"required"`
	InactivityTimeoutDays *int           `yaml:"inactivity_timeout_days"`
	Config                map[string]any `yaml:"config"`
}

// parsePipelineFile decodes YAML into a create request. Stage configs are
// re-encoded as JSON so they go through the same validation as the API.
func parsePipelineFile(data []byte) (models.CreatePipelineRequest, error) {
	// Keys missing from the inactivity block keep their defaults.
	defaults := models.DefaultInactivityConfig()
	f := pipelineFile{Inactivity: &defaults}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.CreatePipelineRequest{}, fmt.Errorf("failed to parse pipeline file: %w", err)
	}

	req := models.CreatePipelineRequest{
		OrganizationID: f.OrganizationID,
		Name:           f.Name,
		Description:    f.Description,
		IsActive:       f.Active,
		Inactivity:     f.Inactivity,
		Stages:         make([]models.StageInput, 0, len(f.Stages)),
	}
	for i, st := range f.Stages {
		cfg := st.Config
		if cfg == nil {
			cfg = map[string]any{}
		}
		raw, err := json.Marshal(cfg)
		if err != nil {
			return models.CreatePipelineRequest{}, fmt.Errorf("stage %d (%s): failed to encode config: %w", i+1, st.Name, err)
		}
		req.Stages = append(req.Stages, models.StageInput{
			Name:                  st.Name,
			Description:           st.Description,
			StageType:             models.StageType(st.Type),
			Config:                raw,
			IsRequired:            st.Required,
			InactivityTimeoutDays: st.InactivityTimeoutDays,
		})
	}
	return req, nil
}

func newImportCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create a pipeline from a YAML definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			req, err := parsePipelineFile(data)
			if err != nil {
				return err
			}

			p, err := c.svc.Definitions.CreatePipeline(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported pipeline %s (%s) with %d stage(s)\n", p.ID, p.Name, len(p.Stages))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Pipeline definition file (YAML)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
