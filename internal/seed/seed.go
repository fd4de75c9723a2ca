// Package seed creates the task checklist of every stored stage. It runs out
// of band, authenticated as a store superuser.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/pkg/observability"
)

//go:embed defaults.yaml
var defaultChecklist []byte

const checklistSchema = `{
  "type": "object",
  "required": ["stages"],
  "additionalProperties": false,
  "properties": {
    "stages": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "array",
        "minItems": 1,
        "items": {"type": "string", "minLength": 1}
      }
    }
  }
}`

// Checklist maps a stage title to the titles of its tasks
type Checklist struct {
	Stages map[string][]string `yaml:"stages"`
}

// Result summarises a seeding run
type Result struct {
	// Created is the number of tasks created
	Created int
	// Failed is the number of tasks the store rejected
	Failed int
	// Skipped is the number of stages without a checklist
	Skipped int
}

// ParseChecklist decodes and validates a YAML checklist
func ParseChecklist(data []byte) (*Checklist, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse checklist: %w", err)
	}

	schema := gojsonschema.NewStringLoader(checklistSchema)
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate checklist: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid checklist: %s", strings.Join(msgs, "; "))
	}

	var checklist Checklist
	if err := yaml.Unmarshal(data, &checklist); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}
	return &checklist, nil
}

// DefaultChecklist returns the built-in buyer and seller checklist
func DefaultChecklist() (*Checklist, error) {
	return ParseChecklist(defaultChecklist)
}

// LoadChecklist reads a checklist file, or the built-in one when path is empty
func LoadChecklist(path string) (*Checklist, error) {
	if path == "" {
		return DefaultChecklist()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist: %w", err)
	}
	return ParseChecklist(data)
}

// Seeder creates checklist tasks for stored stages
type Seeder struct {
	stages repository.StageRepository
	tasks  repository.TaskRepository
	logger observability.Logger
}

// NewSeeder creates a Seeder
func NewSeeder(stages repository.StageRepository, tasks repository.TaskRepository, logger observability.Logger) *Seeder {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	return &Seeder{stages: stages, tasks: tasks, logger: logger.WithPrefix("seed")}
}

// Run creates one task per checklist entry for every stored stage, linked to
// the stage through the relation field. A failed task is logged and seeding
// continues; only failing to list the stages aborts the run.
func (s *Seeder) Run(ctx context.Context, checklist *Checklist) (Result, error) {
	var res Result

	stages, err := s.stages.List(ctx, "")
	if err != nil {
		return res, fmt.Errorf("list stages: %w", err)
	}
	s.logger.Info("Seeding tasks", map[string]interface{}{
		"stages":         len(stages),
		"relation_field": models.RelationField,
	})

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		titles, ok := checklist.Stages[stage.Title]
		if !ok {
			s.logger.Warn("No task list for stage", map[string]interface{}{"stage": stage.Title})
			res.Skipped++
			continue
		}

		for _, title := range titles {
			task, err := s.tasks.Create(ctx, repository.Payload{
				models.RelationField: []string{stage.ID},
				"title":              title,
				"isCompleted":        false,
			})
			if err != nil {
				s.logger.Error("Failed to create task", map[string]interface{}{
					"stage": stage.Title,
					"task":  title,
					"error": err,
				})
				res.Failed++
				continue
			}
			s.logger.Debug("Created task", map[string]interface{}{"task": task.Title, "id": task.ID})
			res.Created++
		}
	}

	s.logger.Info("Seeding finished", map[string]interface{}{
		"created": res.Created,
		"failed":  res.Failed,
		"skipped": res.Skipped,
	})
	return res, nil
}
