package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gestion/internal/participation/models"
)

const seedDateLayout = "2006-01-02"

// PersonWriter and ProjectWriter are implemented by both the in-memory and the
// Postgres stores.
type PersonWriter interface {
	Upsert(ctx context.Context, p *models.Person) error
}

type ProjectWriter interface {
	Upsert(ctx context.Context, p *models.Project) error
}

// SeedFile is the YAML layout accepted by LoadSeedFile.
type SeedFile struct {
	Persons []struct {
		ID        string `yaml:"id"`
		FirstName string `yaml:"firstName"`
		LastName  string `yaml:"lastName"`
		Email     string `yaml:"email"`
	} `yaml:"persons"`
	Projects []struct {
		Code      string `yaml:"code"`
		Name      string `yaml:"name"`
		StartDate string `yaml:"startDate"`
		EndDate   string `yaml:"endDate"`
	} `yaml:"projects"`
}

// LoadSeedFile reads a YAML seed file and upserts its persons and projects.
func LoadSeedFile(ctx context.Context, path string, persons PersonWriter, projects ProjectWriter) (int, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read seed file: %w", err)
	}
	return Seed(ctx, raw, persons, projects)
}

// Seed parses YAML seed data and upserts it. It returns how many persons and
// projects were written.
func Seed(ctx context.Context, raw []byte, persons PersonWriter, projects ProjectWriter) (int, int, error) {
	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return 0, 0, fmt.Errorf("parse seed file: %w", err)
	}

	for _, p := range file.Persons {
		if strings.TrimSpace(p.ID) == "" {
			return 0, 0, fmt.Errorf("seed person: id is required")
		}
		person := &models.Person{ID: models.PersonID(p.ID), FirstName: p.FirstName, LastName: p.LastName, Email: p.Email}
		if err := persons.Upsert(ctx, person); err != nil {
			return 0, 0, fmt.Errorf("seed person %s: %w", p.ID, err)
		}
	}

	for _, p := range file.Projects {
		if strings.TrimSpace(p.Code) == "" {
			return 0, 0, fmt.Errorf("seed project: code is required")
		}
		project := &models.Project{Code: models.ProjectCode(p.Code), Name: p.Name}
		if p.StartDate != "" {
			start, err := time.Parse(seedDateLayout, p.StartDate)
			if err != nil {
				return 0, 0, fmt.Errorf("seed project %s: start date: %w", p.Code, err)
			}
			project.StartDate = start
		}
		if p.EndDate != "" {
			end, err := time.Parse(seedDateLayout, p.EndDate)
			if err != nil {
				return 0, 0, fmt.Errorf("seed project %s: end date: %w", p.Code, err)
			}
			project.EndDate = &end
		}
		if err := projects.Upsert(ctx, project); err != nil {
			return 0, 0, fmt.Errorf("seed project %s: %w", p.Code, err)
		}
	}

	return len(file.Persons), len(file.Projects), nil
}

// SeedBootstrap creates a demo person and project so an in-memory server is
// usable without a seed file.
func SeedBootstrap(ctx context.Context, persons PersonWriter, projects ProjectWriter) error {
	now := time.Now()
	if err := persons.Upsert(ctx, &models.Person{ID: "P1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}); err != nil {
		return err
	}
	return projects.Upsert(ctx, &models.Project{Code: "X1", Name: "Bootstrap project", StartDate: now})
}
