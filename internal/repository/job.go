package repository

import (
	"context"
	"fmt"

	"mail-expense-intake/internal/model"
)

// ListJobs returns jobs ordered by address
func (r *Repository) ListJobs(ctx context.Context, activeOnly bool) ([]model.Job, error) {
	query := r.db.WithContext(ctx).Order("address ASC, id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var jobs []model.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}
	return jobs, nil
}

// GetJob returns a job by id
func (r *Repository) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, notFound(err)
	}
	return &job, nil
}

// CreateJob inserts a job
func (r *Repository) CreateJob(ctx context.Context, job *model.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// ListEmployees returns all employees
func (r *Repository) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	var employees []model.Employee
	if err := r.db.WithContext(ctx).Order("first_name ASC, id ASC").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	return employees, nil
}

// CreateEmployee inserts an employee
func (r *Repository) CreateEmployee(ctx context.Context, e *model.Employee) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}
