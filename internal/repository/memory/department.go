package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
)

type departmentRepository struct {
	store *Store
}

func NewDepartmentRepository(store *Store) department.DepartmentRepository {
	return &departmentRepository{store: store}
}

func nameTaken(st *state, name string, exceptID int64) bool {
	for _, d := range st.departments {
		if d.ID != exceptID && d.Name == name {
			return true
		}
	}
	return false
}

// Create implements department.DepartmentRepository.
func (r *departmentRepository) Create(ctx context.Context, d department.Department) (department.Department, error) {
	var created department.Department
	err := r.store.write(ctx, func(st *state) error {
		if nameTaken(st, d.Name, 0) {
			return department.ErrDepartmentNameExists
		}
		st.departmentSeq++
		now := r.store.now()
		created = d
		created.ID = st.departmentSeq
		created.CreatedAt = now
		created.UpdatedAt = now
		st.departments[created.ID] = created
		return nil
	})
	return created, err
}

// GetByID implements department.DepartmentRepository.
func (r *departmentRepository) GetByID(ctx context.Context, id int64) (department.Department, error) {
	var found department.Department
	err := r.store.read(ctx, func(st *state) error {
		d, ok := st.departments[id]
		if !ok {
			return department.ErrDepartmentNotFound
		}
		found = d
		return nil
	})
	return found, err
}

// List implements department.DepartmentRepository.
func (r *departmentRepository) List(ctx context.Context) ([]department.Department, error) {
	var list []department.Department
	err := r.store.read(ctx, func(st *state) error {
		list = make([]department.Department, 0, len(st.departments))
		for _, d := range st.departments {
			list = append(list, d)
		}
		slices.SortFunc(list, func(a, b department.Department) int {
			return strings.Compare(a.Name, b.Name)
		})
		return nil
	})
	return list, err
}

// Update implements department.DepartmentRepository.
func (r *departmentRepository) Update(ctx context.Context, req department.UpdateDepartmentRequest) (department.Department, error) {
	var updated department.Department
	err := r.store.write(ctx, func(st *state) error {
		d, ok := st.departments[req.ID]
		if !ok {
			return department.ErrDepartmentNotFound
		}
		if req.Name != nil {
			if nameTaken(st, *req.Name, d.ID) {
				return department.ErrDepartmentNameExists
			}
			d.Name = *req.Name
		}
		if req.Description != nil {
			d.Description = req.Description
		}
		d.UpdatedAt = r.store.now()
		st.departments[d.ID] = d
		updated = d
		return nil
	})
	return updated, err
}

// Delete implements department.DepartmentRepository.
func (r *departmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.store.write(ctx, func(st *state) error {
		if _, ok := st.departments[id]; !ok {
			return nil
		}
		for _, e := range st.employees {
			if e.DepartmentID != nil && *e.DepartmentID == id {
				return department.ErrDepartmentInUse
			}
		}
		delete(st.departments, id)
		removed = true
		return nil
	})
	return removed, err
}

// CountEmployees implements department.DepartmentRepository.
func (r *departmentRepository) CountEmployees(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.employees {
			if e.DepartmentID != nil && *e.DepartmentID == id {
				count++
			}
		}
		return nil
	})
	return count, err
}
