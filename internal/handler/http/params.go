package http

import (
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// pathID reads the {id} URL parameter as a positive integer.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryParams collects typed query values and the fields that failed to parse.
type queryParams struct {
	r    *http.Request
	errs validator.ValidationErrors
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

func (q *queryParams) str(name string) *string {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}

func (q *queryParams) intValue(name string) int {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.errs.Add(name, validator.ErrInvalidFormat, name+" must be an integer")
		return 0
	}
	return n
}

func (q *queryParams) intPtr(name string) *int {
	if q.r.URL.Query().Get(name) == "" {
		return nil
	}
	n := q.intValue(name)
	return &n
}

func (q *queryParams) int64Ptr(name string) *int64 {
	v := q.r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		q.errs.Add(name, validator.ErrInvalidFormat, name+" must be an integer")
		return nil
	}
	return &n
}

func (q *queryParams) err() error {
	return q.errs.Err()
}
