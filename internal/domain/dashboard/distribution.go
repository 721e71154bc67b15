package dashboard

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UnassignedName labels active employees without a department.
const UnassignedName = "Unassigned"

// Distribute turns department counts into shares of the total. Percentages
// are rounded half-up to whole numbers and are not adjusted to sum to 100.
// Empty departments are kept with zero. Result is sorted by count descending,
// then by name.
func Distribute(counts []DepartmentCount) []DepartmentShareResponse {
	var total int64
	for _, c := range counts {
		total += c.Count
	}

	shares := make([]DepartmentShareResponse, 0, len(counts))
	for _, c := range counts {
		var pct int64
		if total > 0 {
			pct = decimal.NewFromInt(c.Count * 100).
				Div(decimal.NewFromInt(total)).
				Round(0).
				IntPart()
		}
		shares = append(shares, DepartmentShareResponse{
			DepartmentID: c.DepartmentID,
			Name:         c.Name,
			Count:        c.Count,
			Percentage:   pct,
		})
	}

	sort.SliceStable(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Name < shares[j].Name
	})

	return shares
}
