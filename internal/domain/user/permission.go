package user

type Permission string

const (
	PermissionPayrollViewOwn Permission = "payroll.view_own"
	PermissionPayrollViewAll Permission = "payroll.view_all"
	PermissionPayrollManage  Permission = "payroll.manage"
	PermissionPayrollProcess Permission = "payroll.process"
	PermissionEmployeeManage Permission = "employee.manage"
	PermissionDepartmentView Permission = "department.view"
	PermissionDepartmentEdit Permission = "department.manage"
	PermissionDashboardView  Permission = "dashboard.view"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionPayrollViewOwn,
		PermissionPayrollViewAll,
		PermissionPayrollManage,
		PermissionPayrollProcess,
		PermissionEmployeeManage,
		PermissionDepartmentView,
		PermissionDepartmentEdit,
		PermissionDashboardView,
	},
	RoleEmployee: {
		PermissionPayrollViewOwn,
		PermissionDepartmentView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
