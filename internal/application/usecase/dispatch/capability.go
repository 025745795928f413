package dispatch

import "github.com/vhm24/taskflow/internal/domain/model"

// Capability declares what a role may do. Roles map to explicit permitted
// task types rather than being branched on by name.
type Capability struct {
	TaskTypes []model.TaskType
	CancelAny bool
}

// capabilities is the role capability table
var capabilities = map[model.Role]Capability{
	model.RoleOperator: {
		TaskTypes: []model.TaskType{model.TaskTypeRefill, model.TaskTypeInspection},
	},
	model.RoleWarehouse: {
		TaskTypes: []model.TaskType{model.TaskTypeRefill},
	},
	model.RoleTechnician: {
		TaskTypes: []model.TaskType{model.TaskTypeMaintenance},
	},
	model.RoleManager: {
		TaskTypes: []model.TaskType{
			model.TaskTypeRefill,
			model.TaskTypeIncassation,
			model.TaskTypeMaintenance,
			model.TaskTypeInspection,
		},
		CancelAny: true,
	},
}

// Permits reports whether a role may execute the task type
func Permits(role model.Role, taskType model.TaskType) bool {
	cap, ok := capabilities[role]
	if !ok {
		return false
	}
	for _, t := range cap.TaskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}

// MayCancelAny reports whether a role may cancel tasks it is not assigned to
func MayCancelAny(role model.Role) bool {
	return capabilities[role].CancelAny
}
