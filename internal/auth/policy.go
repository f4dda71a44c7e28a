// Package auth holds the role/action capability table. Every permission
// check in the service goes through Allowed so role rules live in one place
// instead of per-handler conditionals.
package auth

import "shopdesk/internal/models"

// Actions gate the operations exposed by the API.
const (
	ActionOrderView      = "order.view"
	ActionOrderViewAll   = "order.view_all"
	ActionOrderCreate    = "order.create"
	ActionOrderEdit      = "order.edit"
	ActionOrderDelete    = "order.delete"
	ActionOrderSetStatus = "order.set_status"
	ActionOrderDispatch  = "order.dispatch"
	ActionOrderAssign    = "order.assign"
	ActionOrderMarkPaid  = "order.mark_paid"

	ActionProductView   = "product.view"
	ActionProductManage = "product.manage"

	ActionStaffView   = "staff.view"
	ActionStaffManage = "staff.manage"

	ActionAttendanceRecord  = "attendance.record"
	ActionAttendanceViewAll = "attendance.view_all"

	ActionAnalyticsView = "analytics.view"
)

var rolePolicy = map[string][]string{
	models.RoleAdmin: {
		ActionOrderView, ActionOrderViewAll, ActionOrderCreate, ActionOrderEdit,
		ActionOrderDelete, ActionOrderSetStatus, ActionOrderDispatch,
		ActionOrderAssign, ActionOrderMarkPaid,
		ActionProductView, ActionProductManage,
		ActionStaffView, ActionStaffManage,
		ActionAttendanceRecord, ActionAttendanceViewAll,
		ActionAnalyticsView,
	},
	models.RoleExecutive: {
		ActionOrderView, ActionOrderViewAll, ActionOrderSetStatus,
		ActionOrderDispatch, ActionOrderAssign, ActionOrderMarkPaid,
		ActionProductView,
		ActionStaffView,
		ActionAttendanceRecord, ActionAttendanceViewAll,
		ActionAnalyticsView,
	},
	models.RoleStaff: {
		ActionOrderView, ActionOrderCreate, ActionOrderEdit,
		ActionOrderSetStatus,
		ActionProductView,
		ActionAttendanceRecord,
	},
}

var policy = buildPolicy()

func buildPolicy() map[string]map[string]bool {
	p := make(map[string]map[string]bool, len(rolePolicy))
	for role, actions := range rolePolicy {
		set := make(map[string]bool, len(actions))
		for _, a := range actions {
			set[a] = true
		}
		p[role] = set
	}
	return p
}

// Allowed reports whether the role may perform the action. Unknown roles and
// unknown actions are denied.
func Allowed(role, action string) bool {
	return policy[role][action]
}

// SeesAllOrders reports whether order listings for the role are unscoped.
// Plain staff see only orders they created or are assigned to.
func SeesAllOrders(role string) bool {
	return Allowed(role, ActionOrderViewAll)
}
