// Package authz decides whether a principal may perform an operation on a
// resource. It is a pure predicate: callers load the resource and ask.
package authz

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/apperr"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// Operation names an action guarded by CanPerform.
type Operation string

const (
	OpPlaceBid      Operation = "bid:place"
	OpListJobBids   Operation = "bid:list_for_job"
	OpListMyBids    Operation = "bid:list_mine"
	OpAcceptBid     Operation = "bid:accept"
	OpRejectBid     Operation = "bid:reject"
	OpWithdrawBid   Operation = "bid:withdraw"
	OpViewBid       Operation = "bid:view"
	OpCreateJob     Operation = "job:create"
	OpEditJob       Operation = "job:edit"
	OpCancelJob     Operation = "job:cancel"
	OpManageProfile Operation = "profile:manage"
	OpManageUsers   Operation = "admin:users"
)

// Resource carries the ownership facts an operation is checked against.
// Zero IDs mean "not applicable".
type Resource struct {
	CustomerID uuid.UUID
	WorkerID   uuid.UUID
}

// Decision is the guard's answer. Reason is shown to the caller on deny.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

type rule struct {
	roles    []string
	verified bool
	owner    func(p models.Principal, r Resource) bool
	notOwner string
}

func isCustomer(p models.Principal, r Resource) bool { return p.ID == r.CustomerID }
func isWorker(p models.Principal, r Resource) bool   { return p.ID == r.WorkerID }
func isEither(p models.Principal, r Resource) bool {
	return p.ID == r.CustomerID || p.ID == r.WorkerID
}

var rules = map[Operation]rule{
	OpPlaceBid:   {roles: []string{models.RoleWorker}},
	OpListMyBids: {roles: []string{models.RoleWorker}},
	OpListJobBids: {
		owner:    isCustomer,
		notOwner: "You can only view bids on your own jobs",
	},
	OpAcceptBid: {
		roles:    []string{models.RoleCustomer},
		owner:    isCustomer,
		notOwner: "You can only accept bids on your own jobs",
	},
	OpRejectBid: {
		roles:    []string{models.RoleCustomer},
		owner:    isCustomer,
		notOwner: "You can only reject bids on your own jobs",
	},
	OpWithdrawBid: {
		roles:    []string{models.RoleWorker},
		owner:    isWorker,
		notOwner: "You can only withdraw your own bids",
	},
	OpViewBid: {
		owner:    isEither,
		notOwner: "You do not have permission to view this bid",
	},
	OpCreateJob: {roles: []string{models.RoleCustomer}, verified: true},
	OpEditJob: {
		owner:    isCustomer,
		notOwner: "Job not found or unauthorized",
	},
	OpCancelJob: {
		owner:    isCustomer,
		notOwner: "Job not found or unauthorized",
	},
	OpManageProfile: {roles: []string{models.RoleWorker}},
	OpManageUsers:   {roles: []string{models.RoleAdmin}},
}

// CanPerform evaluates role, verification and ownership for op.
// Inactive principals and unknown operations are always denied.
func CanPerform(p models.Principal, op Operation, res Resource) Decision {
	return evaluate(p, op, res, true)
}

// CanAttempt is CanPerform without the ownership step. Services call it
// before the resource is loaded so role failures win over not-found.
func CanAttempt(p models.Principal, op Operation) Decision {
	return evaluate(p, op, Resource{}, false)
}

func evaluate(p models.Principal, op Operation, res Resource, ownership bool) Decision {
	if !p.Active {
		return deny("Account has been deactivated.")
	}
	r, ok := rules[op]
	if !ok {
		return deny("Operation not permitted")
	}
	if len(r.roles) > 0 && !hasRole(p.Role, r.roles) {
		return deny("Access denied. Required role: " + joinRoles(r.roles))
	}
	if r.verified && !p.Verified {
		return deny("Please verify your phone number first.")
	}
	if ownership && r.owner != nil && !r.owner(p, res) {
		return deny(r.notOwner)
	}
	return allow
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []string) string {
	out := roles[0]
	for _, r := range roles[1:] {
		out += " or " + r
	}
	return out
}

// Check is CanPerform returning a forbidden *apperr.Error on deny.
func Check(p models.Principal, op Operation, res Resource) error {
	if d := CanPerform(p, op, res); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}
	return nil
}

// CheckAttempt is CanAttempt returning a forbidden *apperr.Error on deny.
func CheckAttempt(p models.Principal, op Operation) error {
	if d := CanAttempt(p, op); !d.Allowed {
		return apperr.Forbidden(d.Reason)
	}
	return nil
}
