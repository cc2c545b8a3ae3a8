package projections

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"fitadmin/internal/application/listutil"
	"fitadmin/internal/domain/calendar"
	domainMember "fitadmin/internal/domain/member"
	"fitadmin/internal/domain/membership"
)

// MemberSortColumns are the accepted sort keys for the member list.
var MemberSortColumns = []string{"name", "joining_date", "status", "days_overdue"}

// GetMemberListQuery carries query parameters.
type GetMemberListQuery struct {
	Status string // empty for all
	Search string // matches name, phone or identity number
	listutil.PageParams
	listutil.SortParams
}

// MemberWithStatus is a member row with its derived status fields.
type MemberWithStatus struct {
	domainMember.Member
	HasPayment    bool   `json:"has_payment"`
	NextDueDate   string `json:"next_due_date,omitempty"`
	DaysOverdue   int    `json:"days_overdue"`
	DaysRemaining int    `json:"days_remaining"`
}

// MarshalJSON inlines the member's wire form next to the status fields.
func (r MemberWithStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		domainMember.Wire
		HasPayment    bool   `json:"has_payment"`
		NextDueDate   string `json:"next_due_date,omitempty"`
		DaysOverdue   int    `json:"days_overdue"`
		DaysRemaining int    `json:"days_remaining"`
	}{r.Member.Wire(), r.HasPayment, r.NextDueDate, r.DaysOverdue, r.DaysRemaining})
}

// GetMemberListResult carries the query result.
type GetMemberListResult struct {
	Members []MemberWithStatus
	Page    listutil.PageInfo
}

// GetMemberListDeps holds dependencies for GetMemberList.
type GetMemberListDeps struct {
	MemberStore  MemberStore
	PaymentStore PaymentStore
	Clock        Clock
}

// QueryGetMemberList lists members with status derived from one ledger snapshot.
// PRE: Status is empty or a member status value
// POST: Members are filtered on the derived status, not the cached column
// INVARIANT: Page.Total counts every match before paging
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps) (GetMemberListResult, error) {
	members, err := deps.MemberStore.ListAll(ctx)
	if err != nil {
		return GetMemberListResult{}, err
	}
	payments, err := deps.PaymentStore.ListAll(ctx)
	if err != nil {
		return GetMemberListResult{}, err
	}
	results := membership.ComputeAll(members, payments, deps.Clock.now(), deps.Clock.location())

	search := strings.ToLower(strings.TrimSpace(query.Search))
	rows := make([]MemberWithStatus, 0, len(members))
	for _, m := range members {
		r := results[m.ID]
		if query.Status != "" && r.Status != query.Status {
			continue
		}
		if search != "" && !matchesSearch(m, search) {
			continue
		}
		m.Status = r.Status
		row := MemberWithStatus{
			Member:        m,
			HasPayment:    r.HasPayment,
			DaysOverdue:   r.DaysOverdue,
			DaysRemaining: r.DaysRemaining,
		}
		if r.NextDueDate != nil {
			row.NextDueDate = calendar.Format(*r.NextDueDate)
		}
		rows = append(rows, row)
	}
	sortMembers(rows, query.SortParams)

	return GetMemberListResult{
		Members: listutil.Page(rows, query.PageParams),
		Page:    listutil.NewPageInfo(query.PageParams, len(rows)),
	}, nil
}

func matchesSearch(m domainMember.Member, term string) bool {
	return strings.Contains(strings.ToLower(m.Name), term) ||
		strings.Contains(m.Phone, term) ||
		strings.Contains(strings.ToLower(m.IdentityNumber), term)
}

func sortMembers(rows []MemberWithStatus, s listutil.SortParams) {
	less := func(a, b MemberWithStatus) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	switch s.Sort {
	case "joining_date":
		less = func(a, b MemberWithStatus) bool { return a.JoiningDate.Before(b.JoiningDate) }
	case "status":
		less = func(a, b MemberWithStatus) bool { return a.Status < b.Status }
	case "days_overdue":
		less = func(a, b MemberWithStatus) bool { return a.DaysOverdue < b.DaysOverdue }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if s.Desc() {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}
