package devbackend

import (
	"fmt"
	"sort"
	"strings"

	authclient "github.com/goliatone/go-auth-client"
)

const maxLimit = 1000

// listQuery mirrors authclient.Pagination. skip carries the 1 based page.
type listQuery struct {
	Skip  int    `query:"skip"`
	Limit int    `query:"limit"`
	Sort  string `query:"sort"`
	Order string `query:"order"`
}

var reservedQueryKeys = map[string]bool{
	"skip":  true,
	"limit": true,
	"sort":  true,
	"order": true,
}

// DefaultFixtures returns a few rows per section
func DefaultFixtures() map[authclient.Section][]map[string]any {
	return map[authclient.Section][]map[string]any{
		authclient.SectionDashboard: {
			{"id": 1, "metric": "patients", "value": 42},
			{"id": 2, "metric": "appointments_today", "value": 7},
		},
		authclient.SectionPatients: {
			{"id": 1, "name": "John Doe", "status": "active"},
			{"id": 2, "name": "Jane Roe", "status": "active"},
			{"id": 3, "name": "Max Power", "status": "discharged"},
		},
		authclient.SectionDoctors: {
			{"id": 1, "name": "Gregory House", "specialty": "diagnostics"},
			{"id": 2, "name": "Meredith Grey", "specialty": "surgery"},
		},
		authclient.SectionNurses: {
			{"id": 1, "name": "Florence N", "shift": "night"},
		},
		authclient.SectionAppointments: {
			{"id": 1, "patient_id": 1, "doctor_id": 1, "status": "scheduled"},
			{"id": 2, "patient_id": 2, "doctor_id": 2, "status": "done"},
		},
		authclient.SectionUsers: {
			{"id": 1, "username": "admin", "role": "admin"},
			{"id": 2, "username": "user", "role": "user"},
		},
		authclient.SectionCategories: {
			{"id": 1, "name": "Supplements"},
			{"id": 2, "name": "Devices"},
		},
		authclient.SectionProducts: {
			{"id": 1, "name": "Vitamin D", "category_id": 1, "price": 9.5},
			{"id": 2, "name": "Thermometer", "category_id": 2, "price": 15},
			{"id": 3, "name": "Omega 3", "category_id": 1, "price": 12},
		},
		authclient.SectionNotifications: {
			{"id": 1, "title": "Maintenance window", "read": false},
		},
		authclient.SectionSettings: {
			{"id": 1, "key": "clinic_name", "value": "Back Office"},
		},
	}
}

func paginate(rows []map[string]any, q listQuery, filters map[string]string) authclient.Page[map[string]any] {
	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if matches(row, filters) {
			filtered = append(filtered, row)
		}
	}

	if q.Sort != "" {
		desc := strings.EqualFold(q.Order, "desc")
		sort.SliceStable(filtered, func(i, j int) bool {
			a, b := toString(filtered[i][q.Sort]), toString(filtered[j][q.Sort])
			if desc {
				return a > b
			}
			return a < b
		})
	}

	page := q.Skip
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > maxLimit {
		limit = 10
	}

	total := len(filtered)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return authclient.Page[map[string]any]{
		Data:       filtered[start:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

func matches(row map[string]any, filters map[string]string) bool {
	for k, v := range filters {
		if toString(row[k]) != v {
			return false
		}
	}
	return true
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
