// Package dashboard holds the fixed datasets the role dashboards render:
// stat cards, tables and chart series. Nothing here is computed.
package dashboard

import "messmate/internal/domain"

type Card struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
	Trend  string `json:"trend,omitempty"`
}

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type Dataset struct {
	Role   string           `json:"role"`
	Cards  []Card           `json:"cards"`
	Tables map[string]Table `json:"tables"`
	Charts []Series         `json:"charts"`
}

var months = []string{"May", "Jun", "Jul", "Aug", "Sep", "Oct"}

func series(name string, values ...float64) Series {
	s := Series{Name: name, Points: make([]Point, len(values))}
	for i, v := range values {
		s.Points[i] = Point{Label: months[i%len(months)], Value: v}
	}
	return s
}

func admin() Dataset {
	return Dataset{
		Role: domain.RoleAdmin,
		Cards: []Card{
			{Label: "Total Messes", Value: "48", Change: "+4", Trend: "up"},
			{Label: "Active Users", Value: "2,315", Change: "+12%", Trend: "up"},
			{Label: "Monthly Revenue", Value: "₹4,82,300", Change: "+8.1%", Trend: "up"},
			{Label: "Pending Approvals", Value: "7", Change: "-2", Trend: "down"},
		},
		Tables: map[string]Table{
			"messes": {
				Columns: []string{"Name", "Owner", "City", "Members", "Status"},
				Rows: [][]string{
					{"Green Leaf Mess", "Ravi Kumar", "Pune", "124", "active"},
					{"Annapurna Kitchen", "Meera Joshi", "Nagpur", "86", "active"},
					{"Student Tiffin Hub", "Arjun Patil", "Pune", "57", "pending"},
					{"Home Taste", "Sana Shaikh", "Mumbai", "102", "suspended"},
				},
			},
			"recentUsers": {
				Columns: []string{"Name", "Email", "Role", "Joined"},
				Rows: [][]string{
					{"Priya Nair", "priya@example.com", domain.RoleUser, "2026-10-12"},
					{"Karan Mehta", "karan@example.com", domain.RoleMessOwner, "2026-10-10"},
					{"Ananya Rao", "ananya@example.com", domain.RoleUser, "2026-10-08"},
				},
			},
		},
		Charts: []Series{
			series("revenue", 312000, 351500, 389000, 402750, 446100, 482300),
			series("signups", 180, 214, 260, 241, 298, 335),
		},
	}
}

func owner() Dataset {
	return Dataset{
		Role: domain.RoleMessOwner,
		Cards: []Card{
			{Label: "Members", Value: "124", Change: "+6", Trend: "up"},
			{Label: "Meals Served Today", Value: "318"},
			{Label: "Dues Outstanding", Value: "₹18,450", Change: "-5%", Trend: "down"},
			{Label: "Leave Requests", Value: "3"},
		},
		Tables: map[string]Table{
			"members": {
				Columns: []string{"Name", "Plan", "Paid Until", "Status"},
				Rows: [][]string{
					{"Rahul Deshmukh", "Monthly (2 meals)", "2026-10-31", "paid"},
					{"Sneha Kulkarni", "Monthly (3 meals)", "2026-10-15", "due"},
					{"Vikram Singh", "Weekly", "2026-10-19", "paid"},
				},
			},
			"leaveRequests": {
				Columns: []string{"Member", "From", "To", "Status"},
				Rows: [][]string{
					{"Sneha Kulkarni", "2026-10-20", "2026-10-22", "pending"},
					{"Amit Verma", "2026-10-18", "2026-10-18", "approved"},
					{"Farah Khan", "2026-10-25", "2026-10-28", "pending"},
				},
			},
			"menu": {
				Columns: []string{"Day", "Lunch", "Dinner"},
				Rows: [][]string{
					{"Monday", "Dal, Rice, Roti, Sabzi", "Paneer Masala, Roti"},
					{"Tuesday", "Rajma Chawal", "Veg Pulao, Raita"},
					{"Wednesday", "Chole, Puri", "Khichdi, Kadhi"},
				},
			},
		},
		Charts: []Series{
			series("mealsServed", 8120, 8430, 8790, 8610, 9050, 9240),
			series("collections", 98000, 102500, 99800, 108200, 111000, 114600),
		},
	}
}

func user() Dataset {
	return Dataset{
		Role: domain.RoleUser,
		Cards: []Card{
			{Label: "Current Plan", Value: "Monthly (2 meals)"},
			{Label: "Meals This Month", Value: "28"},
			{Label: "Amount Due", Value: "₹2,450.50"},
			{Label: "Leaves Taken", Value: "2"},
		},
		Tables: map[string]Table{
			"payments": {
				Columns: []string{"Date", "Amount", "Method", "Status"},
				Rows: [][]string{
					{"2026-09-01", "₹2,400.00", "UPI", "paid"},
					{"2026-08-01", "₹2,400.00", "Cash", "paid"},
					{"2026-10-01", "₹2,450.50", "", "due"},
				},
			},
			"leaves": {
				Columns: []string{"From", "To", "Status"},
				Rows: [][]string{
					{"2026-09-14", "2026-09-15", "approved"},
					{"2026-10-20", "2026-10-22", "pending"},
				},
			},
		},
		Charts: []Series{
			series("mealsTaken", 52, 56, 49, 58, 54, 28),
		},
	}
}

// ForRole returns the dataset for role and false for an unknown role.
func ForRole(role string) (Dataset, bool) {
	switch role {
	case domain.RoleAdmin:
		return admin(), true
	case domain.RoleMessOwner:
		return owner(), true
	case domain.RoleUser:
		return user(), true
	}
	return Dataset{}, false
}
