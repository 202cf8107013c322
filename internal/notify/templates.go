package notify

import (
	"encoding/json"
	"fmt"
)

// Template inputs leave UserID empty; callers set it.

func MealReady(messName, mealType string) Input {
	return Input{
		Title:    "Meal Ready",
		Body:     fmt.Sprintf("Your %s is ready at %s", mealType, messName),
		Tag:      "meal-ready",
		Category: CategoryMealReady,
		Priority: PriorityHigh,
		Data:     rawData(map[string]string{"messName": messName, "mealType": mealType, "url": "/user/dashboard"}),
		Actions: []Action{
			{Action: "view", Title: "View Menu"},
			{Action: "dismiss", Title: "Dismiss"},
		},
	}
}

func PaymentDue(amount float64, dueDate string) Input {
	return Input{
		Title:    "Payment Due",
		Body:     fmt.Sprintf("Your mess bill of ₹%.2f is due on %s", amount, dueDate),
		Tag:      "payment-due",
		Category: CategoryPaymentDue,
		Priority: PriorityHigh,
		Data:     rawData(map[string]interface{}{"amount": amount, "dueDate": dueDate, "url": "/user/payments"}),
		Actions: []Action{
			{Action: "pay", Title: "Pay Now"},
			{Action: "remind", Title: "Remind Later"},
		},
	}
}

// LeaveStatus builds the approved or rejected leave notification.
func LeaveStatus(approved bool, startDate, endDate string) Input {
	in := Input{
		Tag:      "leave-status",
		Priority: PriorityNormal,
		Data:     rawData(map[string]interface{}{"approved": approved, "startDate": startDate, "endDate": endDate, "url": "/user/leaves"}),
		Actions: []Action{
			{Action: "view", Title: "View Details"},
		},
	}
	if approved {
		in.Title = "Leave Approved"
		in.Body = fmt.Sprintf("Your leave from %s to %s has been approved", startDate, endDate)
		in.Category = CategoryLeaveApproved
	} else {
		in.Title = "Leave Rejected"
		in.Body = fmt.Sprintf("Your leave from %s to %s has been rejected", startDate, endDate)
		in.Category = CategoryLeaveRejected
	}
	return in
}

func SystemUpdate(version string) Input {
	return Input{
		Title:    "System Update",
		Body:     fmt.Sprintf("Version %s is now available with new features and improvements", version),
		Tag:      "system-update",
		Category: CategorySystemUpdate,
		Priority: PriorityLow,
		Data:     rawData(map[string]string{"version": version}),
		Actions: []Action{
			{Action: "update", Title: "Update Now"},
			{Action: "later", Title: "Later"},
		},
	}
}

// TemplateParams names the parameters accepted by FromTemplate.
type TemplateParams struct {
	MessName  string  `json:"messName"`
	MealType  string  `json:"mealType"`
	Amount    float64 `json:"amount"`
	DueDate   string  `json:"dueDate"`
	Approved  bool    `json:"approved"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Version   string  `json:"version"`
}

// FromTemplate builds the named template. Names match the category of the
// template, with "leave-status" covering both leave outcomes.
func FromTemplate(name string, p TemplateParams) (Input, error) {
	switch name {
	case string(CategoryMealReady):
		return MealReady(p.MessName, p.MealType), nil
	case string(CategoryPaymentDue):
		return PaymentDue(p.Amount, p.DueDate), nil
	case "leave-status":
		return LeaveStatus(p.Approved, p.StartDate, p.EndDate), nil
	case string(CategorySystemUpdate):
		return SystemUpdate(p.Version), nil
	}
	return Input{}, fmt.Errorf("unknown notification template %q", name)
}

func rawData(v interface{}) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
