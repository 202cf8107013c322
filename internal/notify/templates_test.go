package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionIDs(actions []Action) []string {
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.Action)
	}
	return ids
}

func TestMealReady(t *testing.T) {
	in := MealReady("Green Leaf Mess", "lunch")
	assert.Equal(t, CategoryMealReady, in.Category)
	assert.Equal(t, "Your lunch is ready at Green Leaf Mess", in.Body)
	assert.Equal(t, []string{"view", "dismiss"}, actionIDs(in.Actions))
	assert.Empty(t, in.UserID)
}

func TestPaymentDue(t *testing.T) {
	in := PaymentDue(2450.5, "2026-11-05")
	assert.Equal(t, CategoryPaymentDue, in.Category)
	assert.Contains(t, in.Body, "2450.50")
	assert.Contains(t, in.Body, "2026-11-05")
	assert.Equal(t, []string{"Pay Now", "Remind Later"}, []string{in.Actions[0].Title, in.Actions[1].Title})

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(in.Data, &data))
	assert.Equal(t, 2450.5, data["amount"])
}

func TestLeaveStatus(t *testing.T) {
	ok := LeaveStatus(true, "2026-10-20", "2026-10-22")
	assert.Equal(t, CategoryLeaveApproved, ok.Category)
	assert.Equal(t, "Leave Approved", ok.Title)
	assert.Contains(t, ok.Body, "approved")

	no := LeaveStatus(false, "2026-10-20", "2026-10-22")
	assert.Equal(t, CategoryLeaveRejected, no.Category)
	assert.Equal(t, "Leave Rejected", no.Title)
	assert.Contains(t, no.Body, "rejected")
}

func TestSystemUpdate(t *testing.T) {
	in := SystemUpdate("2.4.0")
	assert.Equal(t, CategorySystemUpdate, in.Category)
	assert.Equal(t, PriorityLow, in.Priority)
	assert.Contains(t, in.Body, "2.4.0")
}

func TestTemplatesUseKnownEnums(t *testing.T) {
	for _, in := range []Input{
		MealReady("m", "dinner"),
		PaymentDue(10, "d"),
		LeaveStatus(true, "a", "b"),
		LeaveStatus(false, "a", "b"),
		SystemUpdate("1"),
	} {
		assert.True(t, in.Category.Valid(), in.Title)
		assert.True(t, in.Priority.Valid(), in.Title)
		assert.True(t, json.Valid(in.Data), in.Title)
	}
}

func TestFromTemplate(t *testing.T) {
	in, err := FromTemplate("payment-due", TemplateParams{Amount: 99, DueDate: "tomorrow"})
	require.NoError(t, err)
	assert.Equal(t, CategoryPaymentDue, in.Category)

	in, err = FromTemplate("leave-status", TemplateParams{Approved: false})
	require.NoError(t, err)
	assert.Equal(t, CategoryLeaveRejected, in.Category)

	_, err = FromTemplate("promotion", TemplateParams{})
	assert.Error(t, err)
}
