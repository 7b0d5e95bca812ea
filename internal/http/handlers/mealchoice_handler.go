// Meal-choice HTTP handlers.
//
// This file exposes the read side of the API:
//   - GET /meal-choices  (all choices, newest date first, with delivery status)
//   - GET /statistics    (employee / meal-choice counts by Slack reachability)
//
// Handlers read through the thin repo layer; no business rules live here.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikola-86/jelovnik/internal/domain"
	"github.com/nikola-86/jelovnik/internal/repo"
)

// EmployeeSummary is the embedded employee shape in meal-choice listings.
type EmployeeSummary struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	SlackID string `json:"slack_id"`
}

// MealChoiceItem is one row of the meal-choice listing. SlackStatus reads
// "pending" when no delivery-status row exists yet.
type MealChoiceItem struct {
	ID          string          `json:"id"`
	Choice      string          `json:"choice"`
	Date        string          `json:"date"`
	Employee    EmployeeSummary `json:"employee"`
	SlackStatus string          `json:"slack_status"`
}

// StatisticsResponse aggregates counts for the dashboard.
type StatisticsResponse struct {
	Employees   repo.RecipientStats `json:"employees"`
	MealChoices repo.RecipientStats `json:"meal_choices"`
}

// ListMealChoices handles GET /meal-choices.
func (h *Handlers) ListMealChoices(c *gin.Context) {
	choices, err := repo.ListMealChoices(c.Request.Context(), h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	items := make([]MealChoiceItem, 0, len(choices))
	for _, mc := range choices {
		status := domain.StatusPending
		if mc.Notification != nil {
			status = mc.Notification.Status
		}
		items = append(items, MealChoiceItem{
			ID:     mc.ID,
			Choice: mc.Choice,
			Date:   mc.Date,
			Employee: EmployeeSummary{
				Name:    mc.Employee.Name,
				Email:   mc.Employee.Email,
				SlackID: mc.Employee.SlackID,
			},
			SlackStatus: status,
		})
	}
	ok(c, http.StatusOK, items)
}

// Statistics handles GET /statistics.
func (h *Handlers) Statistics(c *gin.Context) {
	ctx := c.Request.Context()

	employees, err := repo.EmployeeStats(ctx, h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	mealChoices, err := repo.MealChoiceStats(ctx, h.db)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, StatisticsResponse{
		Employees:   employees,
		MealChoices: mealChoices,
	})
}
