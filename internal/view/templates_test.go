package view

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-sms/meridian-sms/internal/nav"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

// Every page guards its payload behind {{with .Data}}, so each one must
// execute cleanly with an empty TemplateData.
func TestRenderAllPages(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err)

	pages := []string{
		"pages/login.html",
		"pages/denied.html",
		"pages/dashboard/home.html",
		"pages/dashboard/teacher.html",
		"pages/dashboard/student.html",
		"pages/dashboard/parent.html",
		"pages/students/list.html",
		"pages/students/detail.html",
		"pages/students/form.html",
		"pages/staff/list.html",
		"pages/staff/detail.html",
		"pages/staff/form.html",
		"pages/classes/list.html",
		"pages/classes/detail.html",
		"pages/classes/form.html",
		"pages/attendance/register.html",
		"pages/attendance/student.html",
		"pages/gradebook/picker.html",
		"pages/gradebook/sheet.html",
		"pages/gradebook/results.html",
		"pages/assessments/list.html",
		"pages/fees/index.html",
		"pages/fees/ledger.html",
		"pages/timetable/grid.html",
		"pages/reports/index.html",
		"pages/idcards/index.html",
		"pages/invites/list.html",
		"pages/invites/accept.html",
		"pages/invites/invalid.html",
		"pages/users/list.html",
		"pages/settings/index.html",
		"pages/audit/list.html",
	}
	data := TemplateData{
		Title:       "Test",
		CSRFToken:   "token",
		CurrentPath: "/",
		Nav:         []nav.Item{{Title: "Dashboard", URL: "/"}},
	}
	for _, name := range pages {
		rec := httptest.NewRecorder()
		assert.NoError(t, engine.Render(rec, name, data), "render %s", name)
	}
}
