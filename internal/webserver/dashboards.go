package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lachlan2k/school-portal/internal/accesscontrol"
	"github.com/lachlan2k/school-portal/internal/api"
	"github.com/lachlan2k/school-portal/internal/session"
)

type DashboardRes struct {
	User    session.User       `json:"user"`
	Role    accesscontrol.Role `json:"role"`
	Summary *api.Summary       `json:"summary,omitempty"`

	// Collection name => records, for the dashboards that list something
	Lists map[string][]api.Record `json:"lists,omitempty"`
}

type dashboard struct {
	path    string
	allowed []accesscontrol.Role

	summary bool
	lists   []lister
}

// lister picks the collection a dashboard lists
type lister func(*api.Client) *api.Resource

func subjects(c *api.Client) *api.Resource { return c.Subjects().Resource }
func terms(c *api.Client) *api.Resource    { return c.Terms().Resource }

var dashboards = []dashboard{
	{
		path:    "/super-admin/dashboard",
		allowed: []accesscontrol.Role{accesscontrol.RoleSuperSuperAdmin, accesscontrol.RoleSuperAdmin},
		summary: true,
		lists:   []lister{(*api.Client).Schools},
	},
	{
		path:    "/admin/dashboard",
		allowed: []accesscontrol.Role{accesscontrol.RoleSchoolAdmin},
		summary: true,
		lists:   []lister{terms, (*api.Client).AcademicSessions},
	},
	{
		path:    "/teacher/dashboard",
		allowed: []accesscontrol.Role{accesscontrol.RoleTeacher, accesscontrol.RoleClassTeacher},
		lists:   []lister{(*api.Client).Classes, subjects},
	},
	{
		path:    "/bursar/dashboard",
		allowed: []accesscontrol.Role{accesscontrol.RoleBursar},
		lists:   []lister{(*api.Client).Students},
	},
	{
		path:    "/student/dashboard",
		allowed: []accesscontrol.Role{accesscontrol.RoleStudent},
		lists:   []lister{subjects},
	},
	{
		path:    "/parent/dashboard",
		allowed: []accesscontrol.Role{accesscontrol.RoleParent},
		lists:   []lister{(*api.Client).Students},
	},
	{
		// Anyone signed in, including roles the portal doesn't know
		path: accesscontrol.DefaultDestination,
	},
}

func (w *Webserver) registerDashboards() {
	for _, d := range dashboards {
		w.echo.GET(d.path, w.dashboardRouteHandler(d), w.requirePage(d.allowed...))
	}
}

func (w *Webserver) dashboardRouteHandler(d dashboard) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := currentSession(c)
		client := w.api.WithToken(sess.GetToken())
		ctx := c.Request().Context()

		res := DashboardRes{
			User: sess.User,
			Role: sess.Role(),
		}

		if d.summary {
			summary, err := client.Summary(ctx)
			if err != nil {
				return fromAPIError(err)
			}
			res.Summary = summary
		}

		if len(d.lists) > 0 {
			res.Lists = make(map[string][]api.Record, len(d.lists))
		}

		for _, list := range d.lists {
			resource := list(client)

			records, err := resource.List(ctx, nil)
			if err != nil {
				return fromAPIError(err)
			}
			res.Lists[resource.Name()] = records
		}

		return c.JSON(http.StatusOK, res)
	}
}
