package webserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lachlan2k/school-portal/internal/api"
)

// scopedClient is the API client carrying the current user's token
func (w *Webserver) scopedClient(c echo.Context) *api.Client {
	return w.api.WithToken(currentSession(c).GetToken())
}

func (w *Webserver) resourceFromPath(c echo.Context) (*api.Resource, error) {
	resource, ok := w.scopedClient(c).Resource(c.Param("resource"))
	if !ok {
		return nil, errUnknownEntity
	}
	return resource, nil
}

func (w *Webserver) listResourceRouteHandler(c echo.Context) error {
	resource, err := w.resourceFromPath(c)
	if err != nil {
		return err
	}

	records, err := resource.List(c.Request().Context(), c.QueryParams())
	if err != nil {
		return fromAPIError(err)
	}

	return c.JSON(http.StatusOK, records)
}

func (w *Webserver) getResourceRouteHandler(c echo.Context) error {
	resource, err := w.resourceFromPath(c)
	if err != nil {
		return err
	}

	record, err := resource.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fromAPIError(err)
	}

	return c.JSON(http.StatusOK, record)
}

func bindRecord(c echo.Context) (api.Record, error) {
	record := make(api.Record)
	err := (&echo.DefaultBinder{}).BindBody(c, &record)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}
	return record, nil
}

func (w *Webserver) createResourceRouteHandler(c echo.Context) error {
	resource, err := w.resourceFromPath(c)
	if err != nil {
		return err
	}

	record, err := bindRecord(c)
	if err != nil {
		return err
	}

	created, err := resource.Create(c.Request().Context(), record)
	if err != nil {
		return fromAPIError(err)
	}

	return c.JSON(http.StatusCreated, created)
}

func (w *Webserver) updateResourceRouteHandler(c echo.Context) error {
	resource, err := w.resourceFromPath(c)
	if err != nil {
		return err
	}

	record, err := bindRecord(c)
	if err != nil {
		return err
	}

	updated, err := resource.Update(c.Request().Context(), c.Param("id"), record)
	if err != nil {
		return fromAPIError(err)
	}

	return c.JSON(http.StatusOK, updated)
}

func (w *Webserver) deleteResourceRouteHandler(c echo.Context) error {
	resource, err := w.resourceFromPath(c)
	if err != nil {
		return err
	}

	err = resource.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fromAPIError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

type joinPermissionReq struct {
	AllowJoin *bool `json:"allowJoin"`
}

func (w *Webserver) joinPermissionRouteHandler(c echo.Context) error {
	var req joinPermissionReq
	err := (&echo.DefaultBinder{}).BindBody(c, &req)
	if err != nil || req.AllowJoin == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "allowJoin must be supplied")
	}

	record, err := w.scopedClient(c).Subjects().SetJoinPermission(c.Request().Context(), c.Param("id"), *req.AllowJoin)
	if err != nil {
		return fromAPIError(err)
	}

	return c.JSON(http.StatusOK, record)
}

func (w *Webserver) currentTermRouteHandler(c echo.Context) error {
	record, err := w.scopedClient(c).Terms().SetCurrent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fromAPIError(err)
	}

	return c.JSON(http.StatusOK, record)
}
