package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// Record is an entity as the API returns it. The portal doesn't model entity fields
type Record map[string]any

type Resource struct {
	client *Client
	name   string
	path   string
}

var resourcePaths = map[string]string{
	"classes":  "/classes",
	"students": "/students",
	"teachers": "/teachers",
	"subjects": "/subjects",
	"schools":  "/schools",
	"terms":    "/terms",
	"sessions": "/sessions",
}

// Resource looks up one of the known entity collections by name
func (c *Client) Resource(name string) (*Resource, bool) {
	path, ok := resourcePaths[name]
	if !ok {
		return nil, false
	}
	return &Resource{client: c, name: name, path: path}, true
}

func (c *Client) resource(name string) *Resource {
	r, _ := c.Resource(name)
	return r
}

func (c *Client) Classes() *Resource  { return c.resource("classes") }
func (c *Client) Students() *Resource { return c.resource("students") }
func (c *Client) Teachers() *Resource { return c.resource("teachers") }
func (c *Client) Schools() *Resource  { return c.resource("schools") }

// AcademicSessions are the school years terms belong to
func (c *Client) AcademicSessions() *Resource { return c.resource("sessions") }

func (r *Resource) Name() string {
	return r.name
}

func (r *Resource) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Resource) List(ctx context.Context, query url.Values) ([]Record, error) {
	path := r.path
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	data, err := r.client.call(ctx, r.name, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0)
	if len(data) == 0 || string(data) == "null" {
		return records, nil
	}

	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't decode %s list", r.name)
	}

	return records, nil
}

func (r *Resource) Get(ctx context.Context, id string) (Record, error) {
	data, err := r.client.call(ctx, r.name, http.MethodGet, r.itemPath(id), nil)
	if err != nil {
		return nil, err
	}
	return r.decode(data)
}

func (r *Resource) Create(ctx context.Context, rec Record) (Record, error) {
	data, err := r.client.call(ctx, r.name, http.MethodPost, r.path, rec)
	if err != nil {
		return nil, err
	}
	return r.decode(data)
}

func (r *Resource) Update(ctx context.Context, id string, rec Record) (Record, error) {
	data, err := r.client.call(ctx, r.name, http.MethodPut, r.itemPath(id), rec)
	if err != nil {
		return nil, err
	}
	return r.decode(data)
}

func (r *Resource) Delete(ctx context.Context, id string) error {
	_, err := r.client.call(ctx, r.name, http.MethodDelete, r.itemPath(id), nil)
	return err
}

func (r *Resource) decode(data json.RawMessage) (Record, error) {
	if len(data) == 0 || string(data) == "null" {
		return Record{}, nil
	}

	rec := make(Record)
	err := json.Unmarshal(data, &rec)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't decode %s record", r.name)
	}
	return rec, nil
}

type SubjectResource struct {
	*Resource
}

func (c *Client) Subjects() *SubjectResource {
	return &SubjectResource{c.resource("subjects")}
}

type joinPermissionReq struct {
	AllowJoin bool `json:"allowJoin"`
}

// SetJoinPermission controls whether students may join the subject themselves
func (s *SubjectResource) SetJoinPermission(ctx context.Context, id string, allowed bool) (Record, error) {
	data, err := s.client.call(ctx, s.name, http.MethodPatch, s.itemPath(id)+"/join-permission", joinPermissionReq{AllowJoin: allowed})
	if err != nil {
		return nil, err
	}
	return s.decode(data)
}

type TermResource struct {
	*Resource
}

func (c *Client) Terms() *TermResource {
	return &TermResource{c.resource("terms")}
}

// SetCurrent marks the term as the school's active term
func (t *TermResource) SetCurrent(ctx context.Context, id string) (Record, error) {
	data, err := t.client.call(ctx, t.name, http.MethodPatch, t.itemPath(id)+"/set-current", nil)
	if err != nil {
		return nil, err
	}
	return t.decode(data)
}
