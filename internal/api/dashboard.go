package api

import (
	"context"

	"github.com/pkg/errors"
)

type Summary struct {
	Classes  int `json:"classes"`
	Students int `json:"students"`
	Teachers int `json:"teachers"`
	Subjects int `json:"subjects"`
}

// Summary counts the main collections for the dashboard cards. The first failing call aborts.
// Counts are the length of each unfiltered list, so they assume the API returns whole collections
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	summary := new(Summary)
	counts := []struct {
		res *Resource
		dst *int
	}{
		{c.Classes(), &summary.Classes},
		{c.Students(), &summary.Students},
		{c.Teachers(), &summary.Teachers},
		{c.Subjects().Resource, &summary.Subjects},
	}

	for _, count := range counts {
		records, err := count.res.List(ctx, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't count %s", count.res.Name())
		}
		*count.dst = len(records)
	}

	return summary, nil
}
