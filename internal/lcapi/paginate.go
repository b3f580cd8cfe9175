package lcapi

import (
	"context"
	"net/url"
	"strconv"
)

// fetchAll drives skip/top pagination over a list endpoint until either the
// accumulated count reaches the server-reported itemCount or a page comes
// back short. Pages are fetched in skip-ascending order. The second return
// is the number of API calls made, counting a page that fails; an auth
// retry inside get counts as one call and does not restart pagination.
func fetchAll[T any](ctx context.Context, c *Client, path string, base url.Values, pageSize int, global bool) ([]T, int, error) {
	var all []T
	calls := 0
	skip := 0

	for {
		q := url.Values{}
		for k, v := range base {
			q[k] = v
		}
		q.Set("top", strconv.Itoa(pageSize))
		q.Set("skip", strconv.Itoa(skip))

		var page envelope[T]
		err := c.get(ctx, path, q, global, &page)
		calls++
		if err != nil {
			return nil, calls, err
		}

		all = append(all, page.Items...)
		if len(all) >= page.ItemCount || len(page.Items) < pageSize {
			return all, calls, nil
		}
		skip += pageSize
	}
}
