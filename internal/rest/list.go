package rest

import (
	"context"
	"encoding/json"

	"github.com/simp-lee/dinesync/internal/domain"
	"github.com/simp-lee/dinesync/internal/listsync"
)

// List endpoints return their records under resource-specific field
// names (meals, users, reviews, requests) rather than one uniform key.
// FetchList isolates that inconsistency: it decodes whichever field the
// endpoint uses and normalizes the payload into the uniform ListResult
// shape the list-sync core works with.

// FetchList issues a list GET and normalizes the response. itemsField
// names the field the endpoint nests its records under; "items" is
// always accepted as a fallback.
func FetchList[T any](ctx context.Context, c *Client, path string, params map[string]string, itemsField string, opts ...CallOption) (listsync.ListResult[T], error) {
	var raw map[string]json.RawMessage
	if err := c.Get(ctx, path, params, &raw, opts...); err != nil {
		return listsync.ListResult[T]{}, err
	}
	return decodeListPayload[T](raw, path, itemsField)
}

func decodeListPayload[T any](raw map[string]json.RawMessage, path, itemsField string) (listsync.ListResult[T], error) {
	var result listsync.ListResult[T]

	if totalRaw, ok := raw["total"]; ok {
		if err := json.Unmarshal(totalRaw, &result.TotalCount); err != nil {
			return result, domain.NewAppError(domain.CodeInternal, "malformed total in "+path+" response", err)
		}
	}
	if result.TotalCount < 0 {
		result.TotalCount = 0
	}

	itemsRaw, ok := raw[itemsField]
	if !ok {
		itemsRaw, ok = raw["items"]
	}
	if !ok {
		// An endpoint omitting the field entirely means an empty page.
		result.Items = []T{}
		return result, nil
	}

	if err := json.Unmarshal(itemsRaw, &result.Items); err != nil {
		return result, domain.NewAppError(domain.CodeInternal, "malformed record list in "+path+" response", err)
	}
	if result.Items == nil {
		result.Items = []T{}
	}
	return result, nil
}
