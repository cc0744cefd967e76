package childtrack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// envelope is the paginated response wrapper (Django REST style).
type envelope struct {
	Results json.RawMessage `json:"results"`
	Next    *string         `json:"next"`
}

// FetchAttendance returns the full public attendance collection.
func (c *Client) FetchAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	return fetchAll[AttendanceRecord](ctx, c, c.paths.Attendance)
}

// FetchEvents returns the full events collection.
func (c *Client) FetchEvents(ctx context.Context) ([]Event, error) {
	return fetchAll[Event](ctx, c, c.paths.Events)
}

// FetchGuardianRequests returns the full public guardian-requests collection.
func (c *Client) FetchGuardianRequests(ctx context.Context) ([]GuardianRequest, error) {
	return fetchAll[GuardianRequest](ctx, c, c.paths.Guardians)
}

// fetchAll walks a collection across pages, following `next` links up to
// maxPages requests. Items that fail to decode are skipped.
func fetchAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	next := c.baseURL + path
	var out []T

	for page := 0; next != "" && page < c.maxPages; page++ {
		body, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}

		raw, nextLink, err := decodeCollection(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		for _, item := range raw {
			var v T
			if err := json.Unmarshal(item, &v); err != nil {
				c.logger.Debug("skipping malformed record", "path", path, "error", err)
				continue
			}
			out = append(out, v)
		}

		next, err = c.resolve(next, nextLink)
		if err != nil {
			return nil, fmt.Errorf("resolve next link of %s: %w", path, err)
		}
	}
	if next != "" {
		c.logger.Warn("collection truncated at page limit", "path", path, "max_pages", c.maxPages)
	}
	return out, nil
}

// decodeCollection accepts a bare array or a {results, next} envelope. Any
// other valid JSON shape decodes to an empty collection.
func decodeCollection(body []byte) ([]json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", err
		}
		return items, "", nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "", err
	}
	next := ""
	if env.Next != nil {
		next = *env.Next
	}
	results := bytes.TrimSpace(env.Results)
	if len(results) == 0 || results[0] != '[' {
		return nil, next, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(results, &items); err != nil {
		return nil, "", err
	}
	return items, next, nil
}

// resolve turns a possibly relative next link into an absolute URL.
func (c *Client) resolve(current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
