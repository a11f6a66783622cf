package dataprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Record is one backend object. Numbers decode as json.Number so ids survive
// the round trip unchanged.
type Record map[string]any

// ID returns the record id rendered as a string.
func (r Record) ID() string {
	v, ok := FormatValue(r["id"])
	if !ok {
		return ""
	}
	return v
}

type ListResult struct {
	Data  []Record `json:"data"`
	Total int      `json:"total"`
}

// Provider runs generic CRUD against the backend on behalf of one session.
// A 401 is answered with exactly one token refresh and one replay.
type Provider struct {
	client  *Client
	session Session
}

// SessionID of the session the provider acts for.
func (p *Provider) SessionID() string { return p.session.ID() }

// Do sends req with the session token. When the backend rejects the token the
// session is refreshed once and req replayed once; if that fails too the
// session is torn down and ErrSessionExpired returned.
func (p *Provider) Do(ctx context.Context, req Request) (*Response, error) {
	token, err := p.session.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.send(ctx, req, token)
	if !isUnauthorized(err) {
		return resp, err
	}

	fresh, rerr := p.client.refresh(ctx, p.session)
	if rerr != nil {
		if Abandoned(ctx, rerr) {
			return nil, errors.Join(ctx.Err(), rerr)
		}
		return nil, p.client.expire(ctx, p.session, rerr)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp, err = p.client.send(ctx, req, fresh)
	if isUnauthorized(err) {
		return nil, p.client.expire(ctx, p.session, err)
	}
	return resp, err
}

// DoJSON is Do followed by decoding the body into out.
func (p *Provider) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := p.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	return decode(resp.Body, out)
}

func decode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("dataprovider: decode response: %w", err)
	}
	return nil
}

// Paths stay unescaped; url.URL escapes them when the request is built.
func collection(resource string) string {
	return resource + "/"
}

func item(resource, id string) string {
	return resource + "/" + id + "/"
}

// List fetches one page of resource.
func (p *Provider) List(ctx context.Context, resource string, params ListParams) (*ListResult, error) {
	resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: collection(resource), Query: ListQuery(params)})
	if err != nil {
		return nil, err
	}
	return decodeList(resp)
}

func (p *Provider) GetOne(ctx context.Context, resource, id string) (Record, error) {
	var rec Record
	if err := p.DoJSON(ctx, Request{Method: http.MethodGet, Path: item(resource, id)}, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Create posts data and returns it completed with the id the backend
// assigned.
func (p *Provider) Create(ctx context.Context, resource string, data Record) (Record, error) {
	var created Record
	if err := p.DoJSON(ctx, Request{Method: http.MethodPost, Path: collection(resource), Body: data}, &created); err != nil {
		return nil, err
	}
	out := make(Record, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = created["id"]
	return out, nil
}

// Update patches the record and returns the backend's version of it.
func (p *Provider) Update(ctx context.Context, resource, id string, data Record) (Record, error) {
	var updated Record
	if err := p.DoJSON(ctx, Request{Method: http.MethodPatch, Path: item(resource, id), Body: data}, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the record and hands back previous, the caller's last copy.
func (p *Provider) Delete(ctx context.Context, resource, id string, previous Record) (Record, error) {
	if _, err := p.Do(ctx, Request{Method: http.MethodDelete, Path: item(resource, id)}); err != nil {
		return nil, err
	}
	return previous, nil
}

// GetMany fetches the records with the given ids in one call.
func (p *Provider) GetMany(ctx context.Context, resource string, ids []string) ([]Record, error) {
	var q Query
	q.Add("id__in", strings.Join(ids, ","))
	resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: collection(resource), Query: q})
	if err != nil {
		return nil, err
	}
	list, err := decodeList(resp)
	if err != nil {
		return nil, err
	}
	return list.Data, nil
}

// GetManyReference lists the records of resource whose target field points at
// params.ID.
func (p *Provider) GetManyReference(ctx context.Context, resource string, params ReferenceParams) (*ListResult, error) {
	resp, err := p.Do(ctx, Request{Method: http.MethodGet, Path: collection(resource), Query: ReferenceQuery(params)})
	if err != nil {
		return nil, err
	}
	return decodeList(resp)
}

// decodeList accepts the paginated {results, count} shape and a bare array
// whose total travels in X-Total-Count.
func decodeList(resp *Response) (*ListResult, error) {
	body := bytes.TrimSpace(resp.Body)
	result := &ListResult{Data: []Record{}}
	if len(body) == 0 {
		return result, nil
	}

	if body[0] == '[' {
		if err := decode(body, &result.Data); err != nil {
			return nil, err
		}
		result.Total = headerTotal(resp.Header)
		return result, nil
	}

	var page struct {
		Results []Record     `json:"results"`
		Count   *json.Number `json:"count"`
	}
	if err := decode(body, &page); err != nil {
		return nil, err
	}
	if page.Results != nil {
		result.Data = page.Results
	}
	if page.Count != nil {
		n, err := page.Count.Int64()
		if err != nil {
			return nil, fmt.Errorf("dataprovider: count %q: %w", page.Count.String(), err)
		}
		result.Total = int(n)
	} else {
		result.Total = headerTotal(resp.Header)
	}
	return result, nil
}

func headerTotal(h http.Header) int {
	n, err := strconv.Atoi(h.Get("X-Total-Count"))
	if err != nil {
		return 0
	}
	return n
}
