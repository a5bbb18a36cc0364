package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/continuum/pkg/core"
)

// DocumentClient is a thin read client over the document service, with the
// governed-flag pass-through.
//
//	GET   {base}/documents       -> [CanonicalDocument]
//	GET   {base}/documents/{id}  -> CanonicalDocument
//	PATCH {base}/documents/{id}  <- {"governed": bool}
type DocumentClient struct {
	c *client
}

// NewDocumentClient creates a DocumentClient.
func NewDocumentClient(cfg Config) (*DocumentClient, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &DocumentClient{c: c}, nil
}

// List returns the documents in the order the service sends them.
func (d *DocumentClient) List(ctx context.Context) ([]core.CanonicalDocument, error) {
	var docs []core.CanonicalDocument
	if err := d.c.do(ctx, http.MethodGet, []string{"documents"}, nil, &docs); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns one document. A 404 satisfies errors.Is(err, core.ErrNotFound).
func (d *DocumentClient) Get(ctx context.Context, id string) (core.CanonicalDocument, error) {
	var doc core.CanonicalDocument
	if err := d.c.do(ctx, http.MethodGet, []string{"documents", id}, nil, &doc); err != nil {
		return core.CanonicalDocument{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// SetGoverned toggles the governed flag through the document service.
func (d *DocumentClient) SetGoverned(ctx context.Context, id string, governed bool) error {
	body := struct {
		Governed bool `json:"governed"`
	}{governed}
	if err := d.c.do(ctx, http.MethodPatch, []string{"documents", id}, body, nil); err != nil {
		return fmt.Errorf("set governed on %s: %w", id, err)
	}
	return nil
}

// ComponentType implements introspection.Component.
func (d *DocumentClient) ComponentType() string {
	return "remote-document-store"
}

var (
	_ core.DocumentStore     = (*DocumentClient)(nil)
	_ core.GovernanceToggler = (*DocumentClient)(nil)
)
