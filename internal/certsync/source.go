// Package certsync keeps the per-tenant TLS bundles under the certificate
// directory in step with the external certificate source, restarting the
// owning containers and reloading the proxy when material changes.
//
// Certificate issuance itself (ACME, self-signed generation) is not this
// package's business: it only consumes certificate bytes.
package certsync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// Material is one domain's certificate as returned by the source.
type Material struct {
	// CertPEM is the PEM-encoded certificate chain.
	CertPEM []byte

	// KeyPEM is the PEM-encoded private key.
	KeyPEM []byte

	// External marks CA-signed material. Only external certificates are
	// written to disk; placeholder self-signed material is ignored.
	External bool
}

// Source is the collaborator interface over the external certificate
// store.
type Source interface {
	// Fetch returns the current certificate for the instance's domain.
	Fetch(ctx context.Context, instance, domain string) (Material, error)
}

// HTTPSource fetches certificates from a local certificate agent over
// HTTP. The agent responds with a JSON document carrying PEM strings:
//
//	{"certificate": "-----BEGIN...", "private_key": "-----BEGIN...", "external": true}
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates an HTTP certificate source. A nil client gets a
// default with a 15s timeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPSource{baseURL: baseURL, client: client}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, instance, domain string) (Material, error) {
	endpoint := fmt.Sprintf("%s/v1/certificates/%s?instance=%s",
		s.baseURL, url.PathEscape(domain), url.QueryEscape(instance))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Material{}, fmt.Errorf("certsync: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Material{}, fmt.Errorf("certsync: fetch %s: %w", domain, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Material{}, fmt.Errorf("certsync: fetch %s: unexpected status %d", domain, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Material{}, fmt.Errorf("certsync: read response for %s: %w", domain, err)
	}

	doc := gjson.ParseBytes(body)
	material := Material{
		CertPEM:  []byte(doc.Get("certificate").String()),
		KeyPEM:   []byte(doc.Get("private_key").String()),
		External: doc.Get("external").Bool(),
	}
	if len(material.CertPEM) == 0 || len(material.KeyPEM) == 0 {
		return Material{}, fmt.Errorf("certsync: agent returned empty material for %s", domain)
	}

	return material, nil
}
