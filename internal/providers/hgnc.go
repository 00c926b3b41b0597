package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"violin/internal/util"
)

// HGNCProvider resolves identifiers through the HGNC REST fetch endpoint.
type HGNCProvider struct {
	alias   string
	baseURL string
	client  *http.Client
}

func NewHGNCProvider(alias string) *HGNCProvider {
	baseURL := strings.TrimSpace(os.Getenv("VIOLIN_HGNC_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://rest.genenames.org"
	}
	return &HGNCProvider{
		alias:   alias,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HGNCProvider) ResolveSymbol(ctx context.Context, hgncID string) (string, ProviderInfo, error) {
	info := ProviderInfo{Name: "hgnc", Key: h.alias}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/fetch/hgnc_id/"+url.PathEscape(hgncID), nil)
	if err != nil {
		return "", info, fmt.Errorf("hgnc fetch %s: %w", hgncID, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", info, fmt.Errorf("hgnc fetch %s: %v: %w", hgncID, err, util.ErrTransient)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", info, fmt.Errorf("hgnc fetch %s: read body: %v: %w", hgncID, err, util.ErrTransient)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", info, fmt.Errorf("hgnc fetch %s: %w", hgncID, util.ErrRateLimited)
	case resp.StatusCode >= 500:
		return "", info, fmt.Errorf("hgnc fetch %s status %d: %w", hgncID, resp.StatusCode, util.ErrTransient)
	case resp.StatusCode >= 400:
		return "", info, fmt.Errorf("hgnc fetch %s status %d: %s: %w", hgncID, resp.StatusCode, string(body), util.ErrPermanent)
	}
	var parsed struct {
		Response struct {
			NumFound int `json:"numFound"`
			Docs     []struct {
				Symbol string `json:"symbol"`
			} `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", info, fmt.Errorf("decode hgnc response: %v: %w", err, util.ErrPermanent)
	}
	if len(parsed.Response.Docs) == 0 || strings.TrimSpace(parsed.Response.Docs[0].Symbol) == "" {
		return "", info, fmt.Errorf("hgnc fetch %s: %w", hgncID, util.ErrSymbolNotFound)
	}
	return parsed.Response.Docs[0].Symbol, info, nil
}
