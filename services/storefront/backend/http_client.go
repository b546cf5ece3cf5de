package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dailykart/dailykart/pkg/telemetry"
	"github.com/dailykart/dailykart/services/storefront/blob"
	"github.com/dailykart/dailykart/services/storefront/models"
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 4 << 10

// HTTPClient talks JSON to the catalog service.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  telemetry.NewHTTPClient(timeout),
	}
}

func (h *HTTPClient) do(ctx context.Context, method, path string, query url.Values, token string, in, out interface{}) error {
	u := h.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (h *HTTPClient) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := h.do(ctx, http.MethodGet, "/products", nil, "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (h *HTTPClient) ListProductsByCategory(ctx context.Context, category models.Category) ([]models.Product, error) {
	var products []models.Product
	q := url.Values{"category": {string(category)}}
	if err := h.do(ctx, http.MethodGet, "/products", q, "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (h *HTTPClient) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := h.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, "", nil, &p)
	return p, err
}

func (h *HTTPClient) GetProductImage(ctx context.Context, id string) (blob.Ref, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := h.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id)+"/image", nil, "", nil, &out); err != nil {
		return blob.Ref{}, err
	}
	return blob.FromURL(out.URL), nil
}

func (h *HTTPClient) CreateProduct(ctx context.Context, token string, input models.ProductInput) (models.Product, error) {
	var p models.Product
	err := h.do(ctx, http.MethodPost, "/products", nil, token, input, &p)
	return p, err
}

func (h *HTTPClient) UpdateProduct(ctx context.Context, token, id string, input models.ProductInput) (models.Product, error) {
	var p models.Product
	err := h.do(ctx, http.MethodPut, "/products/"+url.PathEscape(id), nil, token, input, &p)
	return p, err
}

func (h *HTTPClient) DeleteProduct(ctx context.Context, token, id string) error {
	return h.do(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, token, nil, nil)
}

func (h *HTTPClient) LoginAdmin(ctx context.Context, username, password string) (string, error) {
	in := map[string]string{"username": username, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := h.do(ctx, http.MethodPost, "/admin/login", nil, "", in, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (h *HTTPClient) IsAdminSessionValid(ctx context.Context, token string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := h.do(ctx, http.MethodPost, "/admin/session/validate", nil, "", map[string]string{"token": token}, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}
