// Package apiclient talks to the catalog and order endpoints of the storefront API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/storefront/pkg/storefront"
)

const (
	// DefaultBaseURL is the API origin used when none is configured.
	DefaultBaseURL = "http://localhost:8000"
	defaultTimeout = 15 * time.Second

	categoriesPath = "/categories/"
	productsPath   = "/products/"
	ordersPath     = "/orders/"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	contentTypeJSON     = "application/json"

	operationAPI       = "api"
	errorCodeRequest   = "request"
	errorCodeTransport = "transport"
	errorCodeStatus    = "status"
	errorCodeDecode    = "decode"
	maxErrorBodyBytes  = 4096

	subjectCategories = "categories"
	subjectProducts   = "products"
	subjectOrders     = "orders"
)

// Client error values.
var (
	ErrInvalidConfig    = errors.New("invalid api client config")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Config holds client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements storefront.CatalogAPI and storefront.OrderAPI over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, cfg.BaseURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// BaseURL returns the normalized API origin.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// ListCategories fetches GET /categories/.
func (client *Client) ListCategories(ctx context.Context, credential storefront.Credential) ([]storefront.Category, error) {
	var categories []storefront.Category
	if err := client.do(ctx, http.MethodGet, categoriesPath, subjectCategories, credential, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListProducts fetches GET /products/.
func (client *Client) ListProducts(ctx context.Context, credential storefront.Credential) ([]storefront.Product, error) {
	var products []storefront.Product
	if err := client.do(ctx, http.MethodGet, productsPath, subjectProducts, credential, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateOrder posts the order; any 2xx response is success.
func (client *Client) CreateOrder(ctx context.Context, credential storefront.Credential, request storefront.OrderRequest) error {
	return client.do(ctx, http.MethodPost, ordersPath, subjectOrders, credential, request, nil)
}

func (client *Client) do(ctx context.Context, method string, path string, subject string, credential storefront.Credential, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return storefront.WrapError(operationAPI, subject, errorCodeRequest, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, body)
	if err != nil {
		return storefront.WrapError(operationAPI, subject, errorCodeRequest, fmt.Errorf("create request: %w", err))
	}
	httpRequest.Header.Set(headerAccept, contentTypeJSON)
	if payload != nil {
		httpRequest.Header.Set(headerContentType, contentTypeJSON)
	}
	if !credential.IsZero() {
		httpRequest.Header.Set(headerAuthorization, credential.AuthorizationHeader())
	}

	response, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return storefront.WrapError(operationAPI, subject, errorCodeTransport, fmt.Errorf("send request: %w", err))
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBodyBytes))
		return storefront.WrapError(operationAPI, subject, errorCodeStatus, fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, method, response.Status, strings.TrimSpace(string(excerpt))))
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return storefront.WrapError(operationAPI, subject, errorCodeDecode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
