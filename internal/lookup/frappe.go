package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"deskglue/internal/domain"
)

const (
	searchMethod  = "helpdesk.api.customer_api.search_hd_customers"
	detailsMethod = "helpdesk.api.customer_api.get_hd_customer_details"

	maxResponseBytes = 4 << 20
)

// FrappeConfig configures the helpdesk server client
type FrappeConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// FrappeClient queries the helpdesk server's whitelisted customer methods
type FrappeClient struct {
	config     FrappeConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewFrappeClient creates a client for the given server
func NewFrappeClient(cfg FrappeConfig, logger *zap.Logger) (*FrappeClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("frappe base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid frappe base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &FrappeClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.Named("frappe"),
	}, nil
}

// Search calls search_hd_customers
func (c *FrappeClient) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	body, err := c.call(ctx, searchMethod, url.Values{"search_term": {query}})
	if err != nil {
		return nil, err
	}

	message := gjson.GetBytes(body, "message")
	if !message.IsArray() {
		return nil, fmt.Errorf("unexpected search response: message is %s", message.Type)
	}

	var results []domain.SearchResult
	message.ForEach(func(_, row gjson.Result) bool {
		results = append(results, customerFromJSON(row).AsSearchResult())
		return true
	})
	return results, nil
}

// Details calls get_hd_customer_details
func (c *FrappeClient) Details(ctx context.Context, id string) (*domain.Customer, error) {
	if id == "" {
		return nil, errors.New("customer name is required")
	}

	body, err := c.call(ctx, detailsMethod, url.Values{"customer_name": {id}})
	if err != nil {
		return nil, err
	}

	message := gjson.GetBytes(body, "message")
	if !message.IsObject() {
		return nil, fmt.Errorf("%s: %w", id, ErrCustomerNotFound)
	}
	customer := customerFromJSON(message)
	return &customer, nil
}

func (c *FrappeClient) call(ctx context.Context, method string, params url.Values) ([]byte, error) {
	apiURL := fmt.Sprintf("%s/api/method/%s?%s", c.config.BaseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" && c.config.APISecret != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.config.APIKey, c.config.APISecret))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("frappe call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, serverMessage(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("server returned invalid JSON")
	}
	if exc := gjson.GetBytes(body, "exception"); exc.Exists() {
		return nil, fmt.Errorf("server error: %s", serverMessage(body))
	}
	return body, nil
}

// serverMessage extracts the most readable error text from a Frappe error body.
// _server_messages is a JSON string holding an array of JSON-encoded objects.
func serverMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return "empty response"
		}
		if len(text) > 200 {
			text = text[:200]
		}
		return text
	}

	if raw := gjson.GetBytes(body, "_server_messages"); raw.Exists() {
		var msgs []string
		gjson.Parse(raw.String()).ForEach(func(_, item gjson.Result) bool {
			if m := gjson.Get(item.String(), "message"); m.Exists() && m.String() != "" {
				msgs = append(msgs, m.String())
			}
			return true
		})
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	if exc := gjson.GetBytes(body, "exception"); exc.Exists() {
		return exc.String()
	}
	if exc := gjson.GetBytes(body, "exc_type"); exc.Exists() {
		return exc.String()
	}
	return "unknown error"
}

func customerFromJSON(row gjson.Result) domain.Customer {
	c := domain.Customer{
		Name:          row.Get("name").String(),
		CustomerName:  row.Get("customer_name").String(),
		SerialNo:      row.Get("custom_sl_no").String(),
		Code:          row.Get("custom_customercode").String(),
		Address1:      row.Get("custom_address1").String(),
		Address2:      row.Get("custom_address2").String(),
		Place:         row.Get("custom_place").String(),
		District:      row.Get("custom_district").String(),
		State:         row.Get("custom_state").String(),
		Country:       row.Get("custom_country").String(),
		ContactPerson: row.Get("custom_contactperson").String(),
		Phone1:        row.Get("custom_phone001").String(),
		Phone2:        row.Get("custom_phone002").String(),
		GSTNo:         row.Get("custom_gstno").String(),
		Email:         row.Get("custom_email").String(),
		ProductName:   row.Get("custom_productname").String(),
		LicenseCount:  row.Get("custom_nooflicense").String(),
		AMCLastPaid:   row.Get("custom_dateofamclastpaid").String(),
	}
	if modified := row.Get("modified"); modified.Exists() {
		if t, err := time.Parse("2006-01-02 15:04:05.999999", modified.String()); err == nil {
			c.Modified = t
		}
	}
	return c
}
