package kommo

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

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const ChannelName = "kommo"

// Client mirrors new leads into the Kommo CRM. Only lead.created events open
// a CRM lead; updates are left to the sales team.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return ChannelName }

func (c *Client) Configured() bool {
	return c.cfg.BaseURL != "" && c.cfg.APIToken != ""
}

func (c *Client) Deliver(ctx context.Context, event entity.Event) usecase.ChannelResult {
	if event.Kind != entity.EventLeadCreated {
		return usecase.ChannelResult{Success: true}
	}
	if _, err := c.CreateLead(ctx, event.Lead); err != nil {
		return usecase.ChannelResult{Error: err.Error()}
	}
	return usecase.ChannelResult{Success: true}
}

// CreateLead links the lead to an existing contact with the same email, or
// a new one, and returns the CRM lead id.
func (c *Client) CreateLead(ctx context.Context, lead entity.Lead) (int, error) {
	if !c.Configured() {
		return 0, eris.New("kommo: not configured")
	}

	contactID, err := c.findOrCreateContact(ctx, lead)
	if err != nil {
		return 0, err
	}

	tags := []map[string]any{{"name": string(lead.Category)}}
	if lead.CategoryTag != nil {
		tags = append(tags, map[string]any{"name": *lead.CategoryTag})
	}
	if lead.Source != "" {
		tags = append(tags, map[string]any{"name": "source:" + lead.Source})
	}

	payload := map[string]any{
		"name": fmt.Sprintf("%s - %s", lead.Name, lead.Category.Label()),
		"_embedded": map[string]any{
			"tags":     tags,
			"contacts": []map[string]any{{"id": contactID}},
		},
	}
	if c.cfg.StatusID != 0 {
		payload["status_id"] = c.cfg.StatusID
	}

	var result leadsResponse
	if err := c.do(ctx, http.MethodPost, "/leads", []map[string]any{payload}, &result); err != nil {
		return 0, eris.Wrap(err, "kommo: create lead")
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, eris.New("kommo: lead not created")
	}

	leadID := result.Embedded.Leads[0].ID
	zap.L().Info("kommo lead created",
		zap.Int("kommo_lead_id", leadID),
		zap.Int("kommo_contact_id", contactID),
		zap.String("email", lead.Email),
	)
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, lead entity.Lead) (int, error) {
	var found contactsResponse
	err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(lead.Email), nil, &found)
	if err != nil {
		return 0, eris.Wrap(err, "kommo: find contact")
	}
	if len(found.Embedded.Contacts) > 0 {
		return found.Embedded.Contacts[0].ID, nil
	}

	fields := []map[string]any{
		{
			"field_code": "EMAIL",
			"values":     []map[string]any{{"value": lead.Email, "enum_code": "WORK"}},
		},
	}
	if lead.Phone != "" {
		fields = append(fields, map[string]any{
			"field_code": "PHONE",
			"values":     []map[string]any{{"value": lead.Phone, "enum_code": "WORK"}},
		})
	}

	var created contactsResponse
	err = c.do(ctx, http.MethodPost, "/contacts", []map[string]any{{
		"name":                 lead.Name,
		"custom_fields_values": fields,
	}}, &created)
	if err != nil {
		return 0, eris.Wrap(err, "kommo: create contact")
	}
	if len(created.Embedded.Contacts) == 0 {
		return 0, eris.New("kommo: contact not created")
	}
	return created.Embedded.Contacts[0].ID, nil
}

// do sends a JSON request. Kommo answers 204 with an empty body when a
// search has no results, which leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return eris.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "call")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode >= 300 {
		return eris.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
