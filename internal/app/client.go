package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gajzzs/usbwarden/internal/api"
	"github.com/gajzzs/usbwarden/internal/registry"
)

const clientTimeout = 15 * time.Second

// Client talks to a running daemon's control API.
type Client struct {
	base     string
	username string
	password string
	http     *http.Client
}

func NewClient(baseURL, username, password string) *Client {
	return &Client{
		base:     strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     &http.Client{Timeout: clientTimeout},
	}
}

func (c *Client) Devices() ([]registry.DeviceRecord, error) {
	var out []registry.DeviceRecord
	return out, c.do(http.MethodGet, "/api/devices", nil, &out)
}

func (c *Client) Device(id string) (registry.DeviceRecord, error) {
	var out registry.DeviceRecord
	return out, c.do(http.MethodGet, "/api/devices/"+url.PathEscape(id), nil, &out)
}

func (c *Client) Allow(id string) (bool, error) {
	return c.decide("/api/device/allow", id)
}

func (c *Client) Deny(id string) (bool, error) {
	return c.decide("/api/device/deny", id)
}

func (c *Client) decide(path, id string) (bool, error) {
	body, err := json.Marshal(map[string]string{"deviceId": id})
	if err != nil {
		return false, err
	}
	var out api.SuccessResponse
	if err := c.do(http.MethodPost, path, body, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) StorageEnabled() (bool, error) {
	var out api.StorageResponse
	if err := c.do(http.MethodGet, "/api/storage", nil, &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

func (c *Client) SetStorage(enable bool) (bool, error) {
	path := "/api/storage/disable"
	if enable {
		path = "/api/storage/enable"
	}
	var out api.SuccessResponse
	if err := c.do(http.MethodPost, path, nil, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

func (c *Client) Hardware() ([]string, error) {
	var out []string
	return out, c.do(http.MethodGet, "/api/hardware", nil, &out)
}

func (c *Client) Status() (api.StatusResponse, error) {
	var out api.StatusResponse
	return out, c.do(http.MethodGet, "/api/status", nil, &out)
}

func (c *Client) Logs(count int) ([]string, error) {
	var out []string
	return out, c.do(http.MethodGet, "/api/logs?count="+strconv.Itoa(count), nil, &out)
}

func (c *Client) do(method, path string, body []byte, out interface{}) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach usbwarden at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s (HTTP %d)", method, path, apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}
