package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fablesmith/loregate/internal/catalog"
)

// getJSON performs a GET against the server and decodes the response body.
func getJSON(path string, out any) error {
	return getJSONQuery(path, nil, out)
}

func getJSONQuery(path string, query map[string]string, out any) error {
	target := serverURL + path
	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			values.Set(key, value)
		}
		target += "?" + values.Encode()
	}

	resp, err := http.Get(target)
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// postJSON performs a POST with an optional JSON body. Query parameters are
// appended to the path when present.
func postJSON(path string, query map[string]string, body, out any) error {
	target := serverURL + path
	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			values.Set(key, value)
		}
		target += "?" + values.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	resp, err := http.Post(target, "application/json", reader)
	if err != nil {
		return fmt.Errorf("failed to reach server at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var serverErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &serverErr) == nil && serverErr.Message != "" {
			return fmt.Errorf("server returned %s: %s", serverErr.Error, serverErr.Message)
		}
		return fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// buildEditPatch assembles an edit payload from CLI flags. Detail flags are
// key=value pairs; values that parse as JSON keep their type (booleans,
// numbers, arrays), everything else is passed through as a string.
func buildEditPatch(name, description string, detailFlags []string) (catalog.EditPatch, error) {
	patch := catalog.EditPatch{}
	if name != "" {
		patch["name"] = name
	}
	if description != "" {
		patch["description"] = description
	}

	if len(detailFlags) > 0 {
		details := make(map[string]any, len(detailFlags))
		for _, flag := range detailFlags {
			key, value, err := parseDetailFlag(flag)
			if err != nil {
				return nil, err
			}
			details[key] = value
		}
		patch["details"] = details
	}
	return patch, nil
}

func parseDetailFlag(flag string) (string, any, error) {
	key, raw, found := strings.Cut(flag, "=")
	if !found || key == "" {
		return "", nil, fmt.Errorf("invalid --detail %q: expected key=value", flag)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return key, raw, nil
	}
	return key, value, nil
}
