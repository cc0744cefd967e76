package childtrack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// LoginResult is the backend's answer to a successful parent login. Parent
// is passed through untouched so the session cache keeps the server shape.
type LoginResult struct {
	Parent json.RawMessage `json:"parent"`
	Token  string          `json:"token"`
}

// LoginError carries the message the backend gave for a rejected login.
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string { return e.Message }

// Login exchanges parent credentials for the parent record and a token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+c.paths.Login, map[string]string{
		"username": username,
		"password": password,
	})

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		var msg struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &msg)
		text := msg.Error
		if text == "" {
			text = msg.Detail
		}
		if text == "" {
			text = fmt.Sprintf("HTTP %d", statusErr.Code)
		}
		return nil, &LoginError{Status: statusErr.Code, Message: text}
	}
	if err != nil {
		return nil, err
	}

	var result LoginResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if len(result.Parent) == 0 || string(result.Parent) == "null" {
		return nil, &LoginError{Status: http.StatusOK, Message: "login response has no parent record"}
	}
	return &result, nil
}
