// Package custody is the HMAC-signed client of the remote wallet-custody API.
package custody

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/linlinbupt123-crypto/wallet_bot/config"
	"github.com/linlinbupt123-crypto/wallet_bot/log"
)

const (
	HeaderAccessKey  = "OK-ACCESS-KEY"
	HeaderSign       = "OK-ACCESS-SIGN"
	HeaderTimestamp  = "OK-ACCESS-TIMESTAMP"
	HeaderPassphrase = "OK-ACCESS-PASSPHRASE"
	HeaderProject    = "OK-ACCESS-PROJECT"

	// SuccessCode is the envelope code of a successful call.
	SuccessCode = "0"

	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Client signs and sends requests. It never retries.
type Client struct {
	baseURL string
	creds   config.CustodyConfig
	http    *http.Client
	now     func() time.Time
}

func New(cfg config.CustodyConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		creds:   cfg,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Sign returns base64(HMAC-SHA256(secret, timestamp + METHOD + requestPath + body)).
func Sign(secret, timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + strings.ToUpper(method) + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Param is one query parameter; a slice of them keeps caller order.
type Param struct {
	Key   string
	Value string
}

func encodeQuery(params []Param) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return "?" + strings.Join(parts, "&")
}

// envelope is the common response wrapper.
type envelope struct {
	Code numString       `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Post sends body as JSON to path and decodes the envelope's data into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal request body")
	}
	return c.do(ctx, http.MethodPost, path, string(payload), out)
}

// Get sends a signed GET; the query string is part of the signed path.
func (c *Client) Get(ctx context.Context, path string, params []Param, out any) error {
	return c.do(ctx, http.MethodGet, path+encodeQuery(params), "", out)
}

func (c *Client) do(ctx context.Context, method, requestPath, body string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, strings.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	c.signRequest(req, requestPath, body)

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Custody.Error().Err(err).Str("method", method).Str("path", requestPath).Msg("request failed")
		return errors.Wrapf(err, "%s %s", method, requestPath)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	log.Custody.Debug().
		Str("method", method).
		Str("path", requestPath).
		Int("status", resp.StatusCode).
		Dur("took", c.now().Sub(start)).
		Msg("custody call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp.StatusCode, requestPath, "", fmt.Sprintf("http status %d", resp.StatusCode), raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return c.apiError(resp.StatusCode, requestPath, "", "malformed response: "+err.Error(), raw)
	}
	if string(env.Code) != SuccessCode {
		return c.apiError(resp.StatusCode, requestPath, string(env.Code), env.Msg, raw)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return c.apiError(resp.StatusCode, requestPath, string(env.Code), "malformed data: "+err.Error(), raw)
		}
	}
	return nil
}

// signRequest sets every credential header. The timestamp is computed once so
// the signed value and the header value are identical.
func (c *Client) signRequest(req *http.Request, requestPath, body string) {
	ts := c.now().UTC().Format(timestampLayout)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderAccessKey, c.creds.APIKey)
	req.Header.Set(HeaderSign, Sign(c.creds.SecretKey, ts, req.Method, requestPath, body))
	req.Header.Set(HeaderTimestamp, ts)
	req.Header.Set(HeaderPassphrase, c.creds.Passphrase)
	req.Header.Set(HeaderProject, c.creds.ProjectID)
}

func (c *Client) apiError(status int, path, code, msg string, raw []byte) *APIError {
	e := &APIError{HTTPStatus: status, Path: path, Code: code, Msg: msg, Raw: append([]byte(nil), raw...)}
	log.Custody.Warn().Int("status", status).Str("path", path).Str("code", code).Str("msg", msg).Msg("custody error")
	log.Custody.Debug().Str("path", path).Bytes("body", raw).Msg("custody error body")
	return e
}

// APIError is any non-success response. Raw keeps the body for diagnostics.
type APIError struct {
	HTTPStatus int
	Path       string
	Code       string
	Msg        string
	Raw        []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("custody %s: code %s: %s", e.Path, e.Code, e.Msg)
	}
	return fmt.Sprintf("custody %s: %s", e.Path, e.Msg)
}

// numString accepts a JSON string, number or null.
type numString string

func (n *numString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = numString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = numString(num.String())
	return nil
}
