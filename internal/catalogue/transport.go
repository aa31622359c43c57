package catalogue

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func decodeJSON(body []byte, out any) error {
	return json.Unmarshal(body, out)
}

const (
	clientName    = "streamtrack"
	protocolVersion = "1.16.1"
)

// transport is the raw, unwrapped HTTP adapter over the catalogue's
// Subsonic/Navidrome-style REST API: salt+token auth, JSON envelope
// unwrapping. Built on go-resty/resty (see DESIGN.md); it is intentionally
// a thin, uncached adapter — the Catalogue Client wrapper in client.go,
// with its caching and typed results, is the component callers use.
type transport struct {
	baseURL  string
	username string
	password string
	http     *resty.Client
}

func newTransport(baseURL, username, password string, timeout time.Duration) *transport {
	return &transport{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		http:     resty.New().SetTimeout(timeout),
	}
}

type envelope struct {
	SubsonicResponse struct {
		Status string `json:"status"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"subsonic-response"`
}

func (t *transport) authParams() map[string]string {
	salt := strconv.FormatInt(time.Now().UnixNano(), 10)
	sum := md5.Sum([]byte(t.password + salt))
	token := fmt.Sprintf("%x", sum)

	return map[string]string{
		"u": t.username,
		"t": token,
		"s": salt,
		"c": clientName,
		"v": protocolVersion,
		"f": "json",
	}
}

// get issues an authenticated GET to endpoint with extra query params,
// checks the "subsonic-response" envelope's status, and decodes the
// envelope's contents into out via the raw-message re-parse below (out's
// fields name the payload keys inside "subsonic-response", e.g. "album").
func (t *transport) get(endpoint string, params map[string]string, out any) error {
	req := t.http.R().SetQueryParams(t.authParams())
	for k, v := range params {
		req.SetQueryParam(k, v)
	}

	resp, err := req.Get(fmt.Sprintf("%s/rest/%s", t.baseURL, endpoint))
	if err != nil {
		return fmt.Errorf("catalogue: request %s failed: %w", endpoint, err)
	}
	if resp.IsError() {
		return fmt.Errorf("catalogue: request %s failed with status %d", endpoint, resp.StatusCode())
	}

	var env envelope
	if err := decodeJSON(resp.Body(), &env); err != nil {
		return fmt.Errorf("catalogue: parsing %s envelope: %w", endpoint, err)
	}
	if env.SubsonicResponse.Status != "ok" {
		if env.SubsonicResponse.Error != nil {
			return fmt.Errorf("catalogue: %s error: %s", endpoint, env.SubsonicResponse.Error.Message)
		}
		return fmt.Errorf("catalogue: %s failed with status %q", endpoint, env.SubsonicResponse.Status)
	}

	if out == nil {
		return nil
	}
	var raw struct {
		SubsonicResponse json.RawMessage `json:"subsonic-response"`
	}
	if err := decodeJSON(resp.Body(), &raw); err != nil {
		return fmt.Errorf("catalogue: parsing %s envelope: %w", endpoint, err)
	}
	return decodeJSON(raw.SubsonicResponse, out)
}

// streamURL builds a signed, directly-fetchable media URL for trackID,
// resolving a track id into the playable URL the downloader fetches.
func (t *transport) streamURL(trackID string) string {
	req := t.http.R().SetQueryParams(t.authParams())
	req.SetQueryParam("id", trackID)
	return fmt.Sprintf("%s/rest/stream?%s", t.baseURL, req.QueryParam.Encode())
}

func (t *transport) ping() error {
	return t.get("ping", nil, nil)
}
