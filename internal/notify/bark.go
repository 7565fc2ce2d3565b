// internal/notify/bark.go
//
// Bark push-notification client.
//
// Context
// -------
// Reads `url` and `apikey` from the `[bark]` settings section through
// `Registry.FromEnvironment("bark")`, so the section can sit beside the
// environment sections in settings.toml and still inherit `[default]` keys.
// Send never returns an error; failures are logged and reported as false,
// matching how callers use it (fire and forget).
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/AdeptTravel/adept-bootstrap/internal/logger"
	"github.com/AdeptTravel/adept-bootstrap/internal/settings"
)

// Section is the settings environment holding Bark credentials.
const Section = "bark"

// Message is one notification.  Empty Sound and Level use Bark defaults
// chosen here: "birdsong" and "active".
type Message struct {
	Title   string
	Body    string
	URL     string
	Sound   string
	Icon    string
	Level   string
	Archive bool
}

// Bark sends notifications for one group.
type Bark struct {
	baseURL string
	apiKey  string
	group   string
	http    *retryablehttp.Client
	log     *logger.Logger
}

// New reads credentials from the bark section of reg.
func New(reg *settings.Registry, group string, log *logger.Logger) (*Bark, error) {
	sec := reg.FromEnvironment(Section)
	base, err := sec.String("url")
	if err != nil {
		return nil, err
	}
	key, err := sec.String("apikey")
	if err != nil {
		return nil, err
	}
	if base == "" || key == "" {
		return nil, errors.New("notify: bark url and apikey must be set")
	}

	cli := retryablehttp.NewClient()
	cli.RetryMax = 2
	cli.RetryWaitMin = 200 * time.Millisecond
	cli.RetryWaitMax = 2 * time.Second
	cli.HTTPClient.Timeout = 10 * time.Second
	cli.Logger = nil

	return &Bark{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  key,
		group:   group,
		http:    cli,
		log:     log.With("component", "bark", "group", group),
	}, nil
}

func (b *Bark) endpoint(m Message) string {
	sound, level := m.Sound, m.Level
	if sound == "" {
		sound = "birdsong"
	}
	if level == "" {
		level = "active"
	}
	archive := "0"
	if m.Archive {
		archive = "1"
	}

	q := url.Values{}
	q.Set("url", m.URL)
	q.Set("icon", m.Icon)
	q.Set("sound", sound)
	q.Set("group", b.group)
	q.Set("title", m.Title)
	q.Set("badge", "1")
	q.Set("level", level)
	q.Set("isArchive", archive)

	return fmt.Sprintf("%s/%s/%s?%s", b.baseURL, url.PathEscape(b.apiKey), url.PathEscape(m.Body), q.Encode())
}

// Send delivers m and reports success.
func (b *Bark) Send(ctx context.Context, m Message) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", b.endpoint(m), nil)
	if err != nil {
		b.log.Error("bark request build failed", "err", err)
		return false
	}

	resp, err := b.http.Do(req)
	if err != nil {
		b.log.Error("bark send failed", "err", err)
		return false
	}
	defer resp.Body.Close()

	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		b.log.Error("bark response unreadable", "status", resp.StatusCode, "err", err)
		return false
	}
	if body.Code != 200 {
		b.log.Error("bark rejected message", "code", body.Code, "message", body.Message)
		return false
	}
	b.log.Info("bark message sent", "title", m.Title)
	return true
}
