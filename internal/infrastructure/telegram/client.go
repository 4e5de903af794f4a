package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SubTrack/internal/ports"
)

const defaultBaseURL = "https://api.telegram.org"

// Client talks to the Telegram bot API.
type Client struct {
	botToken string
	baseURL  string
	client   *http.Client
}

var _ ports.Messenger = (*Client)(nil)

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the incoming message payload, trimmed to the fields the bot
// routes on.
type Message struct {
	Chat  Chat        `json:"chat"`
	Text  string      `json:"text"`
	Photo []PhotoSize `json:"photo"`
}

// Chat identifies the conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// PhotoSize is one resolution of an attached photo. Telegram sends them
// smallest first.
type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
}

// NewClient registers the bot token. baseURL overrides the Telegram API
// host, empty means production.
func NewClient(botToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		botToken: botToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 35 * time.Second},
	}
}

// Send posts a Markdown message to a chat.
func (c *Client) Send(ctx context.Context, recipientID int64, text string) error {
	if c.botToken == "" {
		return fmt.Errorf("telegram client misconfigured")
	}

	form := url.Values{}
	form.Set("chat_id", strconv.FormatInt(recipientID, 10))
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := c.postForm(ctx, "sendMessage", form, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram rejected message: %s", resp.Description)
	}
	return nil
}

// GetUpdates long-polls for updates past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	form := url.Values{}
	form.Set("offset", strconv.FormatInt(offset, 10))
	form.Set("timeout", strconv.Itoa(int(timeout.Seconds())))

	var resp struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := c.postForm(ctx, "getUpdates", form, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram getUpdates not ok")
	}
	return resp.Result, nil
}

// DownloadFile fetches the content of an uploaded file by its id.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	form := url.Values{}
	form.Set("file_id", fileID)

	var resp struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := c.postForm(ctx, "getFile", form, &resp); err != nil {
		return nil, err
	}
	if !resp.OK || resp.Result.FilePath == "" {
		return nil, fmt.Errorf("telegram getFile not ok")
	}

	endpoint := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.botToken, resp.Result.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: %s", httpResp.Status)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return data, nil
}

func (c *Client) postForm(ctx context.Context, method string, form url.Values, v any) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram %s: %s", method, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
