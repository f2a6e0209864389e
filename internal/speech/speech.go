// Package speech recognizes voice reminders through a Whisper HTTP service.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Transcription is the recognized text. Whisper reports no confidence of its
// own, so it is fixed at 1.0.
type Transcription struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"-"`
}

type Client struct {
	whisper *resty.Client
	tg      *resty.Client
	token   string
}

// NewClient builds a client for the Whisper service at baseURL. The bot
// token is needed to download voice clips from the Telegram file endpoint.
func NewClient(baseURL, botToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		whisper: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		tg:      resty.New().SetBaseURL("https://api.telegram.org").SetTimeout(timeout),
		token:   botToken,
	}
}

// DownloadVoice fetches the raw OGG audio of a Telegram voice message.
func (c *Client) DownloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	var info struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	resp, err := c.tg.R().
		SetContext(ctx).
		SetQueryParam("file_id", fileID).
		SetResult(&info).
		Get(fmt.Sprintf("/bot%s/getFile", c.token))
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || !info.OK || info.Result.FilePath == "" {
		return nil, fmt.Errorf("get file info: status %d", resp.StatusCode())
	}

	fileResp, err := c.tg.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/file/bot%s/%s", c.token, info.Result.FilePath))
	if err != nil {
		return nil, fmt.Errorf("download voice file: %w", err)
	}
	if fileResp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download voice file: status %d", fileResp.StatusCode())
	}
	return fileResp.Body(), nil
}

// Transcribe sends the audio to Whisper and returns the recognized Russian
// text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*Transcription, error) {
	var out Transcription
	resp, err := c.whisper.R().
		SetContext(ctx).
		SetFileReader("audio_file", "voice.ogg", bytes.NewReader(audio)).
		SetQueryParams(map[string]string{
			"task":     "transcribe",
			"language": "ru",
			"output":   "json",
		}).
		SetResult(&out).
		Post("/asr")
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("whisper: status %d", resp.StatusCode())
	}

	out.Text = strings.TrimSpace(out.Text)
	if out.Text == "" {
		return nil, fmt.Errorf("whisper: empty transcription")
	}
	out.Confidence = 1.0
	return &out, nil
}
