package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/goutham-m7/VerbaFlow/pkg/logger"
)

// Import logger functions
var (
	String = logger.String
	Int    = logger.Int
	Error  = logger.Error
)

// DefaultBaseURL is the default Deepgram streaming API endpoint
var DefaultBaseURL = "wss://api.deepgram.com"

// Client handles communication with Deepgram's live transcription API
type Client struct {
	apiKey  string
	baseURL string
	dialer  *websocket.Dialer
	logger  *logger.Logger
}

// LiveConfig is the one-time configuration for a streaming recognition
// session. None of it is renegotiable once the connection is established.
type LiveConfig struct {
	Model          string
	Language       string
	Encoding       string
	SampleRate     int
	InterimResults bool
	Punctuate      bool
	SmartFormat    bool
	Diarize        bool
}

// NewClient creates a new Deepgram client. baseURL may be empty to use the
// public endpoint; it accepts http(s) or ws(s) schemes (proxies).
func NewClient(apiKey, baseURL string, log *logger.Logger) *Client {
	if apiKey == "" {
		log.Warn("Deepgram API key is empty - live transcription will not work")
	}

	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: toWebSocketBase(base),
		logger:  log.Named("deepgram"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 45 * time.Second,
		},
	}
}

// toWebSocketBase converts an http(s) base URL to the corresponding ws(s) URL.
func toWebSocketBase(httpBase string) string {
	b := strings.TrimRight(httpBase, "/")
	if strings.HasPrefix(b, "https://") {
		return "wss://" + strings.TrimPrefix(b, "https://")
	} else if strings.HasPrefix(b, "http://") {
		return "ws://" + strings.TrimPrefix(b, "http://")
	}
	return b
}

// ConnectLive opens a streaming recognition connection configured for the
// whole session via query parameters.
func (c *Client) ConnectLive(ctx context.Context, cfg LiveConfig) (*LiveConn, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("Deepgram API key is required for live transcription")
	}

	q := url.Values{}
	q.Set("model", cfg.Model)
	q.Set("language", cfg.Language)
	q.Set("encoding", cfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	q.Set("punctuate", strconv.FormatBool(cfg.Punctuate))
	q.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	q.Set("diarize", strconv.FormatBool(cfg.Diarize))
	wsURL := c.baseURL + "/v1/listen?" + q.Encode()

	c.logger.Debug("Connecting to Deepgram WebSocket",
		String("model", cfg.Model),
		String("language", cfg.Language),
		Int("sample_rate", cfg.SampleRate))

	headers := http.Header{}
	headers.Set("Authorization", fmt.Sprintf("Token %s", c.apiKey))

	var conn *websocket.Conn
	var resp *http.Response
	var err error

	maxRetries := 3
	retryInterval := 2 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		conn, resp, err = c.dialer.DialContext(ctx, wsURL, headers)
		if err == nil {
			c.logger.Debug("Connected to Deepgram WebSocket", String("status", resp.Status))
			break
		}

		c.logger.Error("Failed to connect to Deepgram WebSocket",
			Int("attempt", attempt+1),
			Error(err))

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("failed to connect to Deepgram after %d attempts: %w", maxRetries, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return &LiveConn{
		conn:      conn,
		closeChan: make(chan struct{}),
	}, nil
}

// LiveConn represents one streaming recognition connection
type LiveConn struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	closed    bool
	closeChan chan struct{}
}

// SendAudio forwards one raw audio chunk verbatim to the upstream connection
func (lc *LiveConn) SendAudio(chunk []byte) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.closed {
		return fmt.Errorf("live connection is closed")
	}
	return lc.conn.WriteMessage(websocket.BinaryMessage, chunk)
}

// CloseStream signals end-of-audio with a single empty binary frame
func (lc *LiveConn) CloseStream() error {
	return lc.SendAudio([]byte{})
}

// Receive reads the next recognition event from the upstream connection.
// Frames that fail to parse are skipped, not surfaced.
func (lc *LiveConn) Receive() (*LiveEvent, error) {
	for {
		_, data, err := lc.conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		var event LiveEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		event.Raw = json.RawMessage(data)
		return &event, nil
	}
}

// Close closes the upstream connection
func (lc *LiveConn) Close() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.closed {
		return nil
	}
	lc.closed = true
	close(lc.closeChan)
	return lc.conn.Close()
}
