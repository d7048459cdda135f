package odloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

type Config struct {
	APIBase       string
	DownloadDir   string
	FlattenDir    string
	Flatten       bool
	StrictContent bool
	MaxDepth      int
	Timeout       time.Duration
	Wait          time.Duration
	MaxTries      int
	ChunkSize     int
	Logger        *zap.Logger
}

func NewDefaultConfig() *Config {
	return &Config{
		APIBase:     DefaultAPIBase,
		DownloadDir: "Downloads",
		FlattenDir:  "sub_folder_files",
		Flatten:     true,
		MaxDepth:    64,
		Wait:        5 * time.Second,
		ChunkSize:   1024 * 1024, // 1MB
	}
}

type GetTreeCallback func(count int64, totalSize int64)

type OneDriveClient struct {
	client *retryablehttp.Client
	config *Config
	log    *zap.Logger
}

func NewOneDriveClient(config *Config) *OneDriveClient {
	if config == nil {
		config = NewDefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = config.Timeout

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryWaitMin = config.Wait
	retryClient.RetryMax = config.MaxTries
	// Non-200 responses are handed back to the caller instead of becoming errors.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = retryLogger{logger.Named("http").Sugar()}

	return &OneDriveClient{
		client: retryClient,
		config: config,
		log:    logger,
	}
}

// Response is the outcome of a single GET. A non-200 status is not an error;
// callers decide whether to look at StatusCode.
type Response struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

func (c *OneDriveClient) endpoint(link string) (string, error) {
	return shareEndpoint(c.config.APIBase, link)
}

func (c *OneDriveClient) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// Fetch performs one GET against endpoint and returns the whole body.
func (c *OneDriveClient) Fetch(ctx context.Context, endpoint string) (*Response, error) {
	c.log.Info("request", zap.String("url", endpoint))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	r := &Response{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: body}
	c.logStatus(r)
	return r, nil
}

func (c *OneDriveClient) logStatus(r *Response) {
	if r.OK() {
		c.log.Debug("status code 200", zap.String("url", r.Endpoint))
		return
	}
	c.log.Debug("unexpected status code",
		zap.String("url", r.Endpoint),
		zap.Int("status", r.StatusCode),
		zap.String("body", describeBody(r.Body)),
	)
}

func (c *OneDriveClient) fetchItem(ctx context.Context, link string) (item, string, error) {
	var raw item
	endpoint, err := c.endpoint(link)
	if err != nil {
		return raw, "", err
	}

	resp, err := c.Fetch(ctx, endpoint)
	if err != nil {
		return raw, endpoint, err
	}
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return raw, endpoint, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return raw, endpoint, nil
}

// GetItem fetches the metadata of the item a share link points to.
func (c *OneDriveClient) GetItem(ctx context.Context, link string) (*ItemMetadata, error) {
	raw, endpoint, err := c.fetchItem(ctx, link)
	if err != nil {
		return nil, err
	}
	md, err := raw.metadata(endpoint)
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// IsFolder reports whether the share link points to a folder. An item carrying
// neither a folder nor a file facet is treated as not a folder.
func (c *OneDriveClient) IsFolder(ctx context.Context, link string) (bool, error) {
	raw, endpoint, err := c.fetchItem(ctx, link)
	if err != nil {
		return false, err
	}

	switch {
	case raw.Folder != nil:
		if field := raw.missing("name", "size"); field != "" {
			return false, &MissingFieldError{Field: field, Endpoint: endpoint}
		}
		c.log.Debug("path type is folder",
			zap.Int("child_count", raw.Folder.ChildCount),
			zap.String("name", *raw.Name),
			zap.Int64("size", *raw.Size),
		)
		return true, nil
	case raw.File != nil:
		if field := raw.missing("name", "size"); field != "" {
			return false, &MissingFieldError{Field: field, Endpoint: endpoint}
		}
		c.log.Debug("path type is file",
			zap.String("name", *raw.Name),
			zap.Int64("size", *raw.Size),
		)
		return false, nil
	}
	return false, nil
}

// ListChildren returns the first page of a folder's children in remote order.
func (c *OneDriveClient) ListChildren(ctx context.Context, link string) ([]ItemMetadata, error) {
	endpoint, err := c.endpoint(link)
	if err != nil {
		return nil, err
	}
	endpoint += "/children"

	resp, err := c.Fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var r children
	if err := json.Unmarshal(resp.Body, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	if r.Value == nil {
		return nil, &MissingFieldError{Field: "value", Endpoint: endpoint}
	}
	if r.NextLink != "" {
		c.log.Warn("folder listing has more pages, only the first one is used",
			zap.String("url", endpoint),
			zap.Int("items", len(*r.Value)),
		)
	}

	items := make([]ItemMetadata, 0, len(*r.Value))
	for _, raw := range *r.Value {
		md, err := raw.metadata(endpoint)
		if err != nil {
			return nil, err
		}
		items = append(items, md)
	}
	return items, nil
}

func (i item) missing(fields ...string) string {
	for _, f := range fields {
		switch {
		case f == "name" && i.Name == nil,
			f == "size" && i.Size == nil,
			f == "webUrl" && i.WebURL == nil:
			return f
		}
	}
	return ""
}

func (i item) metadata(endpoint string) (ItemMetadata, error) {
	if field := i.missing("name", "size", "webUrl"); field != "" {
		return ItemMetadata{}, &MissingFieldError{Field: field, Endpoint: endpoint}
	}

	md := ItemMetadata{
		Kind:   FOLDER,
		Name:   *i.Name,
		Size:   *i.Size,
		WebURL: *i.WebURL,
	}
	if i.File != nil {
		md.Kind = FILE
	} else if i.Folder != nil {
		md.ChildCount = i.Folder.ChildCount
	}
	return md, nil
}

const maxBodyDescription = 200

// describeBody shortens a response body for logging. HTML error pages are
// reduced to their title or visible text.
func describeBody(body []byte) string {
	text := string(body)
	if strings.HasPrefix(http.DetectContentType(body), "text/html") {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			text = strings.TrimSpace(doc.Find("title").First().Text())
			if text == "" {
				text = doc.Text()
			}
		}
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxBodyDescription {
		text = text[:maxBodyDescription] + "..."
	}
	return text
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}
