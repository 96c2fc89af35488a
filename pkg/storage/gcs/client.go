// Package gcs stores print job uploads in a Cloud Storage bucket through the
// JSON API and hands out V2 signed download URLs.
package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

const (
	apiEndpoint    = "https://storage.googleapis.com"
	requestTimeout = 30 * time.Second
	pingTimeout    = 5 * time.Second
)

// ErrObjectNotFound is returned when the bucket or object does not exist.
var ErrObjectNotFound = errors.New("gcs object not found")

var errNotConnected = errors.New("gcs client not initialized")

// Object is an uploaded blob. URL is its unsigned https location.
type Object struct {
	Bucket      string
	Name        string
	ContentType string
	Size        int64
	URL         string
}

type Client struct {
	httpClient    *http.Client
	endpoint      string
	defaultBucket string
	tokens        oauth2.TokenSource
	signer        *signer
}

// NewClient resolves credentials and checks the bucket is listable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	tokens, sign, err := credentials(ctx, gcp)
	if err != nil {
		return nil, err
	}
	c := &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		endpoint:      apiEndpoint,
		defaultBucket: cfg.BucketName,
		tokens:        oauth2.ReuseTokenSource(nil, tokens),
		signer:        sign,
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %s: %w", cfg.BucketName, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": cfg.BucketName, "signing": sign != nil}), "gcs.ready")
	}
	return c, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.defaultBucket
}

func (c *Client) Close() error { return nil }

// Ping lists at most one object from the default bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return errNotConnected
	}
	if c.defaultBucket == "" {
		return errors.New("gcs bucket not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.call(ctx, http.MethodGet, c.api("storage/v1/b", c.defaultBucket, "o")+"?maxResults=1", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failure("list objects", resp)
	}
	return nil
}

// Upload writes body to name in bucket, or the default bucket when empty,
// with a single media upload.
func (c *Client) Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (*Object, error) {
	if c == nil || c.tokens == nil {
		return nil, errNotConnected
	}
	if bucket = c.bucketOrDefault(bucket); bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("object name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	q := url.Values{"uploadType": {"media"}, "name": {name}}
	resp, err := c.call(ctx, http.MethodPost, c.api("upload/storage/v1/b", bucket, "o")+"?"+q.Encode(), body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure("upload", resp)
	}

	var stored struct {
		Name        string `json:"name"`
		Bucket      string `json:"bucket"`
		ContentType string `json:"contentType"`
		Size        int64  `json:"size,string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &Object{
		Bucket:      stored.Bucket,
		Name:        stored.Name,
		ContentType: stored.ContentType,
		Size:        stored.Size,
		URL:         c.ObjectURL(stored.Bucket, stored.Name),
	}, nil
}

// DeleteObject is idempotent: a missing object counts as deleted.
func (c *Client) DeleteObject(ctx context.Context, bucket, name string) error {
	if c == nil || c.tokens == nil {
		return errNotConnected
	}
	bucket = c.bucketOrDefault(bucket)
	if bucket == "" || name == "" {
		return errors.New("bucket and object name are required")
	}
	resp, err := c.call(ctx, http.MethodDelete, c.api("storage/v1/b", bucket, "o", name), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return failure("delete", resp)
}

func (c *Client) ObjectURL(bucket, name string) string {
	return apiEndpoint + "/" + bucket + "/" + objectPath(name)
}

// SignedReadURL returns a V2 signed GET URL for name that expires after ttl.
func (c *Client) SignedReadURL(bucket, name string, ttl time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("signing requires service account credentials")
	}
	switch bucket = c.bucketOrDefault(bucket); {
	case bucket == "":
		return "", errors.New("bucket is required")
	case name == "":
		return "", errors.New("object name is required")
	case ttl <= 0:
		return "", errors.New("ttl must be positive")
	}

	expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
	digest := sha256.Sum256([]byte("GET\n\n\n" + expires + "\n/" + bucket + "/" + name))
	sig, err := rsa.SignPKCS1v15(rand.Reader, c.signer.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}
	q := url.Values{
		"GoogleAccessId": {c.signer.email},
		"Expires":        {expires},
		"Signature":      {base64.StdEncoding.EncodeToString(sig)},
	}
	return c.ObjectURL(bucket, name) + "?" + q.Encode(), nil
}

func (c *Client) bucketOrDefault(bucket string) string {
	if bucket == "" {
		return c.defaultBucket
	}
	return bucket
}

// api joins an endpoint path with escaped bucket and object segments.
func (c *Client) api(base string, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.endpoint)
	b.WriteByte('/')
	b.WriteString(base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) call(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("gcs token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

// failure turns a non-2xx reply into an error carrying the backend's text.
func failure(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("gcs %s: %w", op, ErrObjectNotFound)
	}
	text, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
	if msg := strings.TrimSpace(string(text)); msg != "" {
		return fmt.Errorf("gcs %s: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("gcs %s: %s", op, resp.Status)
}

// objectPath escapes each segment and keeps the slashes.
func objectPath(name string) string {
	parts := strings.Split(name, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}
