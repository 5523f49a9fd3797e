// Package recognition provides the client for the external label-recognition
// service. The service looks at a photo of a spool label and returns
// best-effort field suggestions; its output is never required and never
// written to the ledger directly - the spool-creation UI offers it to the
// user, and only parsed, validated values reach the creation path.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/ledger"
	"github.com/tzuhan/filatrack/backend/internal/logging"
	"github.com/tzuhan/filatrack/backend/internal/units"
)

// DefaultTimeout bounds a recognition call. On timeout the caller degrades
// to "no suggestion"; a slow service must never block spool creation.
const DefaultTimeout = 30 * time.Second

// Client talks to the recognition service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a recognition client. A zero timeout selects
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Suggestion is a normalized, best-effort partial spool record. Empty
// strings and nil pointers mean "the service could not tell".
type Suggestion struct {
	Brand      string   `json:"brand,omitempty"`
	Material   string   `json:"material,omitempty"`
	ColorName  string   `json:"color_name,omitempty"`
	ColorHex   string   `json:"color_hex,omitempty"` // 6 hex digits, no '#'
	WeightG    *float64 `json:"weight_g,omitempty"`
	DiameterMM *float64 `json:"diameter_mm,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Wire format of the recognition service.
type apiData struct {
	Brand     *string  `json:"brand"`
	Material  *string  `json:"material"`
	ColorName *string  `json:"colorName"`
	ColorHex  *string  `json:"colorHex"`
	Weight    *string  `json:"weight"` // grams as numeric text
	Diameter  *float64 `json:"diameter"`
}

type apiResponse struct {
	Success    bool     `json:"success"`
	Data       *apiData `json:"data"`
	Confidence *float64 `json:"confidence"`
	Error      *string  `json:"error"`
}

// Recognize uploads an image and returns the service's suggestion. Failures
// are typed: RECOGNITION_TIMEOUT for deadline expiry, RECOGNITION_FAILED for
// everything else. Neither is a data error.
func (c *Client) Recognize(ctx context.Context, image []byte, filename string) (*Suggestion, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "failed to build upload", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "failed to build upload", err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "failed to build upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/recognize", &body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "failed to build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(apperrors.ErrRecognitionTimeout, "recognition service timed out", err)
		}
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "recognition request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ErrRecognitionFailed,
			"recognition service returned status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRecognitionFailed, "malformed response", err)
	}
	if !parsed.Success || parsed.Data == nil {
		msg := "recognition unsuccessful"
		if parsed.Error != nil {
			msg = *parsed.Error
		}
		return nil, apperrors.New(apperrors.ErrRecognitionFailed, msg)
	}

	suggestion := normalize(parsed.Data)
	if parsed.Confidence != nil {
		suggestion.Confidence = *parsed.Confidence
	}
	logging.Debug("label recognized", map[string]interface{}{
		"material":   suggestion.Material,
		"confidence": suggestion.Confidence,
	})
	return suggestion, nil
}

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRecognitionFailed, "failed to build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRecognitionFailed, "recognition service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperrors.Newf(apperrors.ErrRecognitionFailed,
			"recognition service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// normalize applies the same cleanup rules the service documents: only the
// standard diameters are accepted, weight must parse as positive grams, and
// color hex strings are reduced to bare 6-hex-digit form.
func normalize(data *apiData) *Suggestion {
	s := &Suggestion{
		Brand:     deref(data.Brand),
		Material:  deref(data.Material),
		ColorName: deref(data.ColorName),
	}
	if data.ColorHex != nil {
		hex := ledger.NormalizeHex(*data.ColorHex)
		if isHexColor(hex) {
			s.ColorHex = hex
		}
	}
	if data.Weight != nil {
		if w, err := strconv.ParseFloat(strings.TrimSpace(*data.Weight), 64); err == nil && w > 0 {
			s.WeightG = &w
		}
	}
	if data.Diameter != nil && units.IsStandardDiameter(*data.Diameter) {
		s.DiameterMM = data.Diameter
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func isHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return false
		}
	}
	return true
}
