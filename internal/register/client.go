package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

// Client implements Backend over the api-gateway's HTTP surface. Error
// envelopes decode back into the shared error codes, so a capacity failure
// reported by the server arrives here as ErrSeatUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for a base URL including the API prefix,
// e.g. "http://localhost:8080/api/v1".
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// envelope mirrors the server's response contract.
type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type sessionCheckData struct {
	Position int64 `json:"position"`
}

// FindStudents searches students by parent email or name.
func (c *Client) FindStudents(ctx context.Context, query string) ([]models.Student, error) {
	var students []models.Student
	q := url.Values{"q": {query}}
	if _, err := c.do(ctx, http.MethodGet, "/students", q, nil, &students); err != nil {
		return nil, err
	}
	return students, nil
}

// PatchStudentLevels confirms a student's grade and Korean level bands.
func (c *Client) PatchStudentLevels(ctx context.Context, id string, grade, koreanLevel int) error {
	body := map[string]int{"grade": grade, "korean_level": koreanLevel}
	_, err := c.do(ctx, http.MethodPatch, "/students/"+url.PathEscape(id)+"/levels", nil, body, nil)
	return err
}

// StartSession registers interest for a parent email and returns the issued
// session key and queue position.
func (c *Client) StartSession(ctx context.Context, email string) (models.RegistrationSession, error) {
	var session models.RegistrationSession
	body := map[string]string{"email": email}
	if _, err := c.do(ctx, http.MethodPost, "/registration/sessions", nil, body, &session); err != nil {
		return models.RegistrationSession{}, err
	}
	return session, nil
}

// CheckSession reports the current queue position for a session.
func (c *Client) CheckSession(ctx context.Context, email, sessionKey string) (int64, error) {
	var data sessionCheckData
	body := map[string]string{"email": email, "session_key": sessionKey}
	if _, err := c.do(ctx, http.MethodPost, "/registration/sessions/check", nil, body, &data); err != nil {
		return 0, err
	}
	return data.Position, nil
}

// EndSession releases a session's queue slot.
func (c *Client) EndSession(ctx context.Context, email, sessionKey string) error {
	body := map[string]string{"email": email, "session_key": sessionKey}
	_, err := c.do(ctx, http.MethodPost, "/registration/sessions/end", nil, body, nil)
	return err
}

// ListWindows returns all registration windows plus the server's clock, used
// by the gate for skew compensation.
func (c *Client) ListWindows(ctx context.Context) ([]models.RegistrationWindow, time.Time, error) {
	var windows []models.RegistrationWindow
	meta, err := c.do(ctx, http.MethodGet, "/schedules", nil, nil, &windows)
	if err != nil {
		return nil, time.Time{}, err
	}
	serverNow := time.Now()
	if raw, ok := meta["server_time"].(string); ok {
		if parsed, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			serverNow = parsed
		}
	}
	return windows, serverNow, nil
}

// ListOfferings returns the offering catalog for a term with live occupancy.
func (c *Client) ListOfferings(ctx context.Context, year, term int) ([]models.ClassOffering, error) {
	var offerings []models.ClassOffering
	q := url.Values{"year": {strconv.Itoa(year)}, "term": {strconv.Itoa(term)}}
	if _, err := c.do(ctx, http.MethodGet, "/offerings", q, nil, &offerings); err != nil {
		return nil, err
	}
	return offerings, nil
}

// AddEnrollment inserts an enrollment without a capacity check. Administrative
// flows only; the public flow always goes through the conditional add.
func (c *Client) AddEnrollment(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	var created models.Enrollment
	if _, err := c.do(ctx, http.MethodPost, "/enrollments", nil, enrollment, &created); err != nil {
		return models.Enrollment{}, err
	}
	return created, nil
}

// ConditionallyAddEnrollment inserts an enrollment only if the offering still
// has a seat; the server performs the check-and-increment atomically.
func (c *Client) ConditionallyAddEnrollment(ctx context.Context, enrollment models.Enrollment) (models.Enrollment, error) {
	var created models.Enrollment
	if _, err := c.do(ctx, http.MethodPost, "/registration/enrollments", nil, enrollment, &created); err != nil {
		return models.Enrollment{}, err
	}
	return created, nil
}

// DeleteEnrollment removes an enrollment and frees its seat.
func (c *Client) DeleteEnrollment(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/enrollments/"+url.PathEscape(id), nil, nil, nil)
	return err
}

// ListEnrollments lists enrollments matching the filter.
func (c *Client) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	q := url.Values{}
	if filter.StudentID != "" {
		q.Set("studentId", filter.StudentID)
	}
	if filter.Year != 0 {
		q.Set("year", strconv.Itoa(filter.Year))
	}
	if filter.Term != 0 {
		q.Set("term", strconv.Itoa(filter.Term))
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if _, err := c.do(ctx, http.MethodGet, "/enrollments", q, nil, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// do performs one request and decodes the envelope. Server-reported errors
// come back as typed *appErrors.Error values.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (map[string]interface{}, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response for %s %s: %w", method, path, err)
	}
	if env.Error != nil {
		return env.Meta, env.Error
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return env.Meta, appErrors.New(appErrors.ErrInternal.Code, resp.StatusCode, fmt.Sprintf("unexpected status %d from %s %s", resp.StatusCode, method, path))
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return env.Meta, fmt.Errorf("decode payload for %s %s: %w", method, path, err)
		}
	}
	return env.Meta, nil
}
