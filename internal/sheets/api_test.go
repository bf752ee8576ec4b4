package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

type apiRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// apiServer stands in for the Sheets and Drive endpoints and records every
// request it receives.
type apiServer struct {
	mu       sync.Mutex
	requests []apiRequest
	respond  func(r *http.Request) (int, string)
}

func (a *apiServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	a.mu.Lock()
	a.requests = append(a.requests, apiRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: body})
	a.mu.Unlock()

	status, payload := http.StatusOK, "{}"
	if a.respond != nil {
		status, payload = a.respond(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(payload))
}

func (a *apiServer) only(t *testing.T) apiRequest {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.requests) != 1 {
		t.Fatalf("requests = %d, want 1: %+v", len(a.requests), a.requests)
	}
	return a.requests[0]
}

func newTestClient(t *testing.T, respond func(r *http.Request) (int, string)) (*Client, *apiServer) {
	t.Helper()

	api := &apiServer{respond: respond}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	sheetsSvc, err := sheetsapi.NewService(ctx, option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithEndpoint(srv.URL+"/drive/v3/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("drive service: %v", err)
	}
	return &Client{sheets: sheetsSvc, drive: driveSvc}, api
}

func notFoundResponse(*http.Request) (int, string) {
	return http.StatusNotFound, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`
}

var testHeader = []string{"timestamp", "feedbackType", "userComment"}

func TestClientVerify(t *testing.T) {
	c, api := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"spreadsheetId":"doc"}`
	})

	if err := c.Verify(context.Background(), "doc"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	req := api.only(t)
	if req.Method != http.MethodGet || req.Path != "/v4/spreadsheets/doc" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if got := req.Query.Get("fields"); got != "spreadsheetId" {
		t.Fatalf("fields = %q, want spreadsheetId", got)
	}
}

func TestClientVerifyNotFound(t *testing.T) {
	c, _ := newTestClient(t, notFoundResponse)

	err := c.Verify(context.Background(), "gone")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsInaccessible(err) {
		t.Fatalf("IsInaccessible(%v) = false", err)
	}
}

func TestClientCreateWritesHeaderWithTab(t *testing.T) {
	c, api := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"spreadsheetId":"new-doc"}`
	})

	id, err := c.Create(context.Background(), "Feedback abc12345", "Feedback", testHeader)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "new-doc" {
		t.Fatalf("id = %q, want new-doc", id)
	}

	req := api.only(t)
	if req.Method != http.MethodPost || req.Path != "/v4/spreadsheets" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if got := req.Query.Get("fields"); got != "spreadsheetId" {
		t.Fatalf("fields = %q, want spreadsheetId", got)
	}

	var body sheetsapi.Spreadsheet
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Properties == nil || body.Properties.Title != "Feedback abc12345" {
		t.Fatalf("properties = %+v", body.Properties)
	}
	if len(body.Sheets) != 1 {
		t.Fatalf("sheets = %d, want 1", len(body.Sheets))
	}
	sheet := body.Sheets[0]
	if sheet.Properties.Title != "Feedback" || sheet.Properties.GridProperties.FrozenRowCount != 1 {
		t.Fatalf("tab properties = %+v", sheet.Properties)
	}
	if len(sheet.Data) != 1 || len(sheet.Data[0].RowData) != 1 {
		t.Fatalf("grid data = %+v", sheet.Data)
	}
	if got := rowStrings(sheet.Data[0].RowData[0]); !slices.Equal(got, testHeader) {
		t.Fatalf("header cells = %v, want %v", got, testHeader)
	}
}

func TestClientCreateWithoutID(t *testing.T) {
	c, _ := newTestClient(t, nil)

	id, err := c.Create(context.Background(), "Feedback", "Feedback", testHeader)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
}

func TestClientCreateFailure(t *testing.T) {
	c, _ := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusForbidden, `{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`
	})

	if _, err := c.Create(context.Background(), "Feedback", "Feedback", testHeader); err == nil {
		t.Fatal("expected an error")
	}
}

func TestClientListTabs(t *testing.T) {
	c, api := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"sheets":[{"properties":{"title":"Sheet1"}},{"properties":{"title":"Feedback"}},{}]}`
	})

	tabs, err := c.ListTabs(context.Background(), "doc")
	if err != nil {
		t.Fatalf("ListTabs() error = %v", err)
	}
	if !slices.Equal(tabs, []string{"Sheet1", "Feedback"}) {
		t.Fatalf("tabs = %v", tabs)
	}

	req := api.only(t)
	if req.Path != "/v4/spreadsheets/doc" {
		t.Fatalf("path = %s", req.Path)
	}
	if got := req.Query.Get("fields"); got != "sheets.properties.title" {
		t.Fatalf("fields = %q", got)
	}
}

func TestClientAddTabSendsOneBatch(t *testing.T) {
	c, api := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"spreadsheetId":"doc","replies":[{},{}]}`
	})

	if err := c.AddTab(context.Background(), "doc", "Feedback", testHeader); err != nil {
		t.Fatalf("AddTab() error = %v", err)
	}

	req := api.only(t)
	if req.Method != http.MethodPost || req.Path != "/v4/spreadsheets/doc:batchUpdate" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}

	var body sheetsapi.BatchUpdateSpreadsheetRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Requests) != 2 {
		t.Fatalf("requests in batch = %d, want 2", len(body.Requests))
	}

	add := body.Requests[0].AddSheet
	if add == nil {
		t.Fatal("first request should add the sheet")
	}
	if add.Properties.Title != "Feedback" || add.Properties.GridProperties.FrozenRowCount != 1 {
		t.Fatalf("tab properties = %+v", add.Properties)
	}
	if add.Properties.SheetId <= 0 {
		t.Fatalf("sheet id = %d, want a positive id", add.Properties.SheetId)
	}

	update := body.Requests[1].UpdateCells
	if update == nil {
		t.Fatal("second request should write the header")
	}
	if update.Start == nil || update.Start.SheetId != add.Properties.SheetId {
		t.Fatalf("header targets %+v, want sheet %d", update.Start, add.Properties.SheetId)
	}
	if update.Start.RowIndex != 0 || update.Start.ColumnIndex != 0 {
		t.Fatalf("header starts at %+v, want A1", update.Start)
	}
	if update.Fields != "userEnteredValue" {
		t.Fatalf("fields = %q", update.Fields)
	}
	if len(update.Rows) != 1 || !slices.Equal(rowStrings(update.Rows[0]), testHeader) {
		t.Fatalf("header rows = %+v", update.Rows)
	}
}

func TestClientAddTabFailure(t *testing.T) {
	c, _ := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusBadRequest, `{"error":{"code":400,"message":"A sheet with the name \"Feedback\" already exists."}}`
	})

	err := c.AddTab(context.Background(), "doc", "Feedback", testHeader)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("AddTab() error = %v", err)
	}
}

func TestClientHeader(t *testing.T) {
	c, api := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"range":"Feedback!A1:C1","values":[["timestamp","feedbackType","userComment"]]}`
	})

	row, err := c.Header(context.Background(), "doc", "Feedback")
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if !slices.Equal(row, testHeader) {
		t.Fatalf("row = %v", row)
	}

	req := api.only(t)
	if req.Method != http.MethodGet || req.Path != "/v4/spreadsheets/doc/values/'Feedback'!1:1" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
}

func TestClientHeaderEmptyTab(t *testing.T) {
	c, _ := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"range":"Feedback!A1:Z1"}`
	})

	row, err := c.Header(context.Background(), "doc", "Feedback")
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if len(row) != 0 {
		t.Fatalf("row = %v, want empty", row)
	}
}

func TestClientWriteHeader(t *testing.T) {
	c, api := newTestClient(t, nil)

	if err := c.WriteHeader(context.Background(), "doc", "Dean's list", testHeader); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}

	req := api.only(t)
	if req.Method != http.MethodPut || req.Path != "/v4/spreadsheets/doc/values/'Dean''s list'!A1" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if got := req.Query.Get("valueInputOption"); got != "RAW" {
		t.Fatalf("valueInputOption = %q", got)
	}
	assertValues(t, req.Body, testHeader)
}

func TestClientAppendRow(t *testing.T) {
	c, api := newTestClient(t, nil)
	row := []string{"2026-03-14T09:26:53.000Z", "negative", "=SUM(A1)"}

	if err := c.AppendRow(context.Background(), "doc", "Feedback", row); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}

	req := api.only(t)
	if req.Method != http.MethodPost || req.Path != "/v4/spreadsheets/doc/values/'Feedback'!A1:append" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if got := req.Query.Get("valueInputOption"); got != "RAW" {
		t.Fatalf("valueInputOption = %q, want RAW", got)
	}
	if got := req.Query.Get("insertDataOption"); got != "INSERT_ROWS" {
		t.Fatalf("insertDataOption = %q, want INSERT_ROWS", got)
	}
	assertValues(t, req.Body, row)
}

func TestClientAppendRowFailure(t *testing.T) {
	c, _ := newTestClient(t, notFoundResponse)

	err := c.AppendRow(context.Background(), "gone", "Feedback", []string{"x"})
	if !IsInaccessible(err) {
		t.Fatalf("AppendRow() error = %v, want an inaccessible error", err)
	}
}

func TestClientShare(t *testing.T) {
	c, api := newTestClient(t, func(*http.Request) (int, string) {
		return http.StatusOK, `{"id":"perm-1","type":"user","role":"writer"}`
	})

	if err := c.Share(context.Background(), "doc", "admissions@example.edu"); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	req := api.only(t)
	if req.Method != http.MethodPost || req.Path != "/drive/v3/files/doc/permissions" {
		t.Fatalf("request = %s %s", req.Method, req.Path)
	}
	if got := req.Query.Get("sendNotificationEmail"); got != "false" {
		t.Fatalf("sendNotificationEmail = %q, want false", got)
	}

	var perm drive.Permission
	if err := json.Unmarshal(req.Body, &perm); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if perm.Type != "user" || perm.Role != "writer" || perm.EmailAddress != "admissions@example.edu" {
		t.Fatalf("permission = %+v", perm)
	}
}

func rowStrings(row *sheetsapi.RowData) []string {
	out := make([]string, 0, len(row.Values))
	for _, cell := range row.Values {
		if cell.UserEnteredValue == nil || cell.UserEnteredValue.StringValue == nil {
			out = append(out, "")
			continue
		}
		out = append(out, *cell.UserEnteredValue.StringValue)
	}
	return out
}

func assertValues(t *testing.T, body []byte, want []string) {
	t.Helper()
	var vr struct {
		Values [][]string `json:"values"`
	}
	if err := json.Unmarshal(body, &vr); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(vr.Values) != 1 || !slices.Equal(vr.Values[0], want) {
		t.Fatalf("values = %v, want [%v]", vr.Values, want)
	}
}
