package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Client implements Service on top of the Google APIs.
type Client struct {
	sheets *sheetsapi.Service
	drive  *drive.Service
}

var _ Service = (*Client)(nil)

// NewClient builds API clients authenticated as the service account. Every
// request inherits timeout; no call is made until a method is used.
func NewClient(ctx context.Context, cfg *jwt.Config, timeout time.Duration) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("sheets: nil credentials")
	}

	// Token refreshes outlive the request that first built the client.
	baseCtx := context.WithoutCancel(ctx)
	base := &http.Client{Timeout: timeout}
	baseCtx = context.WithValue(baseCtx, oauth2.HTTPClient, base)

	httpClient := oauth2.NewClient(baseCtx, cfg.TokenSource(baseCtx))
	httpClient.Timeout = timeout

	sheetsSvc, err := sheetsapi.NewService(baseCtx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(baseCtx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{sheets: sheetsSvc, drive: driveSvc}, nil
}

func (c *Client) Verify(ctx context.Context, spreadsheetID string) error {
	_, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	return nil
}

func (c *Client) Create(ctx context.Context, title, tab string, header []string) (string, error) {
	created, err := c.sheets.Spreadsheets.Create(&sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: title},
		Sheets: []*sheetsapi.Sheet{{
			Properties: tabProperties(tab, 0),
			Data:       []*sheetsapi.GridData{{RowData: []*sheetsapi.RowData{headerRow(header)}}},
		}},
	}).
		Fields("spreadsheetId").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet: %w", err)
	}
	return created.SpreadsheetId, nil
}

func (c *Client) ListTabs(ctx context.Context, spreadsheetID string) ([]string, error) {
	ss, err := c.sheets.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list tabs of %s: %w", spreadsheetID, err)
	}

	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (c *Client) AddTab(ctx context.Context, spreadsheetID, tab string, header []string) error {
	sheetID := newSheetID()
	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{AddSheet: &sheetsapi.AddSheetRequest{Properties: tabProperties(tab, sheetID)}},
			{UpdateCells: &sheetsapi.UpdateCellsRequest{
				Start:  &sheetsapi.GridCoordinate{SheetId: sheetID},
				Rows:   []*sheetsapi.RowData{headerRow(header)},
				Fields: "userEnteredValue",
			}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add tab %q: %w", tab, err)
	}
	return nil
}

func (c *Client) Header(ctx context.Context, spreadsheetID, tab string) ([]string, error) {
	vr, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, quoteTab(tab)+"!1:1").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read header of %q: %w", tab, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	row := make([]string, len(vr.Values[0]))
	for i, v := range vr.Values[0] {
		row[i] = fmt.Sprint(v)
	}
	return row, nil
}

func (c *Client) AppendRow(ctx context.Context, spreadsheetID, tab string, row []string) error {
	_, err := c.sheets.Spreadsheets.Values.Append(spreadsheetID, a1(tab), &sheetsapi.ValueRange{
		Values: [][]interface{}{toCells(row)},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to %q: %w", tab, err)
	}
	return nil
}

func (c *Client) Share(ctx context.Context, spreadsheetID, email string) error {
	_, err := c.drive.Permissions.Create(spreadsheetID, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).SendNotificationEmail(false).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("share spreadsheet with %s: %w", email, err)
	}
	return nil
}

func (c *Client) WriteHeader(ctx context.Context, spreadsheetID, tab string, header []string) error {
	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, a1(tab), &sheetsapi.ValueRange{
		Values: [][]interface{}{toCells(header)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %q: %w", tab, err)
	}
	return nil
}

// tabProperties describes a tab with a frozen header row. A zero sheetID
// lets the service pick one.
func tabProperties(tab string, sheetID int64) *sheetsapi.SheetProperties {
	return &sheetsapi.SheetProperties{
		SheetId:        sheetID,
		Title:          tab,
		GridProperties: &sheetsapi.GridProperties{FrozenRowCount: 1},
	}
}

// newSheetID picks a positive int32 so a batch can refer to the tab it adds.
func newSheetID() int64 {
	return int64(uuid.New().ID()>>2) + 1
}

func headerRow(header []string) *sheetsapi.RowData {
	cells := make([]*sheetsapi.CellData, len(header))
	for i := range header {
		value := header[i]
		cells[i] = &sheetsapi.CellData{UserEnteredValue: &sheetsapi.ExtendedValue{StringValue: &value}}
	}
	return &sheetsapi.RowData{Values: cells}
}

func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// a1 quotes the tab name so names with spaces or apostrophes stay valid.
func a1(tab string) string {
	return quoteTab(tab) + "!A1"
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
