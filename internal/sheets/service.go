// Package sheets is the adapter between the feedback store and the Google
// Sheets and Drive APIs.
package sheets

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"
)

// Scopes requested for the service account. Drive file scope covers sharing
// spreadsheets the service account created.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive.file",
}

// Service is the subset of the spreadsheet service the feedback store needs.
type Service interface {
	// Verify returns nil when the spreadsheet exists and is accessible.
	Verify(ctx context.Context, spreadsheetID string) error

	// Create makes a new spreadsheet holding one tab with a frozen header
	// row already written, and returns its id. The tab and its header are
	// created together.
	Create(ctx context.Context, title, tab string, header []string) (string, error)

	// ListTabs returns the titles of every tab in the spreadsheet.
	ListTabs(ctx context.Context, spreadsheetID string) ([]string, error)

	// AddTab adds a tab with a frozen first row holding header. Either both
	// land or neither does.
	AddTab(ctx context.Context, spreadsheetID, tab string, header []string) error

	// Header returns the first row of the tab, empty when it has none.
	Header(ctx context.Context, spreadsheetID, tab string) ([]string, error)

	// WriteHeader overwrites the first row of the tab with header.
	WriteHeader(ctx context.Context, spreadsheetID, tab string, header []string) error

	// AppendRow appends row after the last row of the tab's data region.
	AppendRow(ctx context.Context, spreadsheetID, tab string, row []string) error

	// Share grants email writer access to the spreadsheet.
	Share(ctx context.Context, spreadsheetID, email string) error
}

// URL returns the browser address of a spreadsheet.
func URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID + "/edit"
}

// IsInaccessible reports whether err means the spreadsheet is gone or the
// service account lost access to it.
func IsInaccessible(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusForbidden
	}
	return false
}
