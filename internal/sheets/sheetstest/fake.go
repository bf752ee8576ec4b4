// Package sheetstest provides an in-memory sheets.Service for tests.
package sheetstest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"admissions-assistant/internal/sheets"

	"google.golang.org/api/googleapi"
)

type spreadsheet struct {
	title  string
	order  []string
	tabs   map[string][][]string
	frozen map[string]int64
	shared []string
}

// Fake is a thread-safe in-memory spreadsheet service that records every
// call it receives.
type Fake struct {
	mu     sync.Mutex
	docs   map[string]*spreadsheet
	calls  []string
	nextID int

	// Injected failures, returned by the matching method when non-nil.
	CreateErr      error
	AddTabErr      error
	HeaderErr      error
	WriteHeaderErr error
	AppendErr      error
	ShareErr       error

	// PartialAddTabErr makes AddTab leave an empty tab behind and then fail,
	// like a tab add whose header write was lost.
	PartialAddTabErr error

	// CreateReturnsEmpty makes Create succeed without an id.
	CreateReturnsEmpty bool
}

var _ sheets.Service = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{docs: make(map[string]*spreadsheet)}
}

// Seed registers an existing spreadsheet with the given tabs, each holding
// only the header row when header is non-nil.
func (f *Fake) Seed(id string, header []string, tabs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := &spreadsheet{title: id, tabs: make(map[string][][]string), frozen: make(map[string]int64)}
	for _, tab := range tabs {
		doc.order = append(doc.order, tab)
		if header != nil {
			doc.tabs[tab] = [][]string{append([]string(nil), header...)}
			doc.frozen[tab] = 1
		} else {
			doc.tabs[tab] = nil
		}
	}
	f.docs[id] = doc
}

// Delete removes a spreadsheet, as if it were deleted out-of-band.
func (f *Fake) Delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
}

// RemoveTab drops a tab, as if an operator deleted it.
func (f *Fake) RemoveTab(id, tab string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return
	}
	delete(doc.tabs, tab)
	delete(doc.frozen, tab)
	for i, name := range doc.order {
		if name == tab {
			doc.order = append(doc.order[:i], doc.order[i+1:]...)
			break
		}
	}
}

// Rows returns a copy of every row in a tab, header included.
func (f *Fake) Rows(id, tab string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil
	}
	out := make([][]string, len(doc.tabs[tab]))
	for i, row := range doc.tabs[tab] {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// FrozenRows returns the frozen row count of a tab.
func (f *Fake) FrozenRows(id, tab string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		return doc.frozen[tab]
	}
	return 0
}

// SharedWith returns the addresses a spreadsheet was shared with.
func (f *Fake) SharedWith(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		return append([]string(nil), doc.shared...)
	}
	return nil
}

// Calls returns the call log. Entries look like "verify:<id>", "create",
// "list:<id>", "addTab:<id>:<tab>", "header:<id>:<tab>",
// "writeHeader:<id>:<tab>", "append:<id>:<tab>" and "share:<id>".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many logged calls start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(call string) {
	f.calls = append(f.calls, call)
}

func notFound(id string) error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found: " + id}
}

func (f *Fake) Verify(ctx context.Context, spreadsheetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("verify:" + spreadsheetID)
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := f.docs[spreadsheetID]; !ok {
		return notFound(spreadsheetID)
	}
	return nil
}

func (f *Fake) Create(ctx context.Context, title, tab string, header []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if f.CreateReturnsEmpty {
		return "", nil
	}

	f.nextID++
	id := fmt.Sprintf("sheet-%d", f.nextID)
	f.docs[id] = &spreadsheet{
		title:  title,
		order:  []string{tab},
		tabs:   map[string][][]string{tab: {append([]string(nil), header...)}},
		frozen: map[string]int64{tab: 1},
	}
	return id, nil
}

// Title returns the title a spreadsheet was created with.
func (f *Fake) Title(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		return doc.title
	}
	return ""
}

func (f *Fake) ListTabs(ctx context.Context, spreadsheetID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list:" + spreadsheetID)
	doc, ok := f.docs[spreadsheetID]
	if !ok {
		return nil, notFound(spreadsheetID)
	}
	return append([]string(nil), doc.order...), nil
}

func (f *Fake) AddTab(ctx context.Context, spreadsheetID, tab string, header []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("addTab:" + spreadsheetID + ":" + tab)
	if f.AddTabErr != nil {
		return f.AddTabErr
	}
	doc, ok := f.docs[spreadsheetID]
	if !ok {
		return notFound(spreadsheetID)
	}
	if _, exists := doc.tabs[tab]; exists {
		return &googleapi.Error{Code: http.StatusBadRequest, Message: "A sheet with the name " + tab + " already exists"}
	}
	doc.order = append(doc.order, tab)
	doc.frozen[tab] = 1
	if f.PartialAddTabErr != nil {
		doc.tabs[tab] = nil
		return f.PartialAddTabErr
	}
	doc.tabs[tab] = [][]string{append([]string(nil), header...)}
	return nil
}

func (f *Fake) Header(ctx context.Context, spreadsheetID, tab string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("header:" + spreadsheetID + ":" + tab)
	if f.HeaderErr != nil {
		return nil, f.HeaderErr
	}
	rows, err := f.tabLocked(spreadsheetID, tab)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return append([]string(nil), rows[0]...), nil
}

func (f *Fake) WriteHeader(ctx context.Context, spreadsheetID, tab string, header []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("writeHeader:" + spreadsheetID + ":" + tab)
	if f.WriteHeaderErr != nil {
		return f.WriteHeaderErr
	}
	rows, err := f.tabLocked(spreadsheetID, tab)
	if err != nil {
		return err
	}
	row := append([]string(nil), header...)
	if len(rows) == 0 {
		f.docs[spreadsheetID].tabs[tab] = [][]string{row}
	} else {
		rows[0] = row
	}
	return nil
}

func (f *Fake) tabLocked(spreadsheetID, tab string) ([][]string, error) {
	doc, ok := f.docs[spreadsheetID]
	if !ok {
		return nil, notFound(spreadsheetID)
	}
	rows, exists := doc.tabs[tab]
	if !exists {
		return nil, &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: " + tab}
	}
	return rows, nil
}

func (f *Fake) AppendRow(ctx context.Context, spreadsheetID, tab string, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("append:" + spreadsheetID + ":" + tab)
	if f.AppendErr != nil {
		return f.AppendErr
	}
	doc, ok := f.docs[spreadsheetID]
	if !ok {
		return notFound(spreadsheetID)
	}
	if _, exists := doc.tabs[tab]; !exists {
		return &googleapi.Error{Code: http.StatusBadRequest, Message: "Unable to parse range: " + tab}
	}
	doc.tabs[tab] = append(doc.tabs[tab], append([]string(nil), row...))
	return nil
}

func (f *Fake) Share(ctx context.Context, spreadsheetID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("share:" + spreadsheetID)
	if f.ShareErr != nil {
		return f.ShareErr
	}
	doc, ok := f.docs[spreadsheetID]
	if !ok {
		return notFound(spreadsheetID)
	}
	doc.shared = append(doc.shared, email)
	return nil
}

// Factory hands out a fixed Service and counts how often it was asked.
type Factory struct {
	Svc sheets.Service
	Err error

	mu    sync.Mutex
	calls int
}

func (p *Factory) Service(ctx context.Context) (sheets.Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Svc, nil
}

// Calls returns how many times Service was called.
func (p *Factory) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
