package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"hestia/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab new listings are appended to
const DefaultSheetName = "Listings"

var header = []interface{}{"Date added", "Source", "Address", "City", "Price", "Floor area", "Link"}

// Writer appends newly found listings to a Google Sheets spreadsheet
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
	now           func() time.Time
}

// Credentials returns the service account JSON, read from credentialsPath
// when set and otherwise taken from credentialsJSON
func Credentials(credentialsPath, credentialsJSON string) ([]byte, error) {
	var credsJSON []byte
	if credentialsPath != "" {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		credsJSON = data
	} else {
		credsJSON = []byte(strings.TrimSpace(credentialsJSON))
		if len(credsJSON) == 0 {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
	}

	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return nil, fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}
	return credsJSON, nil
}

// NewWriter creates a new Google Sheets writer. spreadsheet may be an id or a
// full spreadsheet URL.
func NewWriter(ctx context.Context, spreadsheet string, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	id := spreadsheet
	if extracted := ExtractSpreadsheetID(spreadsheet); extracted != "" {
		id = extracted
	}
	if id == "" {
		return nil, fmt.Errorf("spreadsheet id is empty")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: id,
		sheetName:     DefaultSheetName,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// EnsureSheet creates the listings tab with a header row when it does not exist yet
func (w *Writer) EnsureSheet(ctx context.Context) error {
	spreadsheet, err := w.service.Spreadsheets.Get(w.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == w.sheetName {
			return nil
		}
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: w.sheetName, Index: 0},
				},
			},
		},
	}
	if _, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	valueRange := &sheets.ValueRange{Values: [][]interface{}{header}}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, w.sheetName+"!A1", valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	w.logger.Info("sheets: created sheet", "sheet", w.sheetName)
	return nil
}

// AppendListings appends listings to the end of existing data
func (w *Writer) AppendListings(ctx context.Context, listings []models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	added := w.now().UTC().Format("2006-01-02 15:04")
	values := make([][]interface{}, 0, len(listings))
	for _, l := range listings {
		values = append(values, listingRow(l, added))
	}

	_, err := w.service.Spreadsheets.Values.Append(w.spreadsheetID, w.sheetName+"!A:G", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to sheets: %w", err)
	}

	w.logger.Debug("sheets: appended listings", "count", len(listings))
	return nil
}

func listingRow(l models.Listing, added string) []interface{} {
	var sqm interface{} = ""
	if l.HasFloorArea() {
		sqm = l.SQM
	}
	return []interface{}{added, l.Source, l.Address, l.City, l.Price, sqm, l.URL}
}

// SanitizeSheetName removes characters Google Sheets does not allow in tab names
func SanitizeSheetName(name string) string {
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", ":"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if len(result) > 100 {
		result = result[:100]
	}
	if result == "" {
		result = DefaultSheetName
	}
	return result
}

// WithSheetName switches the tab listings are written to
func (w *Writer) WithSheetName(name string) *Writer {
	w.sheetName = SanitizeSheetName(name)
	return w
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// It returns "" when url is not a spreadsheet URL.
func ExtractSpreadsheetID(url string) string {
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		return ""
	}

	idPart := parts[1]
	if idx := strings.Index(idPart, "/"); idx != -1 {
		idPart = idPart[:idx]
	}
	if idx := strings.Index(idPart, "?"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}
