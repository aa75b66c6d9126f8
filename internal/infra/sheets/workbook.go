package sheets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const (
	ChannelName     = "sheets"
	defaultLocation = "America/Argentina/Buenos_Aires"
	rowDateLayout   = "2/1/06, 15:04"
)

// Header is the fixed first row of every category sheet.
var Header = []string{"Fecha", "Nombre", "Email", "Teléfono", "Mensaje", "Categoría", "Tag", "Fuente"}

// Workbook appends leads to a local xlsx file with one sheet per category.
// Appends are serialized; the file is reopened for every append so external
// edits between appends are kept.
type Workbook struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

func NewWorkbook(path, location string) *Workbook {
	if location == "" {
		location = defaultLocation
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		zap.L().Warn("unknown sheets timezone, using UTC", zap.String("timezone", location), zap.Error(err))
		loc = time.UTC
	}
	return &Workbook{path: path, loc: loc}
}

func (w *Workbook) Name() string { return ChannelName }

// SheetName maps a category onto its destination sheet.
func SheetName(c entity.Category) string {
	return c.Label()
}

func (w *Workbook) Deliver(ctx context.Context, event entity.Event) usecase.ChannelResult {
	if err := w.Append(ctx, event.Lead); err != nil {
		return usecase.ChannelResult{Error: err.Error()}
	}
	return usecase.ChannelResult{Success: true}
}

// Append ensures the category sheet exists and adds one row for the lead.
func (w *Workbook) Append(ctx context.Context, lead entity.Lead) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "sheets: append")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.open()
	if err != nil {
		return err
	}

	category := lead.Category
	if !category.Valid() {
		category = entity.CategoryInquiry
	}
	sheet, err := ensureSheet(file, SheetName(category))
	if err != nil {
		return err
	}

	at := lead.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	tag := ""
	if lead.CategoryTag != nil {
		tag = *lead.CategoryTag
	}
	source := lead.Source
	if source == "" {
		source = entity.DefaultSource
	}

	writeRow(sheet, []string{
		at.In(w.loc).Format(rowDateLayout),
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.Message,
		string(category),
		tag,
		source,
	})

	if err := file.Save(w.path); err != nil {
		return eris.Wrap(err, "sheets: save workbook")
	}
	zap.L().Info("lead saved to workbook", zap.String("sheet", sheet.Name), zap.String("email", lead.Email))
	return nil
}

// Check verifies the workbook can be opened or created.
func (w *Workbook) Check() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.open()
	return err
}

func (w *Workbook) open() (*xlsx.File, error) {
	file, err := xlsx.OpenFile(w.path)
	if err == nil {
		return file, nil
	}
	if _, statErr := os.Stat(w.path); !errors.Is(statErr, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "sheets: open workbook")
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return nil, eris.Wrap(err, "sheets: create workbook directory")
	}
	return xlsx.NewFile(), nil
}

func ensureSheet(file *xlsx.File, name string) (*xlsx.Sheet, error) {
	if sheet, ok := file.Sheet[name]; ok {
		if len(sheet.Rows) == 0 {
			writeRow(sheet, Header)
		}
		return sheet, nil
	}
	sheet, err := file.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "sheets: add sheet %s", name)
	}
	writeRow(sheet, Header)
	return sheet, nil
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
