package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/markdave123-py/pdfdesk/internal/core"
	"github.com/markdave123-py/pdfdesk/internal/models"
)

const (
	reportSheet  = "Products"
	reportSuffix = "_products.xlsx"
)

var reportHeader = []any{"SKU", "Category", "Description", "Primary Color", "Secondary Color"}

// ReportName is the file name of the report generated for a source document.
func ReportName(source string) string {
	base := filepath.Base(source)
	stem := SafeName(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "document"
	}
	return stem + reportSuffix
}

// BuildReport writes one row per record, in input order, under a header row.
// The report is written to the output root and returns its absolute path.
func (s *FileStore) BuildReport(ctx context.Context, records []models.ProductRecord, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", core.NewError(core.KindPersistence, reportStage, "report cancelled", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return "", core.NewError(core.KindPersistence, reportStage, "name sheet", err)
	}
	if err := f.SetSheetRow(reportSheet, "A1", &reportHeader); err != nil {
		return "", core.NewError(core.KindPersistence, reportStage, "write header", err)
	}
	for i, rec := range records {
		row := []any{rec.SKU, string(rec.Category), rec.Description, rec.PrimaryColor, rec.SecondaryColor}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", core.NewError(core.KindPersistence, reportStage, "cell address", err)
		}
		if err := f.SetSheetRow(reportSheet, cell, &row); err != nil {
			return "", core.NewError(core.KindPersistence, reportStage, fmt.Sprintf("write row %d", i+2), err)
		}
	}
	_ = f.SetColWidth(reportSheet, "A", "B", 18)
	_ = f.SetColWidth(reportSheet, "C", "C", 60)
	_ = f.SetColWidth(reportSheet, "D", "E", 16)

	name := ReportName(source)
	path := filepath.Join(s.root, name)
	if err := f.SaveAs(path); err != nil {
		return "", core.NewError(core.KindPersistence, reportStage, "save report", err)
	}

	if s.mirror != nil {
		if err := s.mirrorReport(ctx, path, name); err != nil {
			s.log.Warn().Err(err).Str("report", name).Msg("report mirror upload failed")
		}
	}
	return path, nil
}

func (s *FileStore) mirrorReport(ctx context.Context, path, name string) error {
	rf, err := os.Open(path)
	if err != nil {
		return err
	}
	defer rf.Close()
	_, err = s.mirror.UploadFile(ctx, s.bucket, reportKey(name), rf,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	return err
}
