package documents

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Epistemic-Technology/casebrief/models"
)

// SplitPdf splits a PDF document into individual pages
func SplitPdf(doc models.DocumentData) (models.DocumentPages, error) {
	var pages models.DocumentPages
	reader := bytes.NewReader(doc.Data)
	conf := model.NewDefaultConfiguration()
	pdfContext, err := api.ReadValidateAndOptimize(reader, conf)
	if err != nil {
		return pages, err
	}
	pageCount := pdfContext.PageCount
	if pageCount == 0 {
		return pages, nil
	}
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pageReader, err := api.ExtractPage(pdfContext, pageNum)
		if err != nil {
			return pages, err
		}
		pageData, err := io.ReadAll(pageReader)
		if err != nil {
			return pages, err
		}
		pages = append(pages, models.DocumentPageData(pageData))
	}
	return pages, nil
}

// ExtractTextLayer returns the embedded text of every page, one entry per
// page. Scanned pages without a text layer yield empty strings.
func ExtractTextLayer(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	texts := make([]string, numPages)
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		texts[i] = text
	}
	return texts, nil
}
