package ocr

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type preflightResult struct {
	pages    int
	warnings []string
}

// preflight validates the file in relaxed mode and counts pages with pdfcpu.
// Failures are reported as warnings only; text recovery goes on regardless.
func (e *Extractor) preflight(path string) preflightResult {
	var res preflightResult
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		e.logger.Warn("ocr.preflight.invalid", "error", err)
		res.warnings = append(res.warnings, "preflight: "+err.Error())
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		e.logger.Warn("ocr.preflight.page_count_failed", "error", err)
		res.warnings = append(res.warnings, "page count: "+err.Error())
		return res
	}
	res.pages = n
	return res
}
